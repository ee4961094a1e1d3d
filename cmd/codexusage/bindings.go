package main

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/codexusage/internal/core"
	"github.com/janekbaraniewski/codexusage/internal/render"
)

func newBindingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bindings",
		Short: "Inspect and edit account to session-file bindings",
	}
	cmd.AddCommand(newBindingsListCommand(a), newBindingsAddCommand(a))
	return cmd
}

func newBindingsListCommand(a *app) *cobra.Command {
	var (
		accountID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := a.store.Document()
			if err != nil {
				return err
			}

			byAccount := doc.Bindings
			if accountID != "" {
				byAccount = lo.PickByKeys(doc.Bindings, []string{accountID})
			}
			if asJSON {
				if accountID != "" {
					return writeJSON(cmd.OutOrStdout(), lo.ValueOr(byAccount, accountID, []core.SessionBinding{}))
				}
				return writeJSON(cmd.OutOrStdout(), doc)
			}

			accounts := lo.Keys(byAccount)
			sort.Strings(accounts)
			_, err = fmt.Fprint(cmd.OutOrStdout(), render.Bindings(byAccount, accounts))
			return err
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "only show this account")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newBindingsAddCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add ACCOUNT FILE",
		Short: "Bind a session file to an explicit account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.binder.BindFile(args[0], args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "bound %s (%s) to %s\n", b.FilePath, b.SessionID, args[0])
			return err
		},
	}
}

func newBindCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bind FILE",
		Short: "Bind a session file to the account signed in to Codex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := a.auth.CurrentAccountID()
			if err != nil {
				return err
			}
			b, err := a.binder.BindFile(accountID, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "bound %s (%s) to %s\n", b.FilePath, b.SessionID, accountID)
			return err
		},
	}
}
