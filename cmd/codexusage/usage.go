package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/codexusage/internal/core"
	"github.com/janekbaraniewski/codexusage/internal/render"
)

func newUsageCommand(a *app) *cobra.Command {
	var (
		accountID string
		email     string
		file      string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show remaining five-hour and weekly quota",
		Long: `Show remaining quota from the newest session log.

With --account the files bound to that account are used; --email enables a
scan of recent session files when no bound file is usable. --file reads one
session file directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				snap core.UsageSnapshot
				err  error
			)
			switch {
			case file != "":
				snap, err = a.resolver.FromFile(file)
			case accountID != "" || email != "":
				snap, err = a.resolver.ForAccount(accountID, email)
			default:
				snap, err = a.resolver.Latest()
			}
			if err != nil {
				return fmt.Errorf("resolving usage: %w", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), render.Snapshot(snap, time.Now()))
			return err
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "account id to resolve through bindings")
	cmd.Flags().StringVar(&email, "email", "", "account email for the session scan fallback")
	cmd.Flags().StringVar(&file, "file", "", "read a specific session file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.MarkFlagsMutuallyExclusive("file", "account")
	cmd.MarkFlagsMutuallyExclusive("file", "email")
	return cmd
}
