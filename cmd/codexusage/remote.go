package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/codexusage/internal/config"
	"github.com/janekbaraniewski/codexusage/internal/core"
	"github.com/janekbaraniewski/codexusage/internal/remote"
	"github.com/janekbaraniewski/codexusage/internal/render"
)

func newRemoteCommand(a *app) *cobra.Command {
	var (
		authFile string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Query the usage endpoint with the stored Codex credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth := a.auth
			if authFile != "" {
				auth = config.NewAuthFile(authFile)
			}
			tokens, err := auth.Tokens()
			if err != nil && !errors.Is(err, core.ErrNoCurrentAccount) {
				return err
			}

			client, err := remote.NewClient(remote.Options{
				BaseURL:    a.cfg.Remote.BaseURL,
				ProxyURL:   a.cfg.Remote.ProxyURL,
				RetryDelay: a.cfg.Remote.RetryDelay,
				Timeout:    a.cfg.Remote.Timeout,
				Logger:     a.log,
			})
			if err != nil {
				return err
			}

			res, err := client.Fetch(cmd.Context(), remote.Credentials{
				AccessToken: tokens.AccessToken,
				AccountID:   tokens.AccountID,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, res)
			}
			if res.Status != remote.StatusOK {
				_, err = fmt.Fprint(out, render.Status(string(res.Status), res.Message))
				return err
			}
			_, err = fmt.Fprint(out, render.Snapshot(*res.Usage, time.Now()))
			return err
		},
	}
	cmd.Flags().StringVar(&authFile, "auth-file", "", "Codex auth.json to read credentials from")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
