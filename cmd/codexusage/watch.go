package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/codexusage/internal/metrics"
	"github.com/janekbaraniewski/codexusage/internal/watcher"
)

func newWatchCommand(a *app) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Bind new session files to the signed-in account as they are written",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			addr := a.cfg.Metrics.Listen
			if metricsAddr != "" {
				addr = metricsAddr
			}
			if addr != "" {
				srv := metrics.NewServer(addr, a.log)
				if err := srv.Start(); err != nil {
					return err
				}
				defer srv.Stop()
			}

			return watcher.New(a.cfg.SessionsDir, a.binder, a.resolver, metrics.Sink{}, a.log).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-listen", "", "serve /metrics on this address")
	return cmd
}
