package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/codexusage/internal/bindings"
	"github.com/janekbaraniewski/codexusage/internal/config"
	"github.com/janekbaraniewski/codexusage/internal/sessions"
	"github.com/janekbaraniewski/codexusage/internal/usage"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	auth     *config.AuthFile
	store    *bindings.Store
	binder   *bindings.Binder
	resolver *usage.Resolver
}

func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	cache, err := sessions.NewSnapshotCache(cfg.Cache.Size)
	if err != nil {
		return nil, err
	}

	auth := config.NewAuthFile(cfg.AuthFile)
	store := bindings.NewStore(cfg.BindingsFile)

	return &app{
		cfg:    cfg,
		log:    logger,
		auth:   auth,
		store:  store,
		binder: bindings.NewBinder(store, auth),
		resolver: usage.NewResolver(usage.Options{
			SessionsDir: cfg.SessionsDir,
			RecentFiles: cfg.Scan.RecentFiles,
			Store:       store,
			Cache:       cache,
			Logger:      logger,
		}),
	}, nil
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		logLevel   string
		a          = &app{}
	)

	root := &cobra.Command{
		Use:           "codexusage",
		Short:         "codexusage reports Codex rate-limit usage from local session logs.",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			built, err := newApp(cfg, setupLogger(cfg.Log.Level, cfg.Log.Format))
			if err != nil {
				return err
			}
			*a = *built
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newUsageCommand(a),
		newBindingsCommand(a),
		newBindCommand(a),
		newWatchCommand(a),
		newRemoteCommand(a),
		newVersionCommand(),
	)
	return root
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
