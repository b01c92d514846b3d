package main

import (
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mr1hm/go-alert-relationships/internal/catalog"
	"github.com/mr1hm/go-alert-relationships/internal/client"
	"github.com/mr1hm/go-alert-relationships/internal/config"
	"github.com/mr1hm/go-alert-relationships/internal/logging"
	"github.com/mr1hm/go-alert-relationships/internal/relationship"
)

// app holds what every subcommand shares once flags are parsed.
type app struct {
	backend  string
	timeout  time.Duration
	logLevel string

	client  *client.Client
	catalog *catalog.Catalog
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "alertctl",
		Short:         "Inspect and edit alert relationship templates",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.backend, "backend", "", "backend base URL (default $BACKEND_URL)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "backend call timeout (default $BACKEND_TIMEOUT)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level written to stderr (default $LOG_LEVEL)")

	root.AddCommand(
		newTypesCmd(a),
		newAlertsCmd(a),
		newTemplatesCmd(a),
		newLoadCmd(a),
		newBuildCmd(a),
		newBindCmd(a),
		newSpawnCmd(a),
	)

	return root
}

// setup fills unset flags from the environment and wires the backend client.
func (a *app) setup(cmd *cobra.Command) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.backend == "" {
		a.backend = cfg.Client.BackendURL
	}
	if a.timeout <= 0 {
		a.timeout = cfg.Client.Timeout
	}
	if a.logLevel == "" {
		a.logLevel = cfg.Logging.Level
	}
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), a.logLevel, "text"))

	a.client = client.New(a.backend, a.timeout)
	a.catalog = catalog.New(a.client, catalog.WithRefreshInterval(cfg.Catalog.RefreshInterval))
	slog.Debug("backend configured", "backend", a.backend, "timeout", a.timeout)
	return nil
}

func (a *app) newStore() *relationship.Store {
	return relationship.New(a.client, a.catalog, relationship.WithTimeout(a.timeout))
}
