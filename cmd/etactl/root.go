package main

import (
	"fmt"

	"github.com/eta/backend/internal/infrastructure/config"
	"github.com/eta/backend/internal/infrastructure/logger"
	"github.com/eta/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "etactl",
	Short:        "etactl administers ETA tenants and periodic tasks.",
	Long:         `A CLI for inspecting the tenant registry and running tenant-aware periodic tasks outside the server.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config.toml (default: search ., ./backend, /app)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

// env holds what every subcommand needs
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *persistence.Database
}

// setup loads configuration and opens the database. The cleanup func must be deferred.
func setup() (*env, func(), error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		_ = logger.Sync(log)
		return nil, nil, err
	}
	cleanup := func() {
		_ = db.Close()
		_ = logger.Sync(log)
	}
	return &env{cfg: cfg, log: log, db: db}, cleanup, nil
}
