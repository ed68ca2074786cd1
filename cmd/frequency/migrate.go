package main

import (
	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/joestump/frequency/internal/config"
	"github.com/joestump/frequency/internal/db"
	"github.com/joestump/frequency/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			logger.Info("migrations complete", "driver", cfg.DB.Driver)
			return nil
		},
	}
}

// setup loads configuration and builds the logger every command shares.
func setup() (*config.Config, *log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(nil, cfg.Log.Level, cfg.Log.Format), nil
}

// openDB connects to the configured database and applies pending migrations.
func openDB(cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database, cfg.DB.Driver); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}
