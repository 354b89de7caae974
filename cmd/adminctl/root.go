package main

import (
	"fmt"
	"os"

	"adlink-platform/internal/config"
	"adlink-platform/internal/database"
	"adlink-platform/internal/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	databaseURL string
	logLevel    string
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:           "adminctl",
	Short:         "Maintenance commands for the ad and internal-linking service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Database DSN (defaults to DATABASE_URL / config file)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (defaults to LOG_LEVEL / config file)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")
}

// env bundles what every subcommand needs.
type env struct {
	cfg *config.Config
	db  *gorm.DB
	log *logrus.Logger
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log := logger.SetupLogger(cfg.LogLevel, "text")
	log.SetOutput(cmd.ErrOrStderr())
	if quiet {
		log = logger.Discard()
	}

	db, err := database.SetupDatabase(cfg.DatabaseURL, database.GormLogLevel(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &env{cfg: cfg, db: db, log: log}, nil
}

func (e *env) Close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
