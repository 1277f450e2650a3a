/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/quill-blog/quill/config"
	"github.com/quill-blog/quill/internal/db"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(migrator *db.Migrator) error {
			return migrator.Up()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(migrator *db.Migrator) error {
			return migrator.Down()
		})
	},
}

func withMigrator(cmd *cobra.Command, fn func(*db.Migrator) error) error {
	cfg := config.LoadConfig()
	logger, err := newLogger(cfg, "migrate "+cmd.Name())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	migrator, err := db.NewMigrator(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warnw("failed to close migrator", "error", err)
		}
	}()

	if err := fn(migrator); err != nil {
		logger.Errorw("migration failed", "error", err)
		return err
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Infow("migrations applied", "version", version, "dirty", dirty)
	return nil
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}
