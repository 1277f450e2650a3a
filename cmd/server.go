/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quill-blog/quill/config"
	"github.com/quill-blog/quill/internal/db"
	"github.com/quill-blog/quill/internal/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the quill web server",
	Long: `Starts the quill web server. Usage:

	quill server [--migrate]
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger, err := newLogger(cfg, "server")
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		if migrateFirst, _ := cmd.Flags().GetBool("migrate"); migrateFirst {
			if err := migrateUp(cfg); err != nil {
				logger.Errorw("migration failed", "error", err)
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, cfg, logger)
		if err != nil {
			logger.Errorw("failed to start server", "error", err)
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case <-ctx.Done():
			logger.Infow("shutting down")
		case err = <-errCh:
			if err != nil {
				logger.Errorw("server error", "error", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if sdErr := srv.Shutdown(shutdownCtx); sdErr != nil {
			logger.Errorw("shutdown failed", "error", sdErr)
			if err == nil {
				err = fmt.Errorf("server shutdown: %w", sdErr)
			}
		}
		return err
	},
}

func migrateUp(cfg config.Config) error {
	migrator, err := db.NewMigrator(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		_ = migrator.Close()
	}()
	return migrator.Up()
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
}
