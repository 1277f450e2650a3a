/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/quill-blog/quill/config"
	"github.com/quill-blog/quill/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "A small multi-user blog",
	Long: `quill serves a multi-user blog backed by PostgreSQL.

Run "quill migrate up" once, then "quill server".`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the shared logger for a subcommand.
func newLogger(cfg config.Config, command string) (*zap.SugaredLogger, error) {
	logger, err := logging.New("quill", cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logger.With("command", command), nil
}
