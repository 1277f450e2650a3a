/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/quill-blog/quill/config"
	"github.com/quill-blog/quill/internal/db"
	"github.com/quill-blog/quill/internal/services"
	"github.com/quill-blog/quill/internal/storage"
	"github.com/quill-blog/quill/internal/store"
	"github.com/spf13/cobra"
)

// exportCmd uploads a JSON archive of every post to object storage.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all posts as a JSON archive to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger, err := newLogger(cfg, "export")
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx := cmd.Context()
		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			logger.Errorw("failed to open database", "error", err)
			return err
		}
		defer dbConn.Close()

		backend, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			logger.Errorw("failed to open object storage", "error", err)
			return err
		}
		defer func() {
			if err := backend.Close(); err != nil {
				logger.Warnw("failed to close object storage", "error", err)
			}
		}()

		key, _ := cmd.Flags().GetString("key")
		archive := services.NewArchiveService(store.NewPostRepository(dbConn), backend)
		result, err := archive.Export(ctx, key)
		if err != nil {
			logger.Errorw("export failed", "error", err)
			return err
		}

		logger.Infow("exported posts",
			"bucket", backend.Bucket(),
			"key", result.Key,
			"posts", result.Posts,
			"bytes", result.Bytes,
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("key", "", "Object key (default posts-<timestamp>.json)")
}
