/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/quill-blog/quill/config"
	"github.com/quill-blog/quill/internal/mq"
	"github.com/quill-blog/quill/types"
	"github.com/spf13/cobra"
)

// eventsCmd follows the post events channel and logs every event.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Log post events from the configured broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger, err := newLogger(cfg, "events")
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := mq.New(ctx, cfg.MQ)
		if err != nil {
			logger.Errorw("failed to connect to broker", "error", err)
			return err
		}
		defer func() {
			if err := events.Close(); err != nil {
				logger.Warnw("failed to close broker", "error", err)
			}
		}()

		logger.Infow("subscribed", "backend", cfg.MQ.Backend, "channel", events.Channel())
		err = events.SubscribePostEvents(ctx, func(ctx context.Context, event types.PostEvent) error {
			logger.Infow("post event",
				"type", event.Type,
				"post_id", event.PostID,
				"author_id", event.AuthorID,
				"title", event.Title,
				"occurred_at", event.OccurredAt,
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
