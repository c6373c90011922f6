package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"FeedRanker/internal/app"
	"FeedRanker/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and indexes in the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app.Application, cfg config.Config, logger *slog.Logger) error {
			if err := a.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("schema ready", "driver", cfg.Database.Driver)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
