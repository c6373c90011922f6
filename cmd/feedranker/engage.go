package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"FeedRanker/internal/app"
	"FeedRanker/internal/config"
)

var engageCmd = &cobra.Command{
	Use:   "engage <view|save|unsave|share|rate> <user-id> <article-id> [rating]",
	Short: "Record one engagement and invalidate the affected cache entries",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		kind, userID, articleID := strings.ToLower(args[0]), args[1], args[2]

		return withApp(ctx, func(a *app.Application, _ config.Config, _ *slog.Logger) error {
			switch kind {
			case "view":
				return a.Engagement.RecordView(ctx, userID, articleID)
			case "save":
				return a.Engagement.RecordSave(ctx, userID, articleID)
			case "unsave":
				return a.Engagement.RecordUnsave(ctx, userID, articleID)
			case "share":
				return a.Engagement.RecordShare(ctx, userID, articleID)
			case "rate":
				if len(args) != 4 {
					return fmt.Errorf("rate needs a rating between 1 and 5")
				}
				rating, err := strconv.Atoi(args[3])
				if err != nil {
					return fmt.Errorf("parse rating %q: %w", args[3], err)
				}
				return a.Engagement.RecordRate(ctx, userID, articleID, rating)
			default:
				return fmt.Errorf("unknown engagement type %q", args[0])
			}
		})
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete engagement events older than engagement.retentionDays",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app.Application, cfg config.Config, logger *slog.Logger) error {
			removed, err := a.Engagement.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			logger.Info("engagement purged", "removed", removed, "retention_days", cfg.Engagement.RetentionDays)
			return printJSON(cmd, map[string]int64{"removed": removed})
		})
	},
}

func init() {
	rootCmd.AddCommand(engageCmd, purgeCmd)
}
