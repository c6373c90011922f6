package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"FeedRanker/internal/app"
	"FeedRanker/internal/config"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Send unscored articles to the AI scoring provider",
	Long: `Score pulls articles without AI scores, asks the provider selected by
ml.provider for quality, target roles, skill level, tags and the clickbait
flag, and persists the clamped result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(ctx, func(a *app.Application, _ config.Config, _ *slog.Logger) error {
			result, err := a.Scoring.ScorePending(ctx, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		})
	},
}

func init() {
	scoreCmd.Flags().Int("limit", 0, "maximum articles to score (0 uses ml.batchSize)")

	rootCmd.AddCommand(scoreCmd)
}
