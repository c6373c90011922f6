package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"FeedRanker/internal/app"
	"FeedRanker/internal/config"
	"FeedRanker/internal/domain"
)

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Compute and inspect trending articles",
}

var trendingComputeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Recompute and cache trending lists for every configured period",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app.Application, _ config.Config, _ *slog.Logger) error {
			result, err := a.Trending.ComputeAllPeriods(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		})
	},
}

var trendingShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print trending articles, optionally restricted to one role",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		days, _ := cmd.Flags().GetInt("days")
		limit, _ := cmd.Flags().GetInt("limit")
		role, _ := cmd.Flags().GetString("role")

		return withApp(ctx, func(a *app.Application, _ config.Config, _ *slog.Logger) error {
			var (
				items []domain.TrendingArticle
				err   error
			)
			if role != "" {
				items, err = a.Trending.GetTrendingByRole(ctx, domain.Role(strings.ToUpper(role)), days, limit)
			} else {
				items, err = a.Trending.GetTrending(ctx, days, limit)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, items)
		})
	},
}

func init() {
	trendingShowCmd.Flags().Int("days", 7, "trending window in days")
	trendingShowCmd.Flags().Int("limit", 10, "maximum number of articles")
	trendingShowCmd.Flags().String("role", "", "restrict to articles targeting this role (e.g. backend)")

	trendingCmd.AddCommand(trendingComputeCmd, trendingShowCmd)
	rootCmd.AddCommand(trendingCmd)
}
