package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"FeedRanker/internal/app"
	"FeedRanker/internal/config"
	"FeedRanker/internal/domain"
	"FeedRanker/internal/usecase"
)

var feedCmd = &cobra.Command{
	Use:   "feed [user-id]",
	Short: "Print one page of a user's personalized feed",
	Long: `Feed assembles one page for the given user. Without a user id the
anonymous recency feed is returned. Pass --cursor with the previous
page's nextCursor to continue.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")
		cursor, _ := cmd.Flags().GetString("cursor")

		return withApp(ctx, func(a *app.Application, cfg config.Config, _ *slog.Logger) error {
			if limit <= 0 {
				limit = cfg.Feed.DefaultLimit
			}

			var user *domain.User
			if len(args) == 1 {
				u, err := a.Users.GetUser(ctx, args[0])
				switch {
				case errors.Is(err, domain.ErrUserNotFound):
					u = domain.User{ID: args[0]}
				case err != nil:
					return err
				}
				user = &u
			}

			page, err := a.Feed.GetPersonalizedFeed(ctx, user, usecase.FeedOptions{Limit: limit, Cursor: cursor})
			if err != nil {
				return err
			}
			return printJSON(cmd, page)
		})
	},
}

var articleCmd = &cobra.Command{
	Use:   "article <article-id>",
	Short: "Print one article through the item cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app.Application, _ config.Config, _ *slog.Logger) error {
			article, err := a.Feed.GetArticle(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, article)
		})
	},
}

func init() {
	feedCmd.Flags().Int("limit", 0, "page size (0 uses feed.defaultLimit)")
	feedCmd.Flags().String("cursor", "", "article id to continue after")

	rootCmd.AddCommand(feedCmd, articleCmd)
}
