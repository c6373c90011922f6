package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"FeedRanker/internal/app"
	"FeedRanker/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled batch jobs and expose /metrics",
	Long: `Serve starts the cron scheduler (trending, roles, scoring, retention) and the
Prometheus endpoint on metrics.addr, then blocks until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return withApp(ctx, func(a *app.Application, cfg config.Config, logger *slog.Logger) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			if migrate {
				if err := a.Migrate(ctx); err != nil {
					return err
				}
			}
			logger.Info("feedranker serving", "policy", cfg.Feed.Policy, "timezone", cfg.Scheduler.Location().String())
			return a.Run(ctx)
		})
	},
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "apply the schema before starting")

	rootCmd.AddCommand(serveCmd)
}

