package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"FeedRanker/internal/app"
	"FeedRanker/internal/config"
	"FeedRanker/internal/usecase"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Recompute dynamic role profiles from engagement",
}

var rolesUpdateCmd = &cobra.Command{
	Use:   "update <user-id>",
	Short: "Recompute and persist the role profile of one user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app.Application, _ config.Config, _ *slog.Logger) error {
			result, err := a.Roles.UpdateUser(ctx, args[0])
			if errors.Is(err, usecase.ErrUpdateInProgress) {
				return fmt.Errorf("user %s: %w", args[0], err)
			}
			if err != nil {
				return err
			}
			if result == nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "user %s has no engagement in the window, profile unchanged\n", args[0])
				return nil
			}
			return printJSON(cmd, result)
		})
	},
}

var rolesUpdateAllCmd = &cobra.Command{
	Use:   "update-all",
	Short: "Recompute role profiles of every user active in the window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		window, _ := cmd.Flags().GetInt("window")
		return withApp(ctx, func(a *app.Application, _ config.Config, _ *slog.Logger) error {
			result, err := a.Roles.UpdateAll(ctx, window)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		})
	},
}

var rolesSkillCmd = &cobra.Command{
	Use:   "skill <user-id>",
	Short: "Estimate a user's skill level from recent engagement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app.Application, _ config.Config, _ *slog.Logger) error {
			level, err := a.Roles.EstimateSkillLevel(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"userId": args[0], "skillLevel": string(level)})
		})
	},
}

func init() {
	rolesUpdateAllCmd.Flags().Int("window", 0, "engagement window in days (0 uses roles.windowDays)")

	rolesCmd.AddCommand(rolesUpdateCmd, rolesUpdateAllCmd, rolesSkillCmd)
	rootCmd.AddCommand(rolesCmd)
}
