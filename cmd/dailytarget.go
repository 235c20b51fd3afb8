package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dailyTargetCmd = &cobra.Command{
	Use:   "daily-target",
	Short: "Top up today's daily lead export",
	Long:  "Exports fresh leads into today's per-day platform until the configured target is met, recycling previously exported leads when allowed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Controller.RunDailyTargetNow(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("daily target complete",
			zap.String("platform", result.Platform),
			zap.Int("target", result.Target),
			zap.Int("already_exported", result.AlreadyExported),
			zap.Int("fresh", result.FreshWritten),
			zap.Int("recycled", result.RecycledWritten),
			zap.Int("remaining", result.Remaining))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dailyTargetCmd)
}
