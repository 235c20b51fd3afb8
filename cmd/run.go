package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full pipeline cycle",
	Long:  "Executes import, sync, classify, enrich, score, verify and export once, then exits.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Controller.RunNow(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("pipeline cycle complete",
			zap.Int("imported", result.Imported),
			zap.Int("classified", result.Classified),
			zap.Int("scored", result.Scored),
			zap.Int("businesses_exported", result.BusinessesExported),
			zap.Int("contacts_exported", result.ContactsExported),
			zap.Strings("errors", result.Errors))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
