package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncMaxBatches int

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Extract and link domains from imported businesses",
	Long:  "Walks businesses past the durable cursor, normalizes their website hosts into apex domains and upserts domain links.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Syncer.Run(ctx, syncMaxBatches)
		if err != nil {
			return err
		}
		zap.L().Info("sync complete",
			zap.Int("businesses", result.Businesses),
			zap.Int64("domains_inserted", result.DomainsInserted),
			zap.Int64("links_inserted", result.LinksInserted))
		return nil
	},
}

func init() {
	syncCmd.Flags().IntVar(&syncMaxBatches, "max-batches", 0, "stop after N batches (0 = run to the end)")
	rootCmd.AddCommand(syncCmd)
}
