package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scoreLimit int
	scoreForce bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score unscored businesses",
	Long:  "Computes lead scores for businesses with a cleared scored_at. --force rescoring ignores the scored_at filter.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		scored, err := env.Scorer.RunBatch(ctx, scoreLimit, scoreForce)
		if err != nil {
			return err
		}
		zap.L().Info("scoring complete", zap.Int("scored", scored))
		return nil
	},
}

func init() {
	scoreCmd.Flags().IntVar(&scoreLimit, "limit", 500, "max businesses per batch")
	scoreCmd.Flags().BoolVar(&scoreForce, "force", false, "rescore already-scored businesses")
	rootCmd.AddCommand(scoreCmd)
}
