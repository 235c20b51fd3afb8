package main

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verifyLimit    int
	verifyMinScore float64
)

var verifyCmd = &cobra.Command{
	Use:   "verify <source>",
	Short: "Run one website-verification batch for a source",
	Long:  "Selects scored no-website businesses unseen by the source and applies its verdicts. Sources include domain_guess, searxng, llm, ddg, google_search, google_places and foursquare.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		source := args[0]
		v, ok := env.verifierBySource(source)
		if !ok {
			return eris.Errorf("unknown or unconfigured source %q (have: %s)",
				source, strings.Join(env.verifierSources(), ", "))
		}

		result, err := env.Verify.RunBatch(ctx, v, verifyMinScore, verifyLimit)
		if err != nil {
			return err
		}
		zap.L().Info("verification batch complete",
			zap.String("source", source),
			zap.Int("processed", result.Processed),
			zap.Int("websites_found", result.WebsitesFound),
			zap.Bool("aborted", result.Aborted),
			zap.Any("verdicts", result.Verdicts))
		return nil
	},
}

func init() {
	verifyCmd.Flags().IntVar(&verifyLimit, "limit", 25, "max businesses per batch")
	verifyCmd.Flags().Float64Var(&verifyMinScore, "min-score", 30, "minimum lead score for candidates")
	rootCmd.AddCommand(verifyCmd)
}
