package main

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

var (
	classifyStatuses []string
	classifyLimit    int
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify domain web presence",
	Long:  "Claims domains in the given statuses and runs RDAP, DNS, HTTP probes and parking detection to decide each domain's status.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		statuses := parseStatuses(classifyStatuses)
		result, err := env.Classifier.RunBatch(ctx, statuses, classifyLimit)
		if err != nil {
			return err
		}
		zap.L().Info("classification complete",
			zap.Int("processed", result.Processed),
			zap.Int("rescored", result.RescoredCount),
			zap.Any("statuses", result.StatusCounts))
		return nil
	},
}

// parseStatuses maps flag values to domain statuses, dropping blanks.
func parseStatuses(raw []string) []model.DomainStatus {
	var out []model.DomainStatus
	for _, s := range raw {
		if name := strings.TrimSpace(s); name != "" {
			out = append(out, model.DomainStatus(name))
		}
	}
	return out
}

func init() {
	classifyCmd.Flags().StringSliceVar(&classifyStatuses, "statuses",
		[]string{"new"}, "domain statuses to claim")
	classifyCmd.Flags().IntVar(&classifyLimit, "limit", 25, "max domains per batch")
	rootCmd.AddCommand(classifyCmd)
}
