package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

var (
	jobsName  string
	jobsLimit int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recent job runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		runs, err := env.Store.ListJobRuns(ctx, store.JobFilter{
			JobName: jobsName,
			Limit:   jobsLimit,
		})
		if err != nil {
			return err
		}

		for _, run := range runs {
			took := "-"
			if run.FinishedAt != nil {
				took = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
			}
			line := fmt.Sprintf("%s  %-28s %-10s processed=%-6d took=%s",
				run.StartedAt.Format(time.RFC3339), run.JobName, run.Status, run.ProcessedCount, took)
			if run.Error != "" {
				line += "  error=" + run.Error
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	jobsCmd.Flags().StringVar(&jobsName, "job", "", "filter by job name")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 20, "max runs to list")
	rootCmd.AddCommand(jobsCmd)
}
