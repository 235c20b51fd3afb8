package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/export"
)

var (
	exportPlatform        string
	exportMinScore        float64
	exportLimit           int
	exportRequireContact  bool
	exportRequireUnhosted bool
	exportRequireQual     bool
	exportContacts        bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads to CSV",
	Long:  "Writes eligible businesses (or, with --contacts, scored contact rows) to a CSV under the export directory and records each business against the platform.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var result *export.Result
		if exportContacts {
			result, err = env.Exporter.ExportContacts(ctx, export.ContactOptions{
				Platform: exportPlatform,
				MinScore: exportMinScore,
				Limit:    exportLimit,
			})
		} else {
			result, err = env.Exporter.Export(ctx, export.Options{
				Platform:             exportPlatform,
				MinScore:             exportMinScore,
				Limit:                exportLimit,
				RequireContact:       exportRequireContact,
				RequireUnhosted:      exportRequireUnhosted,
				RequireQualification: exportRequireQual,
			})
		}
		if err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.String("platform", exportPlatform),
			zap.Int("written", result.Written),
			zap.String("path", result.Path))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPlatform, "platform", "", "export platform name (required)")
	exportCmd.Flags().Float64Var(&exportMinScore, "min-score", 40, "minimum lead score")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "max rows (0 = unlimited)")
	exportCmd.Flags().BoolVar(&exportRequireContact, "require-contact", true, "only businesses with a contact")
	exportCmd.Flags().BoolVar(&exportRequireUnhosted, "require-unhosted", false, "only businesses with a verified-unhosted domain")
	exportCmd.Flags().BoolVar(&exportRequireQual, "require-qualification", false, "only businesses with a qualified domain status")
	exportCmd.Flags().BoolVar(&exportContacts, "contacts", false, "export contact rows instead of businesses")
	_ = exportCmd.MarkFlagRequired("platform")
	rootCmd.AddCommand(exportCmd)
}
