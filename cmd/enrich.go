package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

var (
	enrichLimit    int
	enrichPriority string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <role|places|foursquare>",
	Short: "Run one enrichment pass",
	Long:  "role synthesizes role mailboxes for verified-unhosted domains; places and foursquare backfill phone numbers from their APIs.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		priority := store.EnrichPriority(enrichPriority)
		switch priority {
		case store.PriorityNoContacts, store.PriorityNoPhone, store.PriorityAll:
		default:
			return eris.Errorf("unknown priority %q (want no_contacts, no_phone or all)", enrichPriority)
		}

		switch args[0] {
		case "role":
			result, err := env.Role.Run(ctx, enrichLimit)
			if err != nil {
				return err
			}
			zap.L().Info("role enrichment complete",
				zap.Int("processed", result.Processed),
				zap.Int("contacts_created", result.ContactsCreated))
		case "places":
			if env.Places == nil {
				return eris.New("google places key not configured (DLP_PLACES_KEY)")
			}
			result, err := env.Places.Run(ctx, priority, enrichLimit)
			if err != nil {
				return err
			}
			zap.L().Info("places enrichment complete",
				zap.Int("processed", result.Processed),
				zap.Int("enriched", result.Enriched),
				zap.Int("phones_added", result.PhonesAdded))
		case "foursquare":
			if env.Foursquare == nil {
				return eris.New("foursquare key not configured (DLP_FOURSQUARE_KEY)")
			}
			result, err := env.Foursquare.Run(ctx, priority, enrichLimit)
			if err != nil {
				return err
			}
			zap.L().Info("foursquare enrichment complete",
				zap.Int("processed", result.Processed),
				zap.Int("enriched", result.Enriched),
				zap.Int("phones_added", result.PhonesAdded))
		default:
			return eris.Errorf("unknown enrichment source %q", args[0])
		}
		return nil
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 25, "max rows per pass")
	enrichCmd.Flags().StringVar(&enrichPriority, "priority", "no_contacts",
		"candidate bucket for places/foursquare (no_contacts, no_phone, all)")
	rootCmd.AddCommand(enrichCmd)
}
