package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/scorer"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

const contactExportJob = "export_contacts"

var contactsHeader = []string{
	"business_name", "category", "city", "country",
	"email", "contact_source", "contact_score", "lead_score",
}

// ContactOptions parameterize one contacts export pass.
type ContactOptions struct {
	Platform string
	MinScore float64
	Limit    int
}

// ExportContacts writes a CSV of scored email contacts for businesses not
// yet exported to the platform. Contact scores are computed here rather
// than persisted; a business counts as exported once any of its contacts
// is written.
func (e *Exporter) ExportContacts(ctx context.Context, opts ContactOptions) (*Result, error) {
	if opts.Platform == "" {
		return nil, eris.New("export: platform is required")
	}

	run, err := e.store.StartJob(ctx, contactExportJob, opts.Platform)
	if err != nil {
		return nil, err
	}

	result, err := e.exportContacts(ctx, opts)
	if err != nil {
		if failErr := e.store.FailJob(ctx, run, err.Error(), nil); failErr != nil {
			zap.L().Error("failed to record job failure", zap.Error(failErr))
		}
		return nil, err
	}

	details := map[string]any{"platform": opts.Platform, "min_score": opts.MinScore}
	if err := e.store.CompleteJob(ctx, run, result.Written, details); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Exporter) exportContacts(ctx context.Context, opts ContactOptions) (*Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}

	leads, err := e.store.ListLeads(ctx, store.LeadFilter{
		Platform:       opts.Platform,
		RequireContact: true,
		Limit:          limit,
	})
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return &Result{}, nil
	}

	ids := make([]uuid.UUID, len(leads))
	for i := range leads {
		ids[i] = leads[i].Business.ID
	}
	bundles, err := e.loader.Load(ctx, ids)
	if err != nil {
		return nil, err
	}
	contacts, err := e.store.ContactsForBusinesses(ctx, ids)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	var exported []uuid.UUID
	for _, lead := range leads {
		b := lead.Business
		bundle := bundles[b.ID]
		if bundle == nil {
			bundle = &model.FeatureBundle{DomainStatusCounts: map[string]int{}}
		}

		wrote := false
		for _, c := range contacts[b.ID] {
			if c.Type != model.ContactEmail {
				continue
			}
			score, _ := scorer.ScoreContact(&c, &b, bundle)
			if score < opts.MinScore {
				continue
			}
			rows = append(rows, contactRow(lead, &c, score))
			wrote = true
		}
		if wrote {
			exported = append(exported, b.ID)
		}
	}
	if len(rows) == 0 {
		return &Result{}, nil
	}

	path := filepath.Join(e.dir, fmt.Sprintf("contacts_%s_%s.csv", opts.Platform, time.Now().UTC().Format("20060102_150405")))
	if err := writeCSVFile(path, contactsHeader, rows); err != nil {
		return nil, err
	}

	if err := e.store.RecordExports(ctx, opts.Platform, exported); err != nil {
		return nil, err
	}

	zap.L().Info("exported contacts",
		zap.String("platform", opts.Platform),
		zap.String("path", path),
		zap.Int("written", len(rows)),
		zap.Int("businesses", len(exported)))
	return &Result{Path: path, Written: len(rows)}, nil
}

func contactRow(lead store.BusinessWithCity, c *model.BusinessContact, score float64) []string {
	b := lead.Business
	leadScore := ""
	if b.LeadScore != nil {
		leadScore = fmt.Sprintf("%.1f", *b.LeadScore)
	}
	return []string{
		b.Name,
		b.Category,
		lead.CityName,
		lead.Country,
		strings.ToLower(c.Value),
		c.Source,
		fmt.Sprintf("%.1f", score),
		leadScore,
	}
}
