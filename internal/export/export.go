// Package export writes lead CSVs and records what was exported, so the
// daily-target engine can tell remaining quota from work already done.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/features"
	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

const businessExportJob = "export_businesses"

// csvHeader is the fixed business-lead column set.
var csvHeader = []string{
	"business_name", "category", "address", "city", "country",
	"emails", "business_emails", "free_emails", "phones",
	"domains", "verified_unhosted_domains", "unregistered_domains",
	"registered_domains", "unknown_domains", "hosted_domains",
	"parked_domains", "lead_score", "source", "source_id",
}

// Options parameterize one export pass.
type Options struct {
	Platform             string
	MinScore             float64
	Limit                int
	MaxWritten           int
	RequireContact       bool
	RequireUnhosted      bool
	RequireQualification bool
	ExcludeHostedDomains bool
	OnlyUnexported       bool
}

// Result summarizes one export pass.
type Result struct {
	Path    string `json:"path,omitempty"`
	Written int    `json:"written"`
}

// Exporter selects eligible leads and writes them out.
type Exporter struct {
	store  store.Store
	loader *features.Loader
	dir    string
}

// New builds an exporter writing CSVs under dir.
func New(st store.Store, dir string) *Exporter {
	return &Exporter{
		store:  st,
		loader: features.NewLoader(st),
		dir:    dir,
	}
}

// Export writes one CSV for the platform. Zero eligible rows produce no
// file. Export rows are recorded before the rename so a crash leaves a
// stale temp file rather than unrecorded exports.
func (e *Exporter) Export(ctx context.Context, opts Options) (*Result, error) {
	if opts.Platform == "" {
		return nil, eris.New("export: platform is required")
	}

	run, err := e.store.StartJob(ctx, businessExportJob, opts.Platform)
	if err != nil {
		return nil, err
	}

	result, err := e.export(ctx, opts)
	if err != nil {
		if failErr := e.store.FailJob(ctx, run, err.Error(), nil); failErr != nil {
			zap.L().Error("failed to record job failure", zap.Error(failErr))
		}
		return nil, err
	}

	details := map[string]any{"platform": opts.Platform, "path": result.Path}
	if err := e.store.CompleteJob(ctx, run, result.Written, details); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Exporter) export(ctx context.Context, opts Options) (*Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	if opts.MaxWritten > 0 && opts.MaxWritten < limit {
		limit = opts.MaxWritten
	}

	minScore := opts.MinScore
	leads, err := e.store.ListLeads(ctx, store.LeadFilter{
		MinScore:             &minScore,
		Platform:             opts.Platform,
		RequireContact:       opts.RequireContact,
		RequireUnhosted:      opts.RequireUnhosted,
		RequireQualification: opts.RequireQualification,
		ExcludeHostedDomains: opts.ExcludeHostedDomains,
		OnlyUnexported:       opts.OnlyUnexported,
		Limit:                limit,
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

	rows := make([][]string, 0, len(leads))
	for _, lead := range leads {
		bundle := bundles[lead.Business.ID]
		if bundle == nil {
			bundle = &model.FeatureBundle{DomainStatusCounts: map[string]int{}}
		}
		rows = append(rows, leadRow(lead, bundle))
	}

	path := filepath.Join(e.dir, fmt.Sprintf("business_leads_%s_%s.csv", opts.Platform, time.Now().UTC().Format("20060102_150405")))
	if err := writeCSVFile(path, csvHeader, rows); err != nil {
		return nil, err
	}

	if err := e.store.RecordExports(ctx, opts.Platform, ids); err != nil {
		return nil, err
	}

	zap.L().Info("exported business leads",
		zap.String("platform", opts.Platform),
		zap.String("path", path),
		zap.Int("written", len(rows)))
	return &Result{Path: path, Written: len(rows)}, nil
}

// writeCSVFile writes rows atomically: temp file in the same directory,
// then rename over the target.
func writeCSVFile(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.csv")
	if err != nil {
		return eris.Wrap(err, "export: create temp file")
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return eris.Wrap(err, "export: write header")
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return eris.Wrap(err, "export: write row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return eris.Wrap(err, "export: flush csv")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "export: close temp file")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "export: rename into place")
	}
	return nil
}

func leadRow(lead store.BusinessWithCity, bundle *model.FeatureBundle) []string {
	b := lead.Business
	score := ""
	if b.LeadScore != nil {
		score = fmt.Sprintf("%.1f", *b.LeadScore)
	}
	return []string{
		b.Name,
		b.Category,
		b.Address,
		lead.CityName,
		lead.Country,
		multiValue(bundle.Emails),
		multiValue(bundle.BusinessEmails),
		multiValue(bundle.FreeEmails),
		multiValue(bundle.Phones),
		multiValue(bundle.Domains),
		multiValue(bundle.VerifiedUnhostedDomains),
		multiValue(bundle.UnregisteredDomains),
		multiValue(bundle.RegisteredDomains),
		multiValue(bundle.UnknownDomains),
		multiValue(bundle.HostedDomains),
		multiValue(bundle.ParkedDomains),
		score,
		b.Source,
		b.SourceID,
	}
}

// multiValue joins already-sorted bundle lists with semicolons.
func multiValue(values []string) string {
	return strings.Join(values, ";")
}

// PlatformForDay names a daily export platform: <prefix>_<YYYYMMDD>.
func PlatformForDay(prefix string, day time.Time) string {
	return fmt.Sprintf("%s_%s", prefix, day.UTC().Format("20060102"))
}
