package automation

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/classifier"
	"github.com/sells-group/domain-lead-pipeline/internal/config"
	"github.com/sells-group/domain-lead-pipeline/internal/enrich"
	"github.com/sells-group/domain-lead-pipeline/internal/export"
	"github.com/sells-group/domain-lead-pipeline/internal/osm"
	"github.com/sells-group/domain-lead-pipeline/internal/scorer"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
	syncer "github.com/sells-group/domain-lead-pipeline/internal/sync"
	"github.com/sells-group/domain-lead-pipeline/internal/verify"
)

// CycleRunner executes pipeline work on behalf of the controller. The
// controller only sequences and locks; all pipeline knowledge lives here.
type CycleRunner interface {
	RunCycle(ctx context.Context, s Settings) *CycleResult
	RunDailyTarget(ctx context.Context, s Settings) (*export.DailyTargetResult, error)
	RunVerificationCycle(ctx context.Context, s Settings) (int, error)
}

// CycleResult aggregates one full pipeline cycle. Phase failures are
// collected, never fatal: a blocked verifier must not stop the export.
type CycleResult struct {
	Imported           int            `json:"imported"`
	Synced             *syncer.Result `json:"synced,omitempty"`
	Classified         int            `json:"classified"`
	RoleEnriched       int            `json:"role_enriched"`
	PlacesEnriched     int            `json:"places_enriched"`
	FoursquareEnriched int            `json:"foursquare_enriched"`
	ContactsExported   int            `json:"contacts_exported"`
	Scored             int            `json:"scored"`
	Verified           map[string]int `json:"verified"`
	Rescored           int            `json:"rescored"`
	BusinessesExported int            `json:"businesses_exported"`
	ExportPath         string         `json:"export_path,omitempty"`
	Errors             []string       `json:"errors,omitempty"`
}

func (r *CycleResult) fail(phase string, err error) {
	zap.L().Error("pipeline phase failed", zap.String("phase", phase), zap.Error(err))
	r.Errors = append(r.Errors, phase+": "+eris.Cause(err).Error())
}

// Runner wires every pipeline phase together.
type Runner struct {
	store      store.Store
	syncer     *syncer.Syncer
	classifier *classifier.Runner
	role       *enrich.RoleEnricher
	places     *enrich.PlacesEnricher
	foursquare *enrich.FoursquareEnricher
	scorer     *scorer.Runner
	exporter   *export.Exporter
	verify     *verify.Runner

	// Verifier layers in pipeline order: the free offline/search sources
	// first, the metered per-API sources last.
	verifiers    []verify.Verifier
	apiVerifiers []verify.Verifier

	importer    *osm.Importer
	overpassCfg config.OverpassConfig
}

// RunnerDeps carries the collaborators for NewRunner. Nil optional
// members (enrichers, importer, verifiers) skip their phase.
type RunnerDeps struct {
	Store        store.Store
	Syncer       *syncer.Syncer
	Classifier   *classifier.Runner
	Role         *enrich.RoleEnricher
	Places       *enrich.PlacesEnricher
	Foursquare   *enrich.FoursquareEnricher
	Scorer       *scorer.Runner
	Exporter     *export.Exporter
	Verify       *verify.Runner
	Verifiers    []verify.Verifier
	APIVerifiers []verify.Verifier
	Importer     *osm.Importer
	OverpassCfg  config.OverpassConfig
}

// NewRunner builds the pipeline cycle runner.
func NewRunner(deps RunnerDeps) *Runner {
	return &Runner{
		store:        deps.Store,
		syncer:       deps.Syncer,
		classifier:   deps.Classifier,
		role:         deps.Role,
		places:       deps.Places,
		foursquare:   deps.Foursquare,
		scorer:       deps.Scorer,
		exporter:     deps.Exporter,
		verify:       deps.Verify,
		verifiers:    deps.Verifiers,
		apiVerifiers: deps.APIVerifiers,
		importer:     deps.Importer,
		overpassCfg:  deps.OverpassCfg,
	}
}

// RunCycle executes one full pipeline pass: import, sync, classify,
// enrich, export contacts, score, verify, rescore, export businesses.
// Each phase is isolated; the cycle always runs to the end.
func (r *Runner) RunCycle(ctx context.Context, s Settings) *CycleResult {
	result := &CycleResult{Verified: map[string]int{}}

	r.runImport(ctx, s, result)

	if done(ctx) {
		return result
	}
	if synced, err := r.syncer.Run(ctx, s.SyncMaxBatches); err != nil {
		result.fail("sync", err)
	} else {
		result.Synced = synced
	}

	if done(ctx) {
		return result
	}
	if batch, err := r.classifier.RunBatch(ctx, s.ClassifyDomainStatuses(), s.ClassifyLimit); err != nil {
		result.fail("classify", err)
	} else {
		result.Classified = batch.Processed
	}

	if done(ctx) {
		return result
	}
	if r.role != nil {
		if role, err := r.role.Run(ctx, s.EnrichLimit); err != nil {
			result.fail("role_emails", err)
		} else {
			result.RoleEnriched = role.Processed
		}
	}

	if done(ctx) {
		return result
	}
	if r.places != nil {
		if enriched, err := r.places.Run(ctx, store.PriorityNoContacts, s.EnrichLimit); err != nil {
			result.fail("places_enrich", err)
		} else {
			result.PlacesEnriched = enriched.Enriched
		}
	}
	if r.foursquare != nil {
		if enriched, err := r.foursquare.Run(ctx, store.PriorityNoPhone, s.EnrichLimit); err != nil {
			result.fail("foursquare_enrich", err)
		} else {
			result.FoursquareEnriched = enriched.Enriched
		}
	}

	if done(ctx) {
		return result
	}
	if s.ContactPlatform != "" {
		contacts, err := r.exporter.ExportContacts(ctx, export.ContactOptions{
			Platform: s.ContactPlatform,
			MinScore: s.ContactMinScore,
		})
		if err != nil {
			result.fail("export_contacts", err)
		} else {
			result.ContactsExported = contacts.Written
		}
	}

	if done(ctx) {
		return result
	}
	if scored, err := r.scorer.RunBatch(ctx, s.BusinessScoreLimit, false); err != nil {
		result.fail("score", err)
	} else {
		result.Scored = scored
	}

	verifiedAny := false
	for _, v := range append(append([]verify.Verifier{}, r.verifiers...), r.apiVerifiers...) {
		if done(ctx) {
			return result
		}
		batch, err := r.verify.RunBatch(ctx, v, s.VerifyMinScore, s.VerifyBatchLimit)
		if err != nil {
			result.fail("verify_"+v.Source(), err)
			continue
		}
		result.Verified[v.Source()] = batch.Processed
		if batch.Processed > 0 {
			verifiedAny = true
		}
	}

	if verifiedAny && !done(ctx) {
		if rescored, err := r.scorer.RunBatch(ctx, s.BusinessScoreLimit, false); err != nil {
			result.fail("rescore", err)
		} else {
			result.Rescored = rescored
		}
	}

	if done(ctx) {
		return result
	}
	if s.BusinessPlatform != "" {
		exported, err := r.exporter.Export(ctx, export.Options{
			Platform:             s.BusinessPlatform,
			MinScore:             s.BusinessMinScore,
			RequireContact:       s.BusinessRequireContact,
			RequireUnhosted:      s.BusinessRequireUnhosted,
			RequireQualification: s.BusinessRequireQualification,
		})
		if err != nil {
			result.fail("export_businesses", err)
		} else {
			result.BusinessesExported = exported.Written
			result.ExportPath = exported.Path
		}
	}

	return result
}

func (r *Runner) runImport(ctx context.Context, s Settings, result *CycleResult) {
	if s.Area == "" || r.importer == nil {
		return
	}

	area, categories, err := resolveImport(r.overpassCfg, s.Area, s.Categories)
	if err != nil {
		result.fail("import", err)
		return
	}
	imported, err := r.importer.Run(ctx, area, categories)
	if err != nil {
		result.fail("import", err)
		return
	}
	result.Imported = imported
}

// resolveImport loads the area/category config files and picks the
// requested subset. categoriesArg is "all" or a comma list of keys.
func resolveImport(cfg config.OverpassConfig, areaKey, categoriesArg string) (osm.Area, []osm.Category, error) {
	areas, err := osm.LoadAreas(cfg.AreasFile)
	if err != nil {
		return osm.Area{}, nil, err
	}
	area, ok := areas[areaKey]
	if !ok {
		return osm.Area{}, nil, eris.Errorf("automation: unknown area %q", areaKey)
	}

	all, err := osm.LoadCategories(cfg.CategoriesFile)
	if err != nil {
		return osm.Area{}, nil, err
	}

	if categoriesArg == "" || categoriesArg == "all" {
		out := make([]osm.Category, 0, len(all))
		for _, c := range all {
			out = append(out, c)
		}
		return area, out, nil
	}

	var out []osm.Category
	for _, key := range strings.Split(categoriesArg, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		c, ok := all[key]
		if !ok {
			return osm.Area{}, nil, eris.Errorf("automation: unknown category %q", key)
		}
		out = append(out, c)
	}
	return area, out, nil
}

// RunDailyTarget tops up today's daily platform to the configured count.
func (r *Runner) RunDailyTarget(ctx context.Context, s Settings) (*export.DailyTargetResult, error) {
	return r.exporter.ExportDailyTarget(ctx, export.DailyTargetOptions{
		Prefix:               s.DailyTargetPlatformPrefix,
		Target:               s.DailyTargetCount,
		MinScore:             s.DailyTargetMinScore,
		AllowRecycle:         s.DailyTargetAllowRecycle,
		RequireContact:       s.DailyTargetRequireContact,
		RequireUnhosted:      s.DailyTargetRequireUnhosted,
		RequireQualification: s.DailyTargetRequireQualification,
	})
}

// RunVerificationCycle runs one tight verifier pass and rescores when any
// source produced work. Returns how many businesses were processed so the
// loop can decide between batch pause and idle pause.
func (r *Runner) RunVerificationCycle(ctx context.Context, s Settings) (int, error) {
	total := 0
	for _, v := range append(append([]verify.Verifier{}, r.verifiers...), r.apiVerifiers...) {
		if done(ctx) {
			return total, nil
		}
		batch, err := r.verify.RunBatch(ctx, v, s.VerifyMinScore, s.VerifyBatchLimit)
		if err != nil {
			// One failing source must not stop the loop.
			zap.L().Error("verification cycle source failed",
				zap.String("source", v.Source()), zap.Error(err))
			continue
		}
		total += batch.Processed
	}

	if total > 0 && !done(ctx) {
		if _, err := r.scorer.RunBatch(ctx, s.BusinessScoreLimit, false); err != nil {
			zap.L().Error("verification cycle rescore failed", zap.Error(err))
		}
	}
	return total, nil
}

func done(ctx context.Context) bool {
	return ctx.Err() != nil
}
