package scorer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/features"
	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
	"github.com/sells-group/domain-lead-pipeline/internal/verify"
)

const jobName = "score_business_leads"

// Runner scores batches of businesses and persists the results.
type Runner struct {
	store    store.Store
	loader   *features.Loader
	scorer   *Scorer
	batchMax int
}

// NewRunner builds a scoring batch runner.
func NewRunner(st store.Store, chains *Chains) *Runner {
	return &Runner{
		store:    st,
		loader:   features.NewLoader(st),
		scorer:   New(chains),
		batchMax: 500,
	}
}

// RunBatch scores up to limit businesses whose scored_at is stale.
// forceRescore ignores staleness and rescores the oldest rows.
func (r *Runner) RunBatch(ctx context.Context, limit int, forceRescore bool) (int, error) {
	run, err := r.store.StartJob(ctx, jobName, "")
	if err != nil {
		return 0, err
	}

	processed, err := r.runBatch(ctx, limit, forceRescore)
	if err != nil {
		if failErr := r.store.FailJob(ctx, run, err.Error(), nil); failErr != nil {
			zap.L().Error("failed to record job failure", zap.Error(failErr))
		}
		return processed, err
	}

	details := map[string]any{"force_rescore": forceRescore}
	if err := r.store.CompleteJob(ctx, run, processed, details); err != nil {
		return processed, err
	}
	return processed, nil
}

func (r *Runner) runBatch(ctx context.Context, limit int, forceRescore bool) (int, error) {
	if limit <= 0 || limit > r.batchMax {
		limit = r.batchMax
	}

	businesses, err := r.store.ListScoreCandidates(ctx, limit, forceRescore)
	if err != nil {
		return 0, err
	}
	if len(businesses) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, len(businesses))
	for i := range businesses {
		ids[i] = businesses[i].ID
	}

	bundles, err := r.loader.Load(ctx, ids)
	if err != nil {
		return 0, err
	}

	chainSet := func(name string) bool {
		return r.scorer.chains.Contains(ctx, name)
	}

	processed := 0
	for i := range businesses {
		b := &businesses[i]
		bundle := bundles[b.ID]
		if bundle == nil {
			bundle = &model.FeatureBundle{DomainStatusCounts: map[string]int{}}
		}

		confidence, weight := verify.ConfidenceFor(b.Raw)
		isChain := r.scorer.IsChain(b, chainSet)
		score, reasons := Score(b, bundle, confidence, isChain)
		reasons["confidence_weight"] = weight

		if err := r.store.UpdateBusinessScore(ctx, b.ID, score, reasons); err != nil {
			return processed, err
		}
		processed++
	}

	zap.L().Info("scored businesses", zap.Int("processed", processed))
	return processed, nil
}
