package classifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

const jobName = "domain_classify"

// DefaultClaimStatuses are the statuses the batch runner picks up: fresh
// domains plus earlier failures worth another attempt.
var DefaultClaimStatuses = []model.DomainStatus{
	model.StatusNew,
	model.StatusSkipped,
	model.StatusRDAPError,
	model.StatusDNSError,
}

// Runner claims batches of domains, classifies them concurrently and
// writes check rows plus status updates.
type Runner struct {
	store      store.Store
	classifier *Classifier
	workers    int
}

// NewRunner builds a batch runner. workers bounds concurrent probes.
func NewRunner(st store.Store, cl *Classifier, workers int) *Runner {
	if workers <= 0 {
		workers = 5
	}
	return &Runner{store: st, classifier: cl, workers: workers}
}

// BatchResult summarizes one classification batch.
type BatchResult struct {
	Processed     int            `json:"processed"`
	StatusCounts  map[string]int `json:"status_counts"`
	RescoredCount int            `json:"rescored_count"`
}

// RunBatch claims up to limit domains in the given statuses, classifies
// them with bounded concurrency and queues the linked businesses for
// rescoring. The whole batch is recorded as one job run.
func (r *Runner) RunBatch(ctx context.Context, statuses []model.DomainStatus, limit int) (*BatchResult, error) {
	if len(statuses) == 0 {
		statuses = DefaultClaimStatuses
	}

	run, err := r.store.StartJob(ctx, jobName, "")
	if err != nil {
		return nil, err
	}

	result, err := r.runBatch(ctx, statuses, limit)
	if err != nil {
		if failErr := r.store.FailJob(ctx, run, err.Error(), nil); failErr != nil {
			zap.L().Error("failed to record job failure", zap.Error(failErr))
		}
		return nil, err
	}

	details := map[string]any{
		"status_counts": result.StatusCounts,
		"rescored":      result.RescoredCount,
	}
	if err := r.store.CompleteJob(ctx, run, result.Processed, details); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Runner) runBatch(ctx context.Context, statuses []model.DomainStatus, limit int) (*BatchResult, error) {
	domains, err := r.store.ClaimDomainsForCheck(ctx, statuses, limit)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{StatusCounts: map[string]int{}}
	if len(domains) == 0 {
		return result, nil
	}

	var (
		mu      sync.Mutex
		changed []uuid.UUID
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, d := range domains {
		g.Go(func() error {
			check, status := r.classify(gctx, &d)

			if err := r.store.InsertWhoisCheck(gctx, check); err != nil {
				return err
			}
			if err := r.store.UpdateDomainStatus(gctx, d.ID, status); err != nil {
				return err
			}

			mu.Lock()
			result.Processed++
			result.StatusCounts[string(status)]++
			if status != d.Status {
				changed = append(changed, d.ID)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "classifier: batch")
	}

	if len(changed) > 0 {
		businessIDs, err := r.store.BusinessIDsLinkedToDomains(ctx, changed)
		if err != nil {
			return nil, err
		}
		if err := r.store.ResetScoredAt(ctx, businessIDs); err != nil {
			return nil, err
		}
		result.RescoredCount = len(businessIDs)
	}

	return result, nil
}

// classify wraps Classify so one panicking probe marks the domain instead
// of killing the worker pool.
func (r *Runner) classify(ctx context.Context, d *model.Domain) (check *model.WhoisCheck, status model.DomainStatus) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("classifier panic",
				zap.String("domain", d.Domain),
				zap.Any("panic", rec))
			status = model.StatusRDAPError
			check = &model.WhoisCheck{
				DomainID: d.ID,
				Raw:      map[string]any{"diagnostics": map[string]any{"panic": fmt.Sprint(rec)}},
			}
		}
	}()
	return r.classifier.Classify(ctx, d)
}
