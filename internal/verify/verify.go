// Package verify implements the website-verification portfolio: a set of
// independent single-source verifiers sharing one contract, plus the batch
// runner that applies their verdicts.
package verify

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/resilience"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

// Verdict is a verifier's single typed conclusion for one business.
type Verdict string

const (
	VerdictHasWebsite   Verdict = "has_website"
	VerdictNoWebsite    Verdict = "no_website"
	VerdictNoMatch      Verdict = "no_match"
	VerdictPoorMatch    Verdict = "poor_match"
	VerdictNoCandidates Verdict = "no_candidates"
	VerdictNoResults    Verdict = "no_results"
	VerdictNotSure      Verdict = "not_sure"
	VerdictBlocked      Verdict = "blocked"
	VerdictError        Verdict = "error"
)

// Input is everything a verifier may consult for one business.
type Input struct {
	Business model.Business
	City     string
	Country  string
}

// Outcome is the verifier's verdict plus source-specific extras that get
// stamped into the business raw map under "<source>_" keys.
type Outcome struct {
	Verdict    Verdict
	WebsiteURL string
	Extras     map[string]any
}

// Verifier is the shared contract: one source, one verdict per business,
// failures isolated to the business being checked.
type Verifier interface {
	Source() string
	Verify(ctx context.Context, in Input) (*Outcome, error)
}

// Runner selects unverified candidates for a source and applies verdicts.
type Runner struct {
	store store.Store
}

// NewRunner builds a verification batch runner.
func NewRunner(st store.Store) *Runner {
	return &Runner{store: st}
}

// BatchResult summarizes one verifier batch.
type BatchResult struct {
	Processed     int            `json:"processed"`
	WebsitesFound int            `json:"websites_found"`
	Verdicts      map[string]int `json:"verdicts"`
	Aborted       bool           `json:"aborted,omitempty"`
}

// RunBatch verifies up to limit businesses with the given verifier.
// A blocked streak aborts the batch early and stamps the remaining
// businesses blocked so the next cycle skips them until re-eligible.
func (r *Runner) RunBatch(ctx context.Context, v Verifier, minScore float64, limit int) (*BatchResult, error) {
	jobName := "verify_" + v.Source()
	run, err := r.store.StartJob(ctx, jobName, "")
	if err != nil {
		return nil, err
	}

	result, err := r.runBatch(ctx, v, minScore, limit)
	if err != nil {
		if failErr := r.store.FailJob(ctx, run, err.Error(), nil); failErr != nil {
			zap.L().Error("failed to record job failure", zap.Error(failErr))
		}
		return nil, err
	}

	details := map[string]any{
		"verdicts":       result.Verdicts,
		"websites_found": result.WebsitesFound,
		"aborted":        result.Aborted,
	}
	if err := r.store.CompleteJob(ctx, run, result.Processed, details); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Runner) runBatch(ctx context.Context, v Verifier, minScore float64, limit int) (*BatchResult, error) {
	candidates, err := r.store.ListVerifierCandidates(ctx, v.Source(), minScore, limit)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Verdicts: map[string]int{}}
	blocks := resilience.NewBlockTracker(3)

	for i, candidate := range candidates {
		if ctx.Err() != nil {
			return result, nil
		}

		in := Input{
			Business: candidate.Business,
			City:     candidate.CityName,
			Country:  candidate.Country,
		}
		outcome := r.verifyOne(ctx, v, in)

		if outcome.Verdict == VerdictBlocked {
			if blocks.Blocked() {
				// Mark the rest of the batch blocked and bail so the
				// loop can back off.
				for _, rest := range candidates[i:] {
					if err := r.apply(ctx, v.Source(), rest.Business.ID, &Outcome{Verdict: VerdictBlocked}, result); err != nil {
						return nil, err
					}
				}
				result.Aborted = true
				zap.L().Warn("verifier batch aborted after repeated blocks",
					zap.String("source", v.Source()))
				return result, nil
			}
		} else {
			blocks.Success()
		}

		if err := r.apply(ctx, v.Source(), candidate.Business.ID, outcome, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// verifyOne isolates per-business failures into an error verdict.
func (r *Runner) verifyOne(ctx context.Context, v Verifier, in Input) *Outcome {
	outcome, err := v.Verify(ctx, in)
	if err != nil {
		zap.L().Warn("verifier failed for business",
			zap.String("source", v.Source()),
			zap.String("business", in.Business.Name),
			zap.Error(err))
		return &Outcome{
			Verdict: VerdictError,
			Extras:  map[string]any{"error": eris.Cause(err).Error()},
		}
	}
	if outcome == nil {
		return &Outcome{Verdict: VerdictError}
	}
	return outcome
}

// apply stamps the verdict into raw (clearing scored_at via the merge)
// and sets the website when the verifier found one.
func (r *Runner) apply(ctx context.Context, source string, id uuid.UUID, outcome *Outcome, result *BatchResult) error {
	patch := map[string]any{
		source + "_verified": true,
		source + "_result":   string(outcome.Verdict),
	}
	for k, v := range outcome.Extras {
		patch[source+"_"+k] = v
	}

	if outcome.Verdict == VerdictHasWebsite && outcome.WebsiteURL != "" {
		patch[source+"_website"] = outcome.WebsiteURL
		if err := r.store.SetBusinessWebsite(ctx, id, outcome.WebsiteURL); err != nil {
			return err
		}
		result.WebsitesFound++
	}

	if err := r.store.MergeBusinessRaw(ctx, id, patch); err != nil {
		return err
	}

	result.Processed++
	result.Verdicts[string(outcome.Verdict)]++
	return nil
}
