package enrich

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
	"github.com/sells-group/domain-lead-pipeline/internal/verify"
	"github.com/sells-group/domain-lead-pipeline/pkg/foursquare"
)

const (
	foursquareEnrichJob = "foursquare_enrich"
	foursquareRawKey    = "foursquare"
)

// FoursquareEnricher backfills phone numbers from the Foursquare Places
// API onto businesses that have never been looked up.
type FoursquareEnricher struct {
	store   store.Store
	client  foursquare.Client
	limiter *rate.Limiter
}

// NewFoursquareEnricher builds a Foursquare enrichment pass.
func NewFoursquareEnricher(st store.Store, client foursquare.Client) *FoursquareEnricher {
	return &FoursquareEnricher{
		store:   st,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(enrichPace), 1),
	}
}

// Run enriches up to limit businesses in the priority bucket.
func (e *FoursquareEnricher) Run(ctx context.Context, priority store.EnrichPriority, limit int) (*Result, error) {
	run, err := e.store.StartJob(ctx, foursquareEnrichJob, string(priority))
	if err != nil {
		return nil, err
	}

	result, err := e.run(ctx, priority, limit)
	if err != nil {
		if failErr := e.store.FailJob(ctx, run, err.Error(), nil); failErr != nil {
			zap.L().Error("failed to record job failure", zap.Error(failErr))
		}
		return nil, err
	}

	details := map[string]any{
		"priority":     string(priority),
		"enriched":     result.Enriched,
		"phones_added": result.PhonesAdded,
	}
	if err := e.store.CompleteJob(ctx, run, result.Processed, details); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *FoursquareEnricher) run(ctx context.Context, priority store.EnrichPriority, limit int) (*Result, error) {
	candidates, err := e.store.ListEnrichmentCandidates(ctx, foursquareRawKey, priority, limit)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		if err := e.limiter.Wait(ctx); err != nil {
			break
		}

		biz := candidate.Business
		req := foursquare.SearchRequest{
			Query: enrichQuery(&biz, candidate.CityName),
			Limit: 1,
		}
		if biz.Lat != nil && biz.Lon != nil {
			req.Lat = biz.Lat
			req.Lon = biz.Lon
			req.Radius = biasRadiusMeters
		}

		resp, err := e.client.Search(ctx, req)
		if err != nil {
			zap.L().Warn("foursquare enrichment lookup failed",
				zap.String("business", biz.Name), zap.Error(err))
			result.Processed++
			continue
		}

		patch := map[string]any{"matched": false}
		var phone string
		if len(resp.Results) > 0 && verify.PlaceNameMatches(biz.Name, resp.Results[0].Name) {
			place := resp.Results[0]
			patch = map[string]any{
				"matched": true,
				"fsq_id":  place.FsqID,
				"name":    place.Name,
				"phone":   place.Tel,
				"website": place.Website,
			}
			phone = strings.TrimSpace(place.Tel)
			result.Enriched++
		}

		if err := e.store.MergeBusinessRaw(ctx, biz.ID, map[string]any{foursquareRawKey: patch}); err != nil {
			return nil, err
		}

		if phone != "" {
			inserted, err := e.store.AddContact(ctx, &model.BusinessContact{
				BusinessID: biz.ID,
				Type:       model.ContactPhone,
				Value:      phone,
				Source:     foursquareRawKey,
			})
			if err != nil {
				return nil, err
			}
			if inserted {
				result.PhonesAdded++
			}
		}

		result.Processed++
	}
	return result, nil
}
