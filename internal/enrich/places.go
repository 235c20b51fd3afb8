package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
	"github.com/sells-group/domain-lead-pipeline/internal/verify"
	"github.com/sells-group/domain-lead-pipeline/pkg/places"
)

const (
	placesEnrichJob = "google_places_enrich"
	placesRawKey    = "google_places"

	// enrichPace is the fixed inter-request delay against the Places APIs.
	enrichPace       = 150 * time.Millisecond
	biasRadiusMeters = 2000
)

// Result summarizes one per-API enrichment batch.
type Result struct {
	Processed   int `json:"processed"`
	Enriched    int `json:"enriched"`
	PhonesAdded int `json:"phones_added"`
}

// PlacesEnricher backfills phone numbers (and place metadata) from the
// Google Places API onto businesses that have never been looked up.
type PlacesEnricher struct {
	store   store.Store
	client  places.Client
	limiter *rate.Limiter
}

// NewPlacesEnricher builds a Places enrichment pass.
func NewPlacesEnricher(st store.Store, client places.Client) *PlacesEnricher {
	return &PlacesEnricher{
		store:   st,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(enrichPace), 1),
	}
}

// Run enriches up to limit businesses in the priority bucket. Every
// candidate gets the raw key stamped, matched or not, so a batch never
// re-fetches the same business.
func (e *PlacesEnricher) Run(ctx context.Context, priority store.EnrichPriority, limit int) (*Result, error) {
	run, err := e.store.StartJob(ctx, placesEnrichJob, string(priority))
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

func (e *PlacesEnricher) run(ctx context.Context, priority store.EnrichPriority, limit int) (*Result, error) {
	candidates, err := e.store.ListEnrichmentCandidates(ctx, placesRawKey, priority, limit)
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
		req := places.SearchRequest{
			TextQuery:      enrichQuery(&biz, candidate.CityName),
			MaxResultCount: 1,
		}
		if biz.Lat != nil && biz.Lon != nil {
			req.LocationBias = &places.LocationBias{
				Circle: places.Circle{
					Center: places.LatLng{Latitude: *biz.Lat, Longitude: *biz.Lon},
					Radius: biasRadiusMeters,
				},
			}
		}

		resp, err := e.client.SearchText(ctx, req)
		if err != nil {
			zap.L().Warn("places enrichment lookup failed",
				zap.String("business", biz.Name), zap.Error(err))
			result.Processed++
			continue
		}

		patch := map[string]any{"matched": false}
		var phone string
		if len(resp.Places) > 0 && verify.PlaceNameMatches(biz.Name, resp.Places[0].DisplayName.Text) {
			place := resp.Places[0]
			patch = map[string]any{
				"matched": true,
				"name":    place.DisplayName.Text,
				"phone":   place.NationalPhoneNumber,
				"website": place.WebsiteURI,
				"address": place.FormattedAddress,
			}
			phone = strings.TrimSpace(place.NationalPhoneNumber)
			result.Enriched++
		}

		if err := e.store.MergeBusinessRaw(ctx, biz.ID, map[string]any{placesRawKey: patch}); err != nil {
			return nil, err
		}

		if phone != "" {
			inserted, err := e.store.AddContact(ctx, &model.BusinessContact{
				BusinessID: biz.ID,
				Type:       model.ContactPhone,
				Value:      phone,
				Source:     placesRawKey,
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

// enrichQuery builds the text query from name plus whatever locality
// detail exists.
func enrichQuery(b *model.Business, city string) string {
	switch {
	case b.Address != "":
		return fmt.Sprintf("%s %s", b.Name, b.Address)
	case city != "":
		return fmt.Sprintf("%s %s", b.Name, city)
	default:
		return b.Name
	}
}
