package verify

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/domain-lead-pipeline/pkg/foursquare"
)

const (
	foursquareRadiusMeters = 2000
	foursquarePace         = 150 * time.Millisecond
)

// FoursquareVerifier checks the business against Foursquare Places.
type FoursquareVerifier struct {
	client  foursquare.Client
	limiter *rate.Limiter
}

// NewFoursquareVerifier builds the Foursquare verifier.
func NewFoursquareVerifier(client foursquare.Client) *FoursquareVerifier {
	return &FoursquareVerifier{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(foursquarePace), 1),
	}
}

func (v *FoursquareVerifier) Source() string { return "foursquare" }

func (v *FoursquareVerifier) Verify(ctx context.Context, in Input) (*Outcome, error) {
	waitLimiter(ctx, v.limiter)

	req := foursquare.SearchRequest{
		Query: placeQuery(in),
		Limit: 1,
	}
	if in.Business.Lat != nil && in.Business.Lon != nil {
		req.Lat = in.Business.Lat
		req.Lon = in.Business.Lon
		req.Radius = foursquareRadiusMeters
	}

	resp, err := v.client.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return &Outcome{Verdict: VerdictNoMatch}, nil
	}

	place := resp.Results[0]
	if !placeNameMatches(in.Business.Name, place.Name) {
		return &Outcome{
			Verdict: VerdictPoorMatch,
			Extras:  map[string]any{"place_name": place.Name},
		}, nil
	}

	extras := map[string]any{"place_name": place.Name}
	if place.Tel != "" {
		extras["phone"] = place.Tel
	}
	if place.Email != "" {
		extras["email"] = place.Email
	}
	if place.Website == "" {
		return &Outcome{Verdict: VerdictNoWebsite, Extras: extras}, nil
	}
	host := domainOf(place.Website)
	if host == "" || isDirectoryDomain(host) {
		return &Outcome{Verdict: VerdictNoWebsite, Extras: extras}, nil
	}
	return &Outcome{Verdict: VerdictHasWebsite, WebsiteURL: place.Website, Extras: extras}, nil
}
