package verify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/domain-lead-pipeline/pkg/places"
)

const (
	placesBiasRadiusMeters = 2000
	placesPace             = 150 * time.Millisecond
)

// GooglePlacesVerifier looks the business up in Google Places and trusts
// its website field when the returned place is the same business.
type GooglePlacesVerifier struct {
	client  places.Client
	limiter *rate.Limiter
}

// NewGooglePlacesVerifier builds the Places API verifier.
func NewGooglePlacesVerifier(client places.Client) *GooglePlacesVerifier {
	return &GooglePlacesVerifier{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(placesPace), 1),
	}
}

func (v *GooglePlacesVerifier) Source() string { return "google_places" }

func (v *GooglePlacesVerifier) Verify(ctx context.Context, in Input) (*Outcome, error) {
	waitLimiter(ctx, v.limiter)

	req := places.SearchRequest{
		TextQuery:      placeQuery(in),
		MaxResultCount: 1,
	}
	if in.Business.Lat != nil && in.Business.Lon != nil {
		req.LocationBias = &places.LocationBias{
			Circle: places.Circle{
				Center: places.LatLng{Latitude: *in.Business.Lat, Longitude: *in.Business.Lon},
				Radius: placesBiasRadiusMeters,
			},
		}
	}

	resp, err := v.client.SearchText(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Places) == 0 {
		return &Outcome{Verdict: VerdictNoMatch}, nil
	}

	place := resp.Places[0]
	if !placeNameMatches(in.Business.Name, place.DisplayName.Text) {
		return &Outcome{
			Verdict: VerdictPoorMatch,
			Extras:  map[string]any{"place_name": place.DisplayName.Text},
		}, nil
	}

	extras := map[string]any{"place_name": place.DisplayName.Text}
	if place.NationalPhoneNumber != "" {
		extras["phone"] = place.NationalPhoneNumber
	}
	if place.WebsiteURI == "" {
		return &Outcome{Verdict: VerdictNoWebsite, Extras: extras}, nil
	}
	host := domainOf(place.WebsiteURI)
	if host == "" || isDirectoryDomain(host) {
		return &Outcome{Verdict: VerdictNoWebsite, Extras: extras}, nil
	}
	return &Outcome{Verdict: VerdictHasWebsite, WebsiteURL: place.WebsiteURI, Extras: extras}, nil
}

func placeQuery(in Input) string {
	if in.City != "" {
		return fmt.Sprintf("%s %s", in.Business.Name, in.City)
	}
	return in.Business.Name
}
