package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/pkg/places"
)

type fakePlaces struct {
	resp *places.SearchResponse
	req  places.SearchRequest
}

func (f *fakePlaces) SearchText(_ context.Context, req places.SearchRequest) (*places.SearchResponse, error) {
	f.req = req
	return f.resp, nil
}

func placesVerifier(resp *places.SearchResponse) (*GooglePlacesVerifier, *fakePlaces) {
	client := &fakePlaces{resp: resp}
	return &GooglePlacesVerifier{client: client}, client
}

func TestGooglePlacesVerifierHasWebsite(t *testing.T) {
	v, client := placesVerifier(&places.SearchResponse{Places: []places.Place{{
		DisplayName:         places.LocalizedText{Text: "Acme Plumbing Ltd"},
		WebsiteURI:          "https://acmeplumbing.ca/",
		NationalPhoneNumber: "(519) 555-0101",
	}}})

	lat, lon := 43.55, -80.25
	in := searxngInput()
	in.Business.Lat, in.Business.Lon = &lat, &lon

	out, err := v.Verify(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, VerdictHasWebsite, out.Verdict)
	assert.Equal(t, "https://acmeplumbing.ca/", out.WebsiteURL)
	assert.Equal(t, "(519) 555-0101", out.Extras["phone"])

	assert.Equal(t, "Acme Plumbing Guelph", client.req.TextQuery)
	assert.Equal(t, 1, client.req.MaxResultCount)
	require.NotNil(t, client.req.LocationBias)
	assert.Equal(t, lat, client.req.LocationBias.Circle.Center.Latitude)
	assert.Equal(t, float64(placesBiasRadiusMeters), client.req.LocationBias.Circle.Radius)
}

func TestGooglePlacesVerifierPoorMatch(t *testing.T) {
	v, _ := placesVerifier(&places.SearchResponse{Places: []places.Place{{
		DisplayName: places.LocalizedText{Text: "Beta Electric"},
		WebsiteURI:  "https://betaelectric.ca/",
	}}})

	out, err := v.Verify(context.Background(), searxngInput())
	require.NoError(t, err)
	assert.Equal(t, VerdictPoorMatch, out.Verdict)
	assert.Empty(t, out.WebsiteURL)
}

func TestGooglePlacesVerifierNoWebsite(t *testing.T) {
	v, _ := placesVerifier(&places.SearchResponse{Places: []places.Place{{
		DisplayName: places.LocalizedText{Text: "Acme Plumbing"},
	}}})

	out, err := v.Verify(context.Background(), searxngInput())
	require.NoError(t, err)
	assert.Equal(t, VerdictNoWebsite, out.Verdict)
}

func TestGooglePlacesVerifierDirectoryWebsiteIgnored(t *testing.T) {
	v, _ := placesVerifier(&places.SearchResponse{Places: []places.Place{{
		DisplayName: places.LocalizedText{Text: "Acme Plumbing"},
		WebsiteURI:  "https://www.facebook.com/acmeplumbing",
	}}})

	out, err := v.Verify(context.Background(), searxngInput())
	require.NoError(t, err)
	assert.Equal(t, VerdictNoWebsite, out.Verdict)
}

func TestGooglePlacesVerifierNoMatch(t *testing.T) {
	v, _ := placesVerifier(&places.SearchResponse{})
	out, err := v.Verify(context.Background(), Input{Business: model.Business{Name: "Acme Plumbing"}})
	require.NoError(t, err)
	assert.Equal(t, VerdictNoMatch, out.Verdict)
}
