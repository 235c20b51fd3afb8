package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/pkg/searxng"
)

type fakeSearch struct {
	results []searxng.Result
	err     error
	queries []string
}

func (f *fakeSearch) Search(_ context.Context, query string) (*searxng.SearchResponse, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &searxng.SearchResponse{Query: query, Results: f.results}, nil
}

func searxngInput() Input {
	return Input{
		Business: model.Business{Name: "Acme Plumbing"},
		City:     "Guelph",
		Country:  "CA",
	}
}

func TestSearxngVerifierDomainMatch(t *testing.T) {
	search := &fakeSearch{results: []searxng.Result{
		{URL: "https://www.yelp.ca/biz/acme-plumbing", Title: "Acme Plumbing - Yelp"},
		{URL: "https://acmeplumbing.ca/services", Title: "Services"},
	}}
	v := &SearxngVerifier{client: search}

	out, err := v.Verify(context.Background(), searxngInput())
	require.NoError(t, err)
	assert.Equal(t, VerdictHasWebsite, out.Verdict)
	assert.Equal(t, "https://acmeplumbing.ca/", out.WebsiteURL)
	require.Len(t, search.queries, 1)
	assert.Equal(t, "Acme Plumbing Guelph", search.queries[0])
}

func TestSearxngVerifierTitleFallback(t *testing.T) {
	search := &fakeSearch{results: []searxng.Result{
		{URL: "https://gp-trades.ca/", Title: "Acme Plumbing | Licensed Plumbers"},
	}}
	v := &SearxngVerifier{client: search}

	out, err := v.Verify(context.Background(), searxngInput())
	require.NoError(t, err)
	assert.Equal(t, VerdictHasWebsite, out.Verdict)
	assert.Equal(t, "https://gp-trades.ca/", out.WebsiteURL)
	assert.Equal(t, "title", out.Extras["match"])
}

func TestSearxngVerifierSkipsArticlesInTitlePass(t *testing.T) {
	search := &fakeSearch{results: []searxng.Result{
		{URL: "https://localnews.ca/2024/05/acme-plumbing-expands", Title: "Acme Plumbing expands"},
	}}
	v := &SearxngVerifier{client: search}

	out, err := v.Verify(context.Background(), searxngInput())
	require.NoError(t, err)
	assert.Equal(t, VerdictNoWebsite, out.Verdict)
}

func TestSearxngVerifierNoResults(t *testing.T) {
	v := &SearxngVerifier{client: &fakeSearch{}}
	out, err := v.Verify(context.Background(), searxngInput())
	require.NoError(t, err)
	assert.Equal(t, VerdictNoResults, out.Verdict)
}

func TestSearxngVerifierDirectoriesOnly(t *testing.T) {
	search := &fakeSearch{results: []searxng.Result{
		{URL: "https://www.yelp.ca/biz/acme-plumbing", Title: "Acme Plumbing - Yelp"},
		{URL: "https://www.facebook.com/acmeplumbing", Title: "Acme Plumbing | Facebook"},
	}}
	v := &SearxngVerifier{client: search}

	out, err := v.Verify(context.Background(), searxngInput())
	require.NoError(t, err)
	assert.Equal(t, VerdictNoWebsite, out.Verdict)
}
