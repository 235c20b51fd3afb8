package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

const ddgSamplePage = `
<div class="result">
  <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Facmeplumbing.ca%2F&amp;rut=abc">Acme <b>Plumbing</b> - Guelph</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://www.yelp.ca/biz/acme-plumbing">Acme Plumbing - Yelp</a>
</div>`

func TestParseDDGResults(t *testing.T) {
	results := parseDDGResults(ddgSamplePage)
	require.Len(t, results, 2)
	assert.Equal(t, "https://acmeplumbing.ca/", results[0].URL)
	assert.Equal(t, "Acme Plumbing - Guelph", results[0].Title)
	assert.Equal(t, "https://www.yelp.ca/biz/acme-plumbing", results[1].URL)
}

func ddgTestVerifier(serverURL string) *DDGVerifier {
	v := NewDDGVerifier()
	v.limiter = nil
	v.http = &http.Client{Transport: rewriteTransport{target: serverURL}}
	return v
}

// rewriteTransport redirects every request at the test server.
type rewriteTransport struct {
	target string
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	redirected := *req.URL
	redirected.Scheme = "http"
	redirected.Host = t.target[len("http://"):]
	clone := req.Clone(req.Context())
	clone.URL = &redirected
	return http.DefaultTransport.RoundTrip(clone)
}

func TestDDGVerifierDomainMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "q=")
		w.Write([]byte(ddgSamplePage))
	}))
	defer srv.Close()

	v := ddgTestVerifier(srv.URL)
	out, err := v.Verify(context.Background(), Input{
		Business: model.Business{Name: "Acme Plumbing"},
		City:     "Guelph",
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictHasWebsite, out.Verdict)
	assert.Equal(t, "https://acmeplumbing.ca/", out.WebsiteURL)
}

func TestDDGVerifierBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	v := ddgTestVerifier(srv.URL)
	out, err := v.Verify(context.Background(), Input{Business: model.Business{Name: "Acme Plumbing"}})
	require.NoError(t, err)
	assert.Equal(t, VerdictBlocked, out.Verdict)
}

func TestDDGVerifierNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body>no results here</body></html>"))
	}))
	defer srv.Close()

	v := ddgTestVerifier(srv.URL)
	out, err := v.Verify(context.Background(), Input{Business: model.Business{Name: "Acme Plumbing"}})
	require.NoError(t, err)
	assert.Equal(t, VerdictNoResults, out.Verdict)
}
