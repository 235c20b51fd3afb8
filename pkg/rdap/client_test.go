package rdap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_Registered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/acmeplumbing.com", r.URL.Path)
		w.Header().Set("Content-Type", "application/rdap+json")
		w.Write([]byte(`{
			"status": ["client transfer prohibited"],
			"entities": [{
				"roles": ["registrar"],
				"vcardArray": ["vcard", [["version", {}, "text", "4.0"], ["fn", {}, "text", "Example Registrar Inc."]]]
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL + "/"))
	result, err := c.Lookup(context.Background(), "acmeplumbing.com")
	require.NoError(t, err)
	assert.True(t, result.Registered)
	assert.Equal(t, "Example Registrar Inc.", result.Registrar)
	assert.Equal(t, []string{"client transfer prohibited"}, result.Statuses)
}

func TestLookup_NotFoundMeansUnregistered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL + "/"))
	result, err := c.Lookup(context.Background(), "no-such-biz-xyz.com")
	require.NoError(t, err)
	assert.False(t, result.Registered)
	assert.Empty(t, result.Registrar)
}

func TestLookup_ServerErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL + "/"))
	_, err := c.Lookup(context.Background(), "acmeplumbing.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429")
}

func TestLookup_NestedRegistrarEntity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"entities": [{
				"roles": ["technical"],
				"entities": [{
					"roles": ["registrar"],
					"vcardArray": ["vcard", [["fn", {}, "text", "Nested Registrar"]]]
				}]
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL + "/"))
	result, err := c.Lookup(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "Nested Registrar", result.Registrar)
}

func TestVCardFullName_Malformed(t *testing.T) {
	assert.Empty(t, vcardFullName(nil))
	assert.Empty(t, vcardFullName([]byte(`"not a card"`)))
	assert.Empty(t, vcardFullName([]byte(`["vcard", [["fn", {}]]]`)))
}
