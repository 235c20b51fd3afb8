package overpass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_ParsesElements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.Form.Get("data"), "[out:json]")
		w.Write([]byte(`{"elements": [
			{"type": "node", "id": 101, "lat": 49.88, "lon": -119.49, "tags": {"name": "Acme Plumbing", "shop": "trade"}},
			{"type": "way", "id": 202, "center": {"lat": 49.9, "lon": -119.5}, "tags": {"name": "Valley Roofing"}}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(WithEndpoints([]string{srv.URL}))
	resp, err := c.Query(context.Background(), `[out:json][timeout:180];nwr["name"];out center tags;`)
	require.NoError(t, err)
	require.Len(t, resp.Elements, 2)

	lat, lon, ok := resp.Elements[0].Position()
	assert.True(t, ok)
	assert.InDelta(t, 49.88, lat, 0.001)
	assert.InDelta(t, -119.49, lon, 0.001)

	lat, lon, ok = resp.Elements[1].Position()
	assert.True(t, ok)
	assert.InDelta(t, 49.9, lat, 0.001)
	assert.InDelta(t, -119.5, lon, 0.001)
}

func TestQuery_RetriesOnThrottle(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"elements": []}`))
	}))
	defer srv.Close()

	c := NewClient(
		WithEndpoints([]string{srv.URL}),
		WithRetries(2),
		WithRetryDelay(time.Millisecond),
	)
	resp, err := c.Query(context.Background(), `[out:json];`)
	require.NoError(t, err)
	assert.Empty(t, resp.Elements)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQuery_FailsOverToNextEndpoint(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"elements": [{"type": "node", "id": 1}]}`))
	}))
	defer good.Close()

	c := NewClient(WithEndpoints([]string{bad.URL, good.URL}))
	resp, err := c.Query(context.Background(), `[out:json];`)
	require.NoError(t, err)
	assert.Len(t, resp.Elements, 1)
}

func TestQuery_AllEndpointsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(WithEndpoints([]string{srv.URL}))
	_, err := c.Query(context.Background(), `[out:json];`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all endpoints failed")
}

func TestPosition_NoCoordinates(t *testing.T) {
	e := Element{Type: "relation", ID: 5}
	_, _, ok := e.Position()
	assert.False(t, ok)
}
