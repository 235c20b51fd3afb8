// Package overpass executes Overpass QL queries against the public
// Overpass API mirrors with endpoint failover.
package overpass

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var defaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
}

// Client runs Overpass QL queries.
type Client interface {
	Query(ctx context.Context, ql string) (*Response, error)
}

// Response is the Overpass JSON output.
type Response struct {
	Elements []Element `json:"elements"`
}

// Element is one OSM node/way/relation from an "out center tags" query.
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat,omitempty"`
	Lon    float64           `json:"lon,omitempty"`
	Center *Center           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// Center carries the centroid of ways and relations.
type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Position returns the best available coordinate for the element.
func (e *Element) Position() (lat, lon float64, ok bool) {
	if e.Lat != 0 || e.Lon != 0 {
		return e.Lat, e.Lon, true
	}
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}
	return 0, 0, false
}

// Option configures the client.
type Option func(*httpClient)

// WithEndpoints overrides the default mirror list.
func WithEndpoints(endpoints []string) Option {
	return func(c *httpClient) {
		if len(endpoints) > 0 {
			c.endpoints = endpoints
		}
	}
}

// WithRetries sets how many attempts each endpoint gets on 429/504.
func WithRetries(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithRetryDelay sets the pause between throttled retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	endpoints  []string
	retries    int
	retryDelay time.Duration
	http       *http.Client
}

// NewClient creates an Overpass client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		endpoints:  defaultEndpoints,
		retries:    3,
		retryDelay: 10 * time.Second,
		http: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Query posts ql to each mirror in turn. Throttling (429) and gateway
// timeouts (504) are retried on the same mirror before failing over; any
// other failure moves straight to the next mirror.
func (c *httpClient) Query(ctx context.Context, ql string) (*Response, error) {
	var lastErr error
	for _, endpoint := range c.endpoints {
		resp, err := c.queryEndpoint(ctx, endpoint, ql)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		zap.L().Warn("overpass endpoint failed, trying next",
			zap.String("endpoint", endpoint),
			zap.Error(err))
	}
	return nil, eris.Wrap(lastErr, "overpass: all endpoints failed")
}

func (c *httpClient) queryEndpoint(ctx context.Context, endpoint, ql string) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "overpass: canceled")
			case <-time.After(c.retryDelay):
			}
		}

		body := url.Values{"data": {ql}}.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "overpass: create request")
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "overpass: query %s", endpoint)
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, eris.Wrap(readErr, "overpass: read response")
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var out Response
			if err := json.Unmarshal(data, &out); err != nil {
				return nil, eris.Wrap(err, "overpass: unmarshal response")
			}
			return &out, nil
		case http.StatusTooManyRequests, http.StatusGatewayTimeout:
			lastErr = eris.Errorf("overpass: status %d from %s", resp.StatusCode, endpoint)
			zap.L().Warn("overpass throttled, backing off",
				zap.String("endpoint", endpoint),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1))
		default:
			return nil, eris.Errorf("overpass: unexpected status %d from %s: %s",
				resp.StatusCode, endpoint, truncate(string(data), 200))
		}
	}
	return nil, lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
