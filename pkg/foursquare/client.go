// Package foursquare calls the Foursquare Places v3 search endpoint.
package foursquare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.foursquare.com/v3"

// Client searches Foursquare places.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest is the query for GET /places/search.
type SearchRequest struct {
	Query  string
	Lat    *float64
	Lon    *float64
	Radius int // meters, used only with coordinates
	Limit  int
}

// SearchResponse is the result envelope.
type SearchResponse struct {
	Results []Place `json:"results"`
}

// Place is one Foursquare venue.
type Place struct {
	FsqID    string   `json:"fsq_id"`
	Name     string   `json:"name"`
	Website  string   `json:"website,omitempty"`
	Tel      string   `json:"tel,omitempty"`
	Email    string   `json:"email,omitempty"`
	Location Location `json:"location"`
}

// Location is the venue address block.
type Location struct {
	FormattedAddress string `json:"formatted_address,omitempty"`
	Locality         string `json:"locality,omitempty"`
	Country          string `json:"country,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Foursquare client. The v3 API authenticates with the
// raw key in the Authorization header, no Bearer prefix.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("query", req.Query)
	limit := req.Limit
	if limit <= 0 {
		limit = 1
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", "fsq_id,name,website,tel,email,location")
	if req.Lat != nil && req.Lon != nil {
		params.Set("ll", fmt.Sprintf("%f,%f", *req.Lat, *req.Lon))
		radius := req.Radius
		if radius <= 0 {
			radius = 2000
		}
		params.Set("radius", strconv.Itoa(radius))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/places/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: create request")
	}
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("foursquare: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "foursquare: unmarshal response")
	}
	return &out, nil
}
