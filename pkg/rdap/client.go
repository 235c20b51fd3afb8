// Package rdap queries the public RDAP bootstrap service for domain
// registration data.
package rdap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://rdap.org/domain/"

// Client looks up domain registration via RDAP.
type Client interface {
	Lookup(ctx context.Context, domain string) (*Result, error)
}

// Result is the distilled outcome of an RDAP lookup.
type Result struct {
	Domain     string `json:"domain"`
	Registered bool   `json:"registered"`
	Registrar  string `json:"registrar,omitempty"`
	// Statuses carries the raw RDAP status values when present.
	Statuses []string `json:"statuses,omitempty"`
}

// domainResponse is the subset of the RDAP domain object we care about.
type domainResponse struct {
	Status   []string `json:"status"`
	Entities []entity `json:"entities"`
}

type entity struct {
	Roles      []string        `json:"roles"`
	VCardArray json.RawMessage `json:"vcardArray"`
	Entities   []entity        `json:"entities"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default RDAP base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an RDAP client. The bootstrap service needs no auth.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Lookup fetches the RDAP record for domain. A 404 means the domain is not
// registered; that is a successful lookup, not an error.
func (c *httpClient) Lookup(ctx context.Context, domain string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+domain, nil)
	if err != nil {
		return nil, eris.Wrap(err, "rdap: create request")
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "rdap: lookup %s", domain)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "rdap: read response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &Result{Domain: domain, Registered: false}, nil
	case resp.StatusCode == http.StatusOK:
		var dr domainResponse
		if err := json.Unmarshal(body, &dr); err != nil {
			return nil, eris.Wrapf(err, "rdap: unmarshal response for %s", domain)
		}
		return &Result{
			Domain:     domain,
			Registered: true,
			Registrar:  registrarName(dr.Entities),
			Statuses:   dr.Status,
		}, nil
	default:
		return nil, eris.Errorf("rdap: unexpected status %d for %s", resp.StatusCode, domain)
	}
}

// registrarName walks the entity tree for a registrar role and pulls the
// formatted name out of its jCard.
func registrarName(entities []entity) string {
	for _, e := range entities {
		if hasRole(e.Roles, "registrar") {
			if name := vcardFullName(e.VCardArray); name != "" {
				return name
			}
		}
		if name := registrarName(e.Entities); name != "" {
			return name
		}
	}
	return ""
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// vcardFullName extracts the "fn" property value from a jCard array.
// The layout is ["vcard", [["fn", {}, "text", "Example Registrar"], ...]].
func vcardFullName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var card []json.RawMessage
	if err := json.Unmarshal(raw, &card); err != nil || len(card) < 2 {
		return ""
	}
	var props [][]any
	if err := json.Unmarshal(card[1], &props); err != nil {
		return ""
	}
	for _, prop := range props {
		if len(prop) < 4 {
			continue
		}
		name, ok := prop[0].(string)
		if !ok || name != "fn" {
			continue
		}
		if value, ok := prop[3].(string); ok {
			return value
		}
	}
	return ""
}
