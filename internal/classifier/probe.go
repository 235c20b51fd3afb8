package classifier

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	probeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// maxProbeBody bounds how much page text the parking detector sees.
	maxProbeBody = 200 * 1024
)

// ProbeResult is the outcome of the concurrent HTTP probe.
type ProbeResult struct {
	Success    bool
	FinalURL   string
	StatusCode int
	Body       string
	// Errors maps the attempted URL to its failure.
	Errors map[string]string
}

// HTTPProber fans GETs across both schemes and both hosts and keeps the
// first non-5xx response.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber builds a prober with redirect-follow and a short connect
// timeout so dead hosts fail fast.
func NewHTTPProber(timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProber{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 2 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// Probe tries {https, http} x {apex, www} in parallel. The first 2xx-4xx
// (non-5xx) response wins; its final URL and up to 200 KB of text body are
// kept for parking detection.
func (p *HTTPProber) Probe(ctx context.Context, domain string) *ProbeResult {
	urls := []string{
		"https://" + domain,
		"https://www." + domain,
		"http://" + domain,
		"http://www." + domain,
	}

	type attempt struct {
		url        string
		finalURL   string
		statusCode int
		body       string
		err        string
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]attempt, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			a := attempt{url: u}
			req, err := http.NewRequestWithContext(gctx, http.MethodGet, u, nil)
			if err != nil {
				a.err = err.Error()
				results[i] = a
				return nil
			}
			req.Header.Set("User-Agent", probeUserAgent)
			req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

			resp, err := p.client.Do(req)
			if err != nil {
				a.err = err.Error()
				results[i] = a
				return nil
			}
			defer resp.Body.Close()

			a.statusCode = resp.StatusCode
			a.finalURL = resp.Request.URL.String()
			if resp.StatusCode >= 500 {
				a.err = "server error " + strconv.Itoa(resp.StatusCode)
				results[i] = a
				return nil
			}
			if isTextContent(resp.Header.Get("Content-Type")) {
				data, _ := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
				a.body = string(data)
			}
			results[i] = a
			return nil
		})
	}
	g.Wait()

	out := &ProbeResult{Errors: map[string]string{}}
	for _, a := range results {
		if a.url == "" {
			continue
		}
		if a.err == "" && a.statusCode > 0 {
			if !out.Success {
				out.Success = true
				out.FinalURL = a.finalURL
				out.StatusCode = a.statusCode
				out.Body = a.body
			}
			continue
		}
		if a.err != "" {
			out.Errors[a.url] = a.err
		}
	}
	return out
}

func isTextContent(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" ||
		strings.Contains(ct, "text/") ||
		strings.Contains(ct, "html") ||
		strings.Contains(ct, "xml") ||
		strings.Contains(ct, "json")
}

// TCPProber checks whether any configured port accepts a connection.
type TCPProber struct {
	ports   []int
	timeout time.Duration
}

// NewTCPProber builds a prober for the given ports (default 80, 443).
func NewTCPProber(ports []int, timeout time.Duration) *TCPProber {
	if len(ports) == 0 {
		ports = []int{80, 443}
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &TCPProber{ports: ports, timeout: timeout}
}

// Probe reports whether any port on the apex or www host connects.
func (p *TCPProber) Probe(ctx context.Context, domain string) bool {
	dialer := &net.Dialer{Timeout: p.timeout}
	for _, host := range []string{domain, "www." + domain} {
		for _, port := range p.ports {
			conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
			if err == nil {
				conn.Close()
				return true
			}
			if ctx.Err() != nil {
				return false
			}
		}
	}
	return false
}
