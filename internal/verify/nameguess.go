package verify

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	guessUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	maxGuessBody = 200 * 1024

	// candidateProbeWorkers bounds the per-business HEAD fanout.
	candidateProbeWorkers = 12
)

// probeOutcome captures one candidate fetch for validation.
type probeOutcome struct {
	candidate  string
	alive      bool
	finalURL   string
	body       string
	redirected bool
}

// fetchFunc fetches one candidate; swapped out in tests.
type fetchFunc func(ctx context.Context, candidate string) *probeOutcome

// DomainGuessVerifier probes candidate domains generated from the
// business name, entirely offline from search engines.
type DomainGuessVerifier struct {
	fetch fetchFunc
}

// NewDomainGuessVerifier builds the name-guess verifier.
func NewDomainGuessVerifier() *DomainGuessVerifier {
	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     30 * time.Second,
		},
	}
	v := &DomainGuessVerifier{}
	v.fetch = func(ctx context.Context, candidate string) *probeOutcome {
		return fetchCandidate(ctx, client, candidate)
	}
	return v
}

func (v *DomainGuessVerifier) Source() string { return "domain_guess" }

// Verify generates candidates, probes them concurrently with HEAD, then
// validates the live ones in priority order.
func (v *DomainGuessVerifier) Verify(ctx context.Context, in Input) (*Outcome, error) {
	candidates := guessCandidates(in.Business.Name, in.Country)
	if len(candidates) == 0 {
		return &Outcome{Verdict: VerdictNoCandidates}, nil
	}

	var (
		mu       sync.Mutex
		outcomes = make(map[string]*probeOutcome, len(candidates))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(candidateProbeWorkers)
	for _, candidate := range candidates {
		g.Go(func() error {
			result := v.fetch(gctx, candidate)
			mu.Lock()
			outcomes[candidate] = result
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	probed := 0
	for _, candidate := range candidates {
		result := outcomes[candidate]
		if result == nil || !result.alive {
			continue
		}
		probed++
		page := pageFacts{
			candidate:  candidate,
			finalHost:  domainOf(result.finalURL),
			body:       result.body,
			redirected: result.redirected,
		}
		if validateGuess(in.Business.Name, page) {
			return &Outcome{
				Verdict:    VerdictHasWebsite,
				WebsiteURL: result.finalURL,
				Extras: map[string]any{
					"candidate": candidate,
				},
			}, nil
		}
	}

	return &Outcome{
		Verdict: VerdictNoMatch,
		Extras: map[string]any{
			"candidates_tried": len(candidates),
			"candidates_alive": probed,
		},
	}, nil
}

// fetchCandidate HEADs the candidate first and only GETs bodies for hosts
// that answered. 200-399 is alive, 403/405 is alive but hostile.
func fetchCandidate(ctx context.Context, client *http.Client, candidate string) *probeOutcome {
	out := &probeOutcome{candidate: candidate}

	for _, scheme := range []string{"https://", "http://"} {
		target := scheme + candidate
		status, finalURL := headCandidate(ctx, client, target)
		if status == 0 {
			continue
		}
		alive := (status >= 200 && status < 400) || status == http.StatusForbidden || status == http.StatusMethodNotAllowed
		if !alive {
			return out
		}
		out.alive = true
		out.finalURL = finalURL
		out.redirected = !sameHost(finalURL, candidate)

		body, getFinal := getCandidate(ctx, client, target)
		out.body = body
		if getFinal != "" {
			out.finalURL = getFinal
			out.redirected = !sameHost(getFinal, candidate)
		}
		return out
	}
	return out
}

func headCandidate(ctx context.Context, client *http.Client, target string) (int, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return 0, ""
	}
	req.Header.Set("User-Agent", guessUserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return 0, ""
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, resp.Request.URL.String()
}

func getCandidate(ctx context.Context, client *http.Client, target string) (string, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", ""
	}
	req.Header.Set("User-Agent", guessUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	resp, err := client.Do(req)
	if err != nil {
		return "", ""
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxGuessBody))
	return string(data), resp.Request.URL.String()
}

func sameHost(rawURL, candidate string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host == strings.ToLower(candidate)
}
