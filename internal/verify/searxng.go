package verify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/domain-lead-pipeline/pkg/searxng"
)

const (
	searxngResultWindow = 20
	searxngPace         = 300 * time.Millisecond
)

// SearxngVerifier checks for an official website via a self-hosted
// SearXNG meta-search instance.
type SearxngVerifier struct {
	client  searxng.Client
	limiter *rate.Limiter
}

// NewSearxngVerifier builds the meta-search verifier.
func NewSearxngVerifier(client searxng.Client) *SearxngVerifier {
	return &SearxngVerifier{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(searxngPace), 1),
	}
}

func (v *SearxngVerifier) Source() string { return "searxng" }

// Verify searches "<name> <city>" and scans the top results in two
// passes: domain-name match first, then a strict title match restricted
// to root URLs for multi-word names.
func (v *SearxngVerifier) Verify(ctx context.Context, in Input) (*Outcome, error) {
	waitLimiter(ctx, v.limiter)

	query := in.Business.Name
	if in.City != "" {
		query = fmt.Sprintf("%s %s", in.Business.Name, in.City)
	}

	resp, err := v.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return &Outcome{Verdict: VerdictNoResults}, nil
	}

	results := resp.Results
	if len(results) > searxngResultWindow {
		results = results[:searxngResultWindow]
	}

	// Pass 1: the business name shows up in the result's domain.
	for _, r := range results {
		host := domainOf(r.URL)
		if host == "" || isDirectoryDomain(host) {
			continue
		}
		if domainMatchesName(host, in.Business.Name) {
			return &Outcome{
				Verdict:    VerdictHasWebsite,
				WebsiteURL: rootURL(r.URL),
				Extras:     map[string]any{"match": "domain"},
			}, nil
		}
	}

	// Pass 2: strict title match on root pages, multi-word names only.
	if len(nameWords(in.Business.Name)) >= 2 {
		for _, r := range results {
			host := domainOf(r.URL)
			if host == "" || isDirectoryDomain(host) || isArticleURL(r.URL) {
				continue
			}
			if titleMatchesName(r.Title, in.Business.Name) {
				return &Outcome{
					Verdict:    VerdictHasWebsite,
					WebsiteURL: rootURL(r.URL),
					Extras:     map[string]any{"match": "title"},
				}, nil
			}
		}
	}

	return &Outcome{Verdict: VerdictNoWebsite}, nil
}

// waitLimiter paces outbound requests; a nil limiter means no pacing.
func waitLimiter(ctx context.Context, l *rate.Limiter) {
	if l == nil {
		return
	}
	// Wait only errs on cancellation; the caller checks ctx anyway.
	_ = l.Wait(ctx)
}

// sleepCtx sleeps without outliving the context, for verifiers that need
// jittered rather than fixed-rate delays.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
