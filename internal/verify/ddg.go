package verify

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	ddgEndpoint     = "https://html.duckduckgo.com/html/"
	ddgPace         = 1500 * time.Millisecond
	ddgResultWindow = 20
	maxDDGBody      = 1 << 20
)

var (
	ddgResultRe = regexp.MustCompile(`(?is)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	ddgUddgRe   = regexp.MustCompile(`[?&]uddg=([^&]+)`)
)

// ddgResult is one scraped search hit.
type ddgResult struct {
	URL   string
	Title string
}

// DDGVerifier scrapes the DuckDuckGo HTML endpoint. No API key, but the
// endpoint rate limits aggressively, so batches run slowly and abort on
// repeated blocks.
type DDGVerifier struct {
	http    *http.Client
	limiter *rate.Limiter
}

// NewDDGVerifier builds the DuckDuckGo scrape verifier.
func NewDDGVerifier() *DDGVerifier {
	return &DDGVerifier{
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(ddgPace), 1),
	}
}

func (v *DDGVerifier) Source() string { return "ddg" }

func (v *DDGVerifier) Verify(ctx context.Context, in Input) (*Outcome, error) {
	waitLimiter(ctx, v.limiter)

	query := in.Business.Name
	if in.City != "" {
		query = fmt.Sprintf("%s %s", in.Business.Name, in.City)
	}

	results, blocked, err := v.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if blocked {
		return &Outcome{Verdict: VerdictBlocked}, nil
	}
	if len(results) == 0 {
		return &Outcome{Verdict: VerdictNoResults}, nil
	}
	if len(results) > ddgResultWindow {
		results = results[:ddgResultWindow]
	}

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

func (v *DDGVerifier) search(ctx context.Context, query string) ([]ddgResult, bool, error) {
	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		ddgEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, eris.Wrap(err, "ddg: create request")
	}
	req.Header.Set("User-Agent", guessUserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, false, eris.Wrap(err, "ddg: send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, eris.Errorf("ddg: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDDGBody))
	if err != nil {
		return nil, false, eris.Wrap(err, "ddg: read response")
	}
	page := string(body)
	if strings.Contains(strings.ToLower(page), "anomaly") &&
		strings.Contains(strings.ToLower(page), "detected") {
		return nil, true, nil
	}

	return parseDDGResults(page), false, nil
}

// parseDDGResults extracts result links, unwrapping the uddg redirect
// wrapper DuckDuckGo puts around external URLs.
func parseDDGResults(page string) []ddgResult {
	var out []ddgResult
	for _, m := range ddgResultRe.FindAllStringSubmatch(page, -1) {
		rawHref := html.UnescapeString(m[1])
		title := strings.Join(strings.Fields(html.UnescapeString(stripTags(m[2]))), " ")

		target := rawHref
		if um := ddgUddgRe.FindStringSubmatch(rawHref); len(um) > 1 {
			if decoded, err := url.QueryUnescape(um[1]); err == nil {
				target = decoded
			}
		}
		if !strings.HasPrefix(target, "http") {
			continue
		}
		out = append(out, ddgResult{URL: target, Title: title})
	}
	return out
}
