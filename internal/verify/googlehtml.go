package verify

import (
	"context"
	"fmt"
	"html"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const maxGoogleBody = 2 << 20

// googleUserAgents rotate per request; a fixed UA gets blocked fast.
var googleUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// countryGoogleHosts picks a regional Google front end.
var countryGoogleHosts = map[string]string{
	"CA": "www.google.ca",
	"AE": "www.google.ae",
}

var (
	googleLinkRe = regexp.MustCompile(`(?is)<a[^>]+href="((?:https?://|/url\?q=)[^"]+)"[^>]*>(?:<br>)?<h3[^>]*>(.*?)</h3>`)
	googleURLqRe = regexp.MustCompile(`^/url\?q=([^&]+)`)
)

// googleResult is one scraped organic hit.
type googleResult struct {
	URL   string
	Title string
}

// GoogleSearchVerifier scrapes Google's HTML results. Last resort of the
// scrape tier: best coverage, most hostile to automation.
type GoogleSearchVerifier struct {
	http     *http.Client
	minSleep time.Duration
	maxSleep time.Duration
}

// NewGoogleSearchVerifier builds the Google HTML scrape verifier.
func NewGoogleSearchVerifier() *GoogleSearchVerifier {
	return &GoogleSearchVerifier{
		http:     &http.Client{Timeout: 20 * time.Second},
		minSleep: 3 * time.Second,
		maxSleep: 5 * time.Second,
	}
}

func (v *GoogleSearchVerifier) Source() string { return "google_search" }

// Verify tries up to three query shapes, sleeping a randomized interval
// before each request. The first blocked response ends the business.
func (v *GoogleSearchVerifier) Verify(ctx context.Context, in Input) (*Outcome, error) {
	queries := v.queries(in)

	for _, query := range queries {
		v.sleep(ctx)
		if ctx.Err() != nil {
			return &Outcome{Verdict: VerdictError}, nil
		}

		results, blocked, err := v.search(ctx, query, in.Country)
		if err != nil {
			return nil, err
		}
		if blocked {
			return &Outcome{Verdict: VerdictBlocked}, nil
		}

		if outcome := matchSearchResults(results, in.Business.Name); outcome != nil {
			return outcome, nil
		}
	}
	return &Outcome{Verdict: VerdictNoWebsite}, nil
}

func (v *GoogleSearchVerifier) queries(in Input) []string {
	var out []string
	if in.City != "" {
		out = append(out, fmt.Sprintf("%s %s", in.Business.Name, in.City))
	}
	out = append(out, fmt.Sprintf("%s website", in.Business.Name))
	if in.Business.Category != "" && in.Country != "" {
		out = append(out, fmt.Sprintf("%s %s %s", in.Business.Name, in.Business.Category, in.Country))
	}
	return out
}

func (v *GoogleSearchVerifier) sleep(ctx context.Context) {
	spread := v.maxSleep - v.minSleep
	d := v.minSleep
	if spread > 0 {
		d += time.Duration(rand.Int64N(int64(spread)))
	}
	sleepCtx(ctx, d)
}

func (v *GoogleSearchVerifier) search(ctx context.Context, query, country string) ([]googleResult, bool, error) {
	host, ok := countryGoogleHosts[strings.ToUpper(country)]
	if !ok {
		host = "www.google.com"
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("num", "20")
	params.Set("hl", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://"+host+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, false, eris.Wrap(err, "google: create request")
	}
	req.Header.Set("User-Agent", googleUserAgents[rand.IntN(len(googleUserAgents))])
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Accept-Language", "en")

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, false, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, eris.Errorf("google: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGoogleBody))
	if err != nil {
		return nil, false, eris.Wrap(err, "google: read response")
	}
	page := string(body)

	lower := strings.ToLower(page)
	if strings.Contains(lower, "unusual traffic") || strings.Contains(lower, "/sorry/") ||
		strings.Contains(lower, "captcha") {
		return nil, true, nil
	}

	return parseGoogleResults(page), false, nil
}

// parseGoogleResults pulls organic result links (anchor wrapping an h3).
func parseGoogleResults(page string) []googleResult {
	var out []googleResult
	for _, m := range googleLinkRe.FindAllStringSubmatch(page, -1) {
		target := html.UnescapeString(m[1])
		if um := googleURLqRe.FindStringSubmatch(target); len(um) > 1 {
			if decoded, err := url.QueryUnescape(um[1]); err == nil {
				target = decoded
			}
		}
		if strings.Contains(target, "google.") && strings.Contains(target, "/search") {
			continue
		}
		title := strings.Join(strings.Fields(html.UnescapeString(stripTags(m[2]))), " ")
		out = append(out, googleResult{URL: target, Title: title})
	}
	return out
}

// matchSearchResults runs the shared two-pass domain/title match over
// scraped results. Returns nil when nothing qualifies.
func matchSearchResults(results []googleResult, name string) *Outcome {
	for _, r := range results {
		host := domainOf(r.URL)
		if host == "" || isDirectoryDomain(host) {
			continue
		}
		if domainMatchesName(host, name) {
			return &Outcome{
				Verdict:    VerdictHasWebsite,
				WebsiteURL: rootURL(r.URL),
				Extras:     map[string]any{"match": "domain"},
			}
		}
	}
	if len(nameWords(name)) >= 2 {
		for _, r := range results {
			host := domainOf(r.URL)
			if host == "" || isDirectoryDomain(host) || isArticleURL(r.URL) {
				continue
			}
			if titleMatchesName(r.Title, name) {
				return &Outcome{
					Verdict:    VerdictHasWebsite,
					WebsiteURL: rootURL(r.URL),
					Extras:     map[string]any{"match": "title"},
				}
			}
		}
	}
	return nil
}
