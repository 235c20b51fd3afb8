package scorer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	wikidataSPARQLEndpoint = "https://query.wikidata.org/sparql"
	chainCacheKey          = "wikidata_chains"
)

// wikidataChainQuery lists labels of retail/restaurant chains and major
// franchises. Bounded so a bad day at Wikidata cannot flood us.
const wikidataChainQuery = `SELECT DISTINCT ?label WHERE {
  { ?item wdt:P31/wdt:P279* wd:Q507619 . }
  UNION { ?item wdt:P31/wdt:P279* wd:Q18534542 . }
  UNION { ?item wdt:P31/wdt:P279* wd:Q161726 . }
  ?item rdfs:label ?label .
  FILTER(LANG(?label) = "en")
} LIMIT 20000`

// builtinChains keeps the disqualifier working when Wikidata is down.
var builtinChains = []string{
	"mcdonald's", "mcdonalds", "starbucks", "subway", "kfc", "burger king",
	"tim hortons", "pizza hut", "domino's pizza", "dominos", "dunkin",
	"walmart", "costco", "carrefour", "7-eleven", "circle k",
	"shell", "esso", "petro-canada", "adnoc", "enoc", "eppco",
	"h&m", "zara", "ikea", "home depot", "canadian tire", "shoppers drug mart",
	"rexall", "lululemon", "dollarama", "spinneys", "lulu hypermarket",
	"emirates nbd", "first abu dhabi bank", "rbc", "td bank", "scotiabank",
	"bmo", "cibc",
}

// sparqlResponse is the slice of the SPARQL JSON envelope we read.
type sparqlResponse struct {
	Results struct {
		Bindings []struct {
			Label struct {
				Value string `json:"value"`
			} `json:"label"`
		} `json:"bindings"`
	} `json:"results"`
}

// Chains answers "is this name a known chain brand". The Wikidata set is
// loaded once per process and snapshotted; Reload is the only way to
// refresh it mid-process.
type Chains struct {
	mu    sync.Mutex
	cache *gocache.Cache
	fetch func(ctx context.Context) (map[string]bool, error)
}

// NewChains builds a chain index backed by the Wikidata SPARQL endpoint.
func NewChains() *Chains {
	client := &http.Client{Timeout: 60 * time.Second}
	return &Chains{
		cache: gocache.New(gocache.NoExpiration, 0),
		fetch: func(ctx context.Context) (map[string]bool, error) {
			return fetchWikidataChains(ctx, client)
		},
	}
}

// Contains reports whether name matches the chain set, loading it on
// first use. A failed load falls back to the builtin list and is retried
// on the next call.
func (c *Chains) Contains(ctx context.Context, name string) bool {
	key := normalizeChainName(name)
	if key == "" {
		return false
	}
	return c.snapshot(ctx)[key]
}

// Reload discards the cached set so the next Contains refetches.
func (c *Chains) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Delete(chainCacheKey)
}

func (c *Chains) snapshot(ctx context.Context) map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.cache.Get(chainCacheKey); ok {
		return cached.(map[string]bool)
	}

	set, err := c.fetch(ctx)
	if err != nil {
		zap.L().Warn("wikidata chain load failed, using builtin set", zap.Error(err))
		return builtinChainSet()
	}
	for _, chain := range builtinChains {
		set[normalizeChainName(chain)] = true
	}
	c.cache.Set(chainCacheKey, set, gocache.NoExpiration)
	zap.L().Info("loaded wikidata chain set", zap.Int("chains", len(set)))
	return set
}

func builtinChainSet() map[string]bool {
	set := make(map[string]bool, len(builtinChains))
	for _, chain := range builtinChains {
		set[normalizeChainName(chain)] = true
	}
	return set
}

func fetchWikidataChains(ctx context.Context, client *http.Client) (map[string]bool, error) {
	params := url.Values{}
	params.Set("query", wikidataChainQuery)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		wikidataSPARQLEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "chains: create request")
	}
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("User-Agent", "domain-lead-pipeline/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "chains: query wikidata")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("chains: wikidata status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "chains: read response")
	}
	var parsed sparqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "chains: unmarshal response")
	}

	set := make(map[string]bool, len(parsed.Results.Bindings))
	for _, b := range parsed.Results.Bindings {
		if key := normalizeChainName(b.Label.Value); key != "" {
			set[key] = true
		}
	}
	return set, nil
}

// normalizeChainName lowercases and collapses whitespace for matching.
func normalizeChainName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), " ")
}
