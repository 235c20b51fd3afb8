package verify

import (
	"net/url"
	"regexp"
	"strings"
)

// searchStopWords are ignored when comparing business names to search
// results and place names.
var searchStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "&": true,
	"of": true, "in": true, "at": true, "to": true, "for": true,
	"-": true, "le": true, "la": true, "les": true, "de": true, "du": true,
}

// directoryDomains are aggregators, social networks and marketplaces that
// never count as a business's official website.
var directoryDomains = []string{
	"yelp.", "facebook.com", "instagram.com", "linkedin.com",
	"twitter.com", "x.com", "tripadvisor.", "yellowpages.",
	"google.com", "google.ca", "google.ae", "maps.google",
	"zomato.com", "foursquare.com", "booking.com", "expedia.",
	"amazon.", "ebay.", "bayut.com", "dubizzle.com", "canada411.ca",
	"411.ca", "yablo.ca", "opendi.", "cylex.", "hotfrog.",
	"wikipedia.org", "wikidata.org", "blogspot.com", "wordpress.com",
	"medium.com", "pinterest.", "youtube.com", "tiktok.com",
	"indeed.", "glassdoor.", "bbb.org", "manta.com", "zaubee.com",
	"restaurantguru.com", "menuism.com", "doordash.com", "ubereats.com",
	"skipthedishes.com", "groupon.", "nicelocal.", "chamberofcommerce.com",
}

var nonWordRe = regexp.MustCompile(`[^a-z0-9]+`)

// nameWords splits a business name into lowercase alphanumeric tokens with
// stop words removed.
func nameWords(name string) []string {
	parts := nonWordRe.Split(strings.ToLower(name), -1)
	var out []string
	for _, p := range parts {
		if p == "" || searchStopWords[p] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// significantWords keeps tokens of at least three characters.
func significantWords(name string) []string {
	var out []string
	for _, w := range nameWords(name) {
		if len(w) >= 3 {
			out = append(out, w)
		}
	}
	return out
}

// domainOf extracts the lowercase host of a URL, stripping www.
func domainOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// isDirectoryDomain reports whether the host belongs to the shared
// directory/social set.
func isDirectoryDomain(host string) bool {
	host = strings.ToLower(host)
	for _, d := range directoryDomains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

// domainMatchesName applies the tight name-in-domain rule: the fully
// joined name is a substring of the domain, at least two name words
// appear, or a single distinctive word of 7+ characters appears.
func domainMatchesName(host, name string) bool {
	words := nameWords(name)
	if len(words) == 0 || host == "" {
		return false
	}
	base := strings.SplitN(host, ".", 2)[0]

	joined := strings.Join(words, "")
	if len(joined) >= 5 && strings.Contains(base, joined) {
		return true
	}

	matches := 0
	for _, w := range words {
		if len(w) >= 3 && strings.Contains(base, w) {
			matches++
		}
	}
	if matches >= 2 {
		return true
	}
	for _, w := range words {
		if len(w) >= 7 && strings.Contains(base, w) {
			return true
		}
	}
	return false
}

// titleMatchesName is the strict fallback for multi-word names: the title
// must share at least two name words and cover 60% of them.
func titleMatchesName(title, name string) bool {
	words := nameWords(name)
	if len(words) < 2 {
		return false
	}
	titleLower := strings.ToLower(title)
	matched := 0
	for _, w := range words {
		if containsWord(titleLower, w) {
			matched++
		}
	}
	return matched >= 2 && float64(matched)/float64(len(words)) >= 0.6
}

// containsWord does a whole-word match on lowercased text.
func containsWord(text, word string) bool {
	return wordSet(text)[word]
}

// wordSet tokenizes lowercased text into its alphanumeric words.
func wordSet(text string) map[string]bool {
	out := map[string]bool{}
	for _, w := range nonWordRe.Split(strings.ToLower(text), -1) {
		if w != "" {
			out[w] = true
		}
	}
	return out
}

// domainsRelated reports whether two hosts plausibly belong to the same
// site: exact match, one contained in the other at 60%+ of its length, or
// a shared 10+ character prefix. A missing host means no redirect
// information, which is not evidence of a hijack, so it counts as related.
func domainsRelated(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	if a == "" || b == "" {
		return true
	}
	if a == b {
		return true
	}
	baseA := strings.SplitN(a, ".", 2)[0]
	baseB := strings.SplitN(b, ".", 2)[0]
	if baseA == baseB {
		return true
	}
	shorter, longer := baseA, baseB
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) > 0 && strings.Contains(longer, shorter) &&
		float64(len(shorter))/float64(len(longer)) >= 0.6 {
		return true
	}
	prefix := commonPrefixLen(baseA, baseB)
	return prefix >= 10
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

var datePathRe = regexp.MustCompile(`/20\d{2}/\d{1,2}(/|$)`)

// isArticleURL heuristically detects blog/news article links that should
// never be treated as a business homepage.
func isArticleURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return false
	}
	if datePathRe.MatchString(u.Path) {
		return true
	}
	segments := strings.Split(path, "/")
	if len(segments) >= 3 {
		return true
	}
	for _, seg := range segments {
		lower := strings.ToLower(seg)
		if lower == "blog" || lower == "news" || lower == "article" ||
			lower == "articles" || lower == "post" || lower == "posts" ||
			lower == "story" || lower == "press" {
			return true
		}
		if strings.Count(seg, "-") >= 4 {
			return true
		}
	}
	return false
}

// rootURL normalizes a result URL to its scheme+host root.
func rootURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return rawURL
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + u.Host + "/"
}

// PlaceNameMatches applies the per-API 50% word-overlap acceptance rule.
// Enrichment passes share it so a place accepted for phone backfill is the
// same place the verifier would accept.
func PlaceNameMatches(businessName, placeName string) bool {
	return placeNameMatches(businessName, placeName)
}

// placeNameMatches applies the per-API 50% word-overlap acceptance rule.
func placeNameMatches(businessName, placeName string) bool {
	bizWords := nameWords(businessName)
	if len(bizWords) == 0 {
		return false
	}
	placeWords := map[string]bool{}
	for _, w := range nameWords(placeName) {
		placeWords[w] = true
	}
	overlap := 0
	for _, w := range bizWords {
		if placeWords[w] {
			overlap++
		}
	}
	needed := (len(bizWords) + 1) / 2
	if needed < 1 {
		needed = 1
	}
	return overlap >= needed
}
