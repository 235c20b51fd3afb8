package verify

import (
	"regexp"
	"strings"
)

// parkedPageIndicators reject lander/for-sale/under-construction pages
// during candidate validation.
var parkedPageIndicators = []string{
	"domain is for sale",
	"buy this domain",
	"this domain may be for sale",
	"domain for sale",
	"parked free",
	"parking page",
	"sedoparking",
	"hugedomains",
	"coming soon</title>",
	"under construction</title>",
	"website coming soon",
	"this page is parked",
}

// genericTitleWords never count as evidence that a page belongs to a
// specific business.
var genericTitleWords = map[string]bool{
	"home": true, "welcome": true, "index": true, "website": true,
	"official": true, "site": true, "page": true, "menu": true,
	"contact": true, "about": true, "online": true, "login": true,
	"default": true, "untitled": true,
}

// genericLocationWords are address, geographic and industry-prefix words
// that appear on unrelated sites in the same street or trade, so matching
// one never identifies a specific business. "Colborne Street United
// Church" matching "street" on any Colborne St. page is coincidence.
var genericLocationWords = map[string]bool{
	"street": true, "avenue": true, "road": true, "drive": true,
	"boulevard": true, "lane": true, "place": true, "way": true,
	"court": true, "circle": true, "terrace": true, "crescent": true,
	"square": true,
	"north": true, "south": true, "east": true, "west": true,
	"central": true, "upper": true, "lower": true,
	"college": true, "park": true, "lake": true, "hill": true,
	"mountain": true, "river": true, "bay": true,
	"city": true, "town": true, "village": true, "downtown": true,
	"midtown": true, "uptown": true,
	"first": true, "second": true, "third": true, "main": true,
	"high": true, "grand": true,
	"new": true, "old": true, "big": true, "little": true,
	"great": true, "royal": true, "golden": true,
	"green": true, "blue": true, "red": true, "white": true, "black": true,
	"national": true, "international": true, "global": true,
	"general": true, "universal": true,
	"auto": true, "car": true, "home": true, "food": true, "tech": true,
	"pro": true, "express": true, "quick": true, "fast": true,
	"best": true, "top": true, "prime": true, "elite": true, "premium": true,
}

const minRealPageBytes = 500

var (
	titleRe    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaDescRe = regexp.MustCompile(`(?is)<meta[^>]+name=["']description["'][^>]*content=["']([^"']*)["']`)
	ogTitleRe  = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:title["'][^>]*content=["']([^"']*)["']`)
	tagRe      = regexp.MustCompile(`(?s)<[^>]*>`)
)

// pageFacts is everything the validator inspects about a fetched page.
type pageFacts struct {
	candidate  string // domain that was probed
	finalHost  string // host after redirects
	body       string
	redirected bool
}

// validateGuess decides whether a live candidate page really belongs to
// the named business. Every clause matters; they encode hard-won rules
// about parking echoes, redirect hijacks and generic landers.
func validateGuess(name string, page pageFacts) bool {
	bodyLower := strings.ToLower(page.body)

	for _, indicator := range parkedPageIndicators {
		if strings.Contains(bodyLower, indicator) {
			return false
		}
	}
	if len(page.body) < minRealPageBytes {
		return false
	}
	if page.redirected && !domainsRelated(page.candidate, page.finalHost) {
		return false
	}

	title := strings.TrimSpace(extractFirst(titleRe, page.body))
	metaDesc := extractFirst(metaDescRe, page.body)
	ogTitle := extractFirst(ogTitleRe, page.body)

	sigWords := significantWords(name)
	if len(sigWords) == 0 {
		return false
	}

	titleEcho := titleIsDomainEcho(title, page.candidate)
	if titleEcho && !(len(page.body) >= 5000 && textHasAnyWord(metaDesc, sigWords)) {
		return false
	}

	nameWordCount := len(nameWords(name))
	if nameWordCount >= 2 && titleIsAllGeneric(title) {
		return false
	}

	// Relevance is judged on the first 5 KB of body text plus the title
	// and meta fields.
	bodyText := stripTags(page.body)
	if len(bodyText) > 5*1024 {
		bodyText = bodyText[:5*1024]
	}
	haystack := wordSet(bodyText + " " + title + " " + metaDesc + " " + ogTitle)
	titleWords := wordSet(title)

	var matched []string
	nonGeneric := 0
	hasDistinctive := false     // non-generic match of 5+ chars
	hasVeryDistinctive := false // non-generic match of 7+ chars
	for _, w := range sigWords {
		if !haystack[w] {
			continue
		}
		matched = append(matched, w)
		if genericBusinessWords[w] || genericLocationWords[w] {
			continue
		}
		nonGeneric++
		if len(w) >= 5 {
			hasDistinctive = true
		}
		if len(w) >= 7 {
			hasVeryDistinctive = true
		}
	}

	// Matches made only of generic business or location words are
	// coincidental no matter how many there are.
	if len(matched) > 0 && nonGeneric == 0 {
		return false
	}

	switch sigCount := len(sigWords); {
	case sigCount >= 3:
		if nonGeneric == 0 {
			return false
		}
		// Proportional evidence: 1 match out of 4+ significant words is
		// too weak regardless of word length. Exactly-3-word names may
		// ride on a single very distinctive (7+ char) brand word.
		ok := nonGeneric >= 2
		if !ok && sigCount == 3 {
			ok = hasVeryDistinctive
		}
		if ok && page.redirected {
			ok = len(matched) >= 2 && hasDistinctive
		}
		return ok
	case sigCount == 2:
		var distinctive []string
		for _, w := range sigWords {
			if len(w) >= 5 {
				distinctive = append(distinctive, w)
			}
		}
		if len(distinctive) == 2 || page.redirected {
			// Both words distinctive (or a redirect): require both.
			for _, w := range distinctive {
				if !haystack[w] {
					return false
				}
			}
			return len(distinctive) > 0
		}
		for _, w := range distinctive {
			if haystack[w] {
				return true
			}
		}
		return false
	default:
		// Single-word names must show the word in the title itself; a
		// domain-echo title falls back to the meta description.
		word := sigWords[0]
		if titleEcho {
			return textHasAnyWord(metaDesc, []string{word})
		}
		if page.redirected {
			return titleWords[word] && haystack[word]
		}
		return titleWords[word]
	}
}

// titleIsDomainEcho reports whether the page title is just the domain
// name repeated, the classic parking-lander pattern.
func titleIsDomainEcho(title, candidate string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return false
	}
	domain := strings.ToLower(candidate)
	base := strings.SplitN(domain, ".", 2)[0]
	return t == domain || t == base || t == "www."+domain
}

func titleIsAllGeneric(title string) bool {
	words := nonWordRe.Split(strings.ToLower(title), -1)
	any := false
	for _, w := range words {
		if w == "" {
			continue
		}
		any = true
		if !genericTitleWords[w] && !searchStopWords[w] && !genericBusinessWords[w] {
			return false
		}
	}
	return any
}

func textHasAnyWord(text string, words []string) bool {
	if text == "" {
		return false
	}
	set := wordSet(text)
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}

func extractFirst(re *regexp.Regexp, body string) string {
	if m := re.FindStringSubmatch(body); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func stripTags(body string) string {
	return tagRe.ReplaceAllString(body, " ")
}
