package verify

import (
	"regexp"
	"sort"
	"strings"
)

// articleWords are kept in the brand+articles cleaning pass and stripped
// in the brand-only pass.
var articleWords = map[string]bool{
	"the": true, "a": true, "an": true, "al": true, "el": true,
	"le": true, "la": true, "les": true, "de": true,
}

// entitySuffixes are legal-form tails stripped in every cleaning pass.
var entitySuffixes = map[string]bool{
	"llc": true, "ltd": true, "limited": true, "inc": true,
	"incorporated": true, "corp": true, "corporation": true,
	"co": true, "company": true, "fzc": true, "fze": true, "fzco": true,
	"llp": true, "plc": true, "gmbh": true, "sarl": true, "pvt": true,
	"est": true, "establishment": true,
}

// genericBusinessWords are industry fillers stripped in the brand-only
// pass and excluded from "distinctive word" relevance counts.
var genericBusinessWords = map[string]bool{
	"services": true, "service": true, "solutions": true, "solution": true,
	"group": true, "trading": true, "contracting": true, "contractors": true,
	"general": true, "technical": true, "international": true, "global": true,
	"enterprises": true, "enterprise": true, "industries": true,
	"industrial": true, "works": true, "store": true, "shop": true,
	"center": true, "centre": true, "salon": true, "studio": true,
	"repair": true, "repairs": true, "maintenance": true, "cleaning": true,
	"rental": true, "rentals": true, "supply": true, "supplies": true,
	"equipment": true, "systems": true, "home": true, "house": true,
	"market": true, "mart": true, "foods": true, "food": true,
}

// countryTLDs maps ISO country codes to preferred TLD order.
var countryTLDs = map[string][]string{
	"CA": {".ca", ".com", ".net"},
	"US": {".com", ".net", ".org"},
	"AE": {".ae", ".com", ".net"},
	"GB": {".co.uk", ".com", ".net"},
	"UK": {".co.uk", ".com", ".net"},
	"AU": {".com.au", ".com", ".net"},
	"JO": {".jo", ".com", ".net"},
	"SA": {".sa", ".com", ".net"},
	"QA": {".qa", ".com", ".net"},
}

var defaultTLDs = []string{".com", ".net", ".org"}

var acronymRe = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// guessCandidates generates candidate domains for a business name in
// priority order: longer, more specific bases first, each crossed with
// the country's preferred TLDs.
func guessCandidates(name, country string) []string {
	bases := candidateBases(name)
	if len(bases) == 0 {
		return nil
	}

	tlds, ok := countryTLDs[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		tlds = defaultTLDs
	}

	seen := map[string]bool{}
	var out []string
	for _, base := range bases {
		for _, tld := range tlds {
			candidate := base + tld
			if seen[candidate] {
				continue
			}
			seen[candidate] = true
			out = append(out, candidate)
		}
	}
	return out
}

// candidateBases runs the three cleaning passes and derives joined,
// partial, hyphenated and acronym bases with plural/singular variants.
func candidateBases(name string) []string {
	passes := [][]string{
		cleanName(name, false, true),  // brand only
		cleanName(name, true, true),   // brand + articles
		cleanName(name, true, false),  // full, entity suffixes stripped
	}

	seen := map[string]bool{}
	var bases []string
	add := func(base string) {
		base = strings.Trim(base, "-")
		if len(base) < 3 || seen[base] {
			return
		}
		seen[base] = true
		bases = append(bases, base)
	}

	for _, words := range passes {
		if len(words) == 0 {
			continue
		}
		var passBases []string
		passBases = append(passBases, strings.Join(words, ""))
		if len(words) >= 2 {
			passBases = append(passBases, strings.Join(words[:2], ""))
			passBases = append(passBases, strings.Join(words, "-"))
		}
		if len(words) >= 3 {
			passBases = append(passBases, strings.Join(words[:3], ""))
		}
		for _, b := range passBases {
			for _, v := range morphVariants(b) {
				add(v)
			}
		}
	}

	// Acronym + first word, when the original name carries an all-caps
	// token.
	if acronym := acronymRe.FindString(name); acronym != "" {
		lower := strings.ToLower(acronym)
		for _, words := range passes {
			for _, w := range words {
				if w != lower {
					for _, v := range morphVariants(lower + w) {
						add(v)
					}
					break
				}
			}
		}
	}

	// Longer bases are more specific, probe them first.
	sort.SliceStable(bases, func(i, j int) bool {
		return len(bases[i]) > len(bases[j])
	})
	return bases
}

// cleanName tokenizes and filters a business name. keepArticles keeps
// the/al/le-style articles; stripGeneric drops industry filler words.
func cleanName(name string, keepArticles, stripGeneric bool) []string {
	var out []string
	for _, w := range nonWordRe.Split(strings.ToLower(name), -1) {
		if w == "" || entitySuffixes[w] {
			continue
		}
		if !keepArticles && articleWords[w] {
			continue
		}
		if stripGeneric && genericBusinessWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// morphVariants returns the base plus singular/plural and Arabic
// transliteration variants.
func morphVariants(base string) []string {
	variants := []string{base}

	switch {
	case strings.HasSuffix(base, "ies") && len(base) > 4:
		variants = append(variants, base[:len(base)-3]+"y")
	case strings.HasSuffix(base, "ses") || strings.HasSuffix(base, "xes") || strings.HasSuffix(base, "zes"):
		variants = append(variants, base[:len(base)-2])
	case strings.HasSuffix(base, "s") && !strings.HasSuffix(base, "ss") && len(base) > 3:
		variants = append(variants, base[:len(base)-1])
	default:
		variants = append(variants, base+"s")
		if strings.HasSuffix(base, "sh") || strings.HasSuffix(base, "ch") ||
			strings.HasSuffix(base, "x") || strings.HasSuffix(base, "z") {
			variants = append(variants, base+"es")
		}
	}

	if strings.HasPrefix(base, "al") && len(base) > 5 {
		variants = append(variants, base[2:])
	}
	if strings.HasSuffix(base, "een") && len(base) > 5 {
		variants = append(variants, base[:len(base)-3]+"in")
	}
	if strings.HasSuffix(base, "ain") && len(base) > 5 {
		variants = append(variants, base[:len(base)-3]+"an")
	}

	return variants
}
