// Package scorer derives lead scores from businesses and their feature
// bundles. Scoring is pure: the same inputs always produce the same
// score, so rescoring is always safe.
package scorer

import (
	"strings"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/verify"
)

// Category priority tiers for the additive bonus.
var (
	highPriorityCategories = map[string]bool{
		"trades": true, "contractors": true,
	}
	mediumPriorityCategories = map[string]bool{
		"professional_services": true, "retail": true, "health": true,
		"food": true, "auto": true,
	}
)

// knownTLDs flag names that are really domains ("iRepair.ca").
var knownTLDs = []string{
	".com", ".net", ".org", ".ca", ".ae", ".co", ".io", ".biz", ".info",
	".co.uk", ".com.au", ".online", ".shop", ".site", ".store",
}

// chainTagKeys in the raw OSM tags mark branded chains.
var chainTagKeys = []string{"brand:wikidata", "operator:wikidata", "brand"}

// Scorer scores businesses. Only the chain index carries state.
type Scorer struct {
	chains *Chains
}

// New builds a scorer around a chain index.
func New(chains *Chains) *Scorer {
	return &Scorer{chains: chains}
}

// IsChain reports whether the business is a branded chain location,
// either via its raw OSM tags or via the chain name set.
func (s *Scorer) IsChain(business *model.Business, chainSet func(string) bool) bool {
	if tags, ok := business.Raw["tags"].(map[string]any); ok {
		for _, key := range chainTagKeys {
			if v, present := tags[key]; present {
				if str, isStr := v.(string); !isStr || strings.TrimSpace(str) != "" {
					return true
				}
			}
		}
	}
	return chainSet != nil && chainSet(business.Name)
}

// Score computes the lead score and its reasons map. isChain is resolved
// by the caller so this stays a pure function of its arguments.
func Score(business *model.Business, bundle *model.FeatureBundle, confidence verify.Confidence, isChain bool) (float64, map[string]any) {
	reasons := baseReasons(business, bundle, confidence)

	if business.WebsiteURL != "" {
		reasons["disqualified"] = true
		reasons["disqualification_reasons"] = []string{"has_website"}
		return 0, reasons
	}
	if isChain {
		reasons["disqualified"] = true
		reasons["disqualification_reasons"] = []string{"branded_chain"}
		return 0, reasons
	}

	hasHosted := len(bundle.HostedDomains) > 0
	hasParked := len(bundle.ParkedDomains) > 0
	hasRegistered := len(bundle.RegisteredDomains) > 0
	if hasHosted || hasParked || hasRegistered {
		var why []string
		if hasHosted {
			why = append(why, "hosted_domain_signal")
		}
		if hasParked {
			why = append(why, "parked_domain_signal")
		}
		if hasRegistered {
			why = append(why, "registered_domain_signal")
		}
		reasons["disqualified"] = true
		reasons["disqualification_reasons"] = why
		return 0, reasons
	}

	score := 25.0 // no website, established above

	hasBusinessEmail := len(bundle.BusinessEmails) > 0
	hasEmail := len(bundle.Emails) > 0
	hasPhone := len(bundle.Phones) > 0

	if hasBusinessEmail {
		score += 20
	} else if hasEmail {
		score += 5
	}
	if hasPhone {
		score += 15
	}

	hasVerifiedUnhosted := len(bundle.VerifiedUnhostedDomains) > 0
	hasUnregistered := len(bundle.UnregisteredDomains) > 0
	switch {
	case hasVerifiedUnhosted:
		score += 35
	case hasUnregistered:
		score += 20
	case len(bundle.Domains) > 0:
		score += 10
	}

	category := strings.TrimSpace(business.Category)
	switch {
	case highPriorityCategories[category]:
		score += 20
	case mediumPriorityCategories[category]:
		score += 10
	case category != "":
		score += 5
	}

	qualified := hasVerifiedUnhosted || hasUnregistered
	if len(bundle.UnknownDomains) > 0 && !qualified {
		score = min(score, 10)
	}
	if NameLooksLikeDomain(business.Name) {
		score = min(score, 15)
	}
	if !hasEmail && !hasPhone {
		score = min(score, 5)
	}
	switch confidence {
	case verify.ConfidenceUnverified:
		score = min(score, 35)
	case verify.ConfidenceLow:
		score = min(score, 50)
	}

	return min(score, 100), reasons
}

// NameLooksLikeDomain detects names that are really domains, like
// "iRepair.ca". Those records are usually import noise.
func NameLooksLikeDomain(name string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" || strings.ContainsAny(trimmed, " \t") {
		return false
	}
	for _, tld := range knownTLDs {
		if strings.HasSuffix(trimmed, tld) && len(trimmed) > len(tld) {
			return true
		}
	}
	return false
}

func baseReasons(business *model.Business, bundle *model.FeatureBundle, confidence verify.Confidence) map[string]any {
	return map[string]any{
		"category":                       strings.TrimSpace(business.Category),
		"has_website":                    business.WebsiteURL != "",
		"has_email":                      len(bundle.Emails) > 0,
		"has_business_email":             len(bundle.BusinessEmails) > 0,
		"has_phone":                      len(bundle.Phones) > 0,
		"domain_count":                   len(bundle.Domains),
		"verified_unhosted_domain_count": len(bundle.VerifiedUnhostedDomains),
		"unregistered_domain_count":      len(bundle.UnregisteredDomains),
		"hosted_domain_count":            len(bundle.HostedDomains),
		"parked_domain_count":            len(bundle.ParkedDomains),
		"registered_domain_count":        len(bundle.RegisteredDomains),
		"unknown_domain_count":           len(bundle.UnknownDomains),
		"domain_status_counts":           bundle.DomainStatusCounts,
		"verification_confidence":        string(confidence),
		"name_looks_like_domain":         NameLooksLikeDomain(business.Name),
	}
}
