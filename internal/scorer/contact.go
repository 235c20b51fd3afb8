package scorer

import (
	"strings"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

// rolePrefixes are shared-mailbox localparts worth extra outreach value.
var rolePrefixes = map[string]bool{
	"info": true, "admin": true, "sales": true, "support": true, "contact": true,
}

// ScoreContact scores a single email contact for the contacts export.
// Pure function of the contact, its business, and the feature bundle.
func ScoreContact(contact *model.BusinessContact, business *model.Business, bundle *model.FeatureBundle) (float64, map[string]any) {
	reasons := map[string]any{
		"source":      contact.Source,
		"category":    strings.TrimSpace(business.Category),
		"has_phone":   len(bundle.Phones) > 0,
		"has_website": business.WebsiteURL != "",
	}

	if len(bundle.HostedDomains) > 0 || len(bundle.ParkedDomains) > 0 {
		reasons["disqualified"] = true
		reasons["disqualification_reason"] = "hosted_or_parked_domain"
		return 0, reasons
	}

	score := 0.0
	if contact.Source == "role" {
		score += 10
	}
	if prefix, ok := emailPrefix(contact.Value); ok && rolePrefixes[prefix] {
		score += 10
		reasons["role_prefix"] = prefix
	}

	switch {
	case len(bundle.VerifiedUnhostedDomains) > 0:
		score += 20
	case len(bundle.RegisteredDomains) > 0:
		score += 15
	case len(bundle.UnregisteredDomains) > 0:
		score += 10
	}

	if business.WebsiteURL == "" {
		score += 25
	}
	if len(bundle.Phones) > 0 {
		score += 20
	}

	category := strings.TrimSpace(business.Category)
	switch {
	case highPriorityCategories[category]:
		score += 25
	case mediumPriorityCategories[category]:
		score += 10
	case category != "":
		score += 5
	}

	return min(score, 100), reasons
}

func emailPrefix(email string) (string, bool) {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "", false
	}
	return strings.ToLower(email[:at]), true
}
