package verify

import "strings"

// Confidence buckets ordered by evidence strength.
type Confidence string

const (
	ConfidenceUnverified Confidence = "unverified"
	ConfidenceLow        Confidence = "low"
	ConfidenceMedium     Confidence = "medium"
	ConfidenceHigh       Confidence = "high"
)

const (
	confidenceHighThreshold   = 1.5
	confidenceMediumThreshold = 0.7

	// unknownResultWeight applies when a verifier ran but its recorded
	// result has no table entry.
	unknownResultWeight = 0.1
)

// verifierSources is the portfolio; raw keys are scanned per source.
var verifierSources = []string{
	"domain_guess", "searxng", "llm", "ddg",
	"google_search", "google_places", "foursquare",
}

// confidenceWeights maps (source, result) to evidence weight. Higher
// weights mean stronger evidence that the business truly has no site.
var confidenceWeights = map[string]map[string]float64{
	"domain_guess": {
		"has_website":   1.0,
		"no_match":      0.7,
		"no_candidates": 0.3,
	},
	"searxng": {
		"has_website": 1.0,
		"no_website":  0.9,
		"no_results":  0.3,
	},
	"llm": {
		"has_website": 1.0,
		"no_website":  1.0,
		"not_sure":    0.2,
		"no_results":  0.2,
	},
	"ddg": {
		"has_website": 1.0,
		"no_website":  0.8,
		"no_results":  0.05,
	},
	"google_search": {
		"has_website": 1.0,
		"no_website":  0.9,
		"no_results":  0.1,
	},
	"google_places": {
		"has_website": 1.0,
		"no_website":  0.9,
		"no_match":    0.3,
		"poor_match":  0.2,
	},
	"foursquare": {
		"has_website": 1.0,
		"no_website":  0.8,
		"no_match":    0.3,
		"poor_match":  0.2,
	},
}

// ConfidenceWeight sums the evidence weights of every verifier result
// recorded in raw. Pure function, no clock, no store access.
func ConfidenceWeight(raw map[string]any) float64 {
	total := 0.0
	for _, source := range verifierSources {
		if verified, ok := raw[source+"_verified"].(bool); !ok || !verified {
			continue
		}
		result, _ := raw[source+"_result"].(string)
		result = strings.TrimSpace(result)

		weight, ok := confidenceWeights[source][result]
		if !ok {
			weight = unknownResultWeight
		}
		total += weight
	}
	return total
}

// ConfidenceFor bucketizes the summed weight.
func ConfidenceFor(raw map[string]any) (Confidence, float64) {
	weight := ConfidenceWeight(raw)
	switch {
	case weight >= confidenceHighThreshold:
		return ConfidenceHigh, weight
	case weight >= confidenceMediumThreshold:
		return ConfidenceMedium, weight
	case weight > 0:
		return ConfidenceLow, weight
	default:
		return ConfidenceUnverified, weight
	}
}
