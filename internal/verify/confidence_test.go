package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidenceUnverified(t *testing.T) {
	conf, weight := ConfidenceFor(map[string]any{})
	assert.Equal(t, ConfidenceUnverified, conf)
	assert.Zero(t, weight)

	// Stamps without the verified flag contribute nothing.
	conf, _ = ConfidenceFor(map[string]any{"searxng_result": "no_website"})
	assert.Equal(t, ConfidenceUnverified, conf)
}

func TestConfidenceBuckets(t *testing.T) {
	// A lone DDG no_results is weak evidence but still lifts the
	// business out of unverified.
	conf, weight := ConfidenceFor(map[string]any{
		"ddg_verified": true,
		"ddg_result":   "no_results",
	})
	assert.Equal(t, ConfidenceLow, conf)
	assert.InDelta(t, 0.05, weight, 1e-9)

	conf, weight = ConfidenceFor(map[string]any{
		"searxng_verified": true,
		"searxng_result":   "no_website",
	})
	assert.Equal(t, ConfidenceMedium, conf)
	assert.InDelta(t, 0.9, weight, 1e-9)

	// searxng no_website + domain_guess no_match crosses the high bar.
	conf, weight = ConfidenceFor(map[string]any{
		"searxng_verified":      true,
		"searxng_result":        "no_website",
		"domain_guess_verified": true,
		"domain_guess_result":   "no_match",
	})
	assert.Equal(t, ConfidenceHigh, conf)
	assert.InDelta(t, 1.6, weight, 1e-9)
}

func TestConfidenceUnknownResultWeight(t *testing.T) {
	_, weight := ConfidenceFor(map[string]any{
		"searxng_verified": true,
		"searxng_result":   "something_new",
	})
	assert.InDelta(t, unknownResultWeight, weight, 1e-9)
}

func TestConfidenceMonotone(t *testing.T) {
	raw := map[string]any{
		"ddg_verified": true,
		"ddg_result":   "no_results",
	}
	_, before := ConfidenceFor(raw)

	raw["google_places_verified"] = true
	raw["google_places_result"] = "no_website"
	_, after := ConfidenceFor(raw)

	assert.Greater(t, after, before)
}
