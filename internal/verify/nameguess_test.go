package verify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

func TestGuessCandidatesCountryTLDs(t *testing.T) {
	candidates := guessCandidates("The Village Cobbler", "CA")
	require.NotEmpty(t, candidates)

	assert.Contains(t, candidates, "thevillagecobbler.ca")
	assert.Contains(t, candidates, "villagecobbler.ca")
	assert.Contains(t, candidates, "villagecobbler.com")
	for _, c := range candidates {
		assert.False(t, strings.HasSuffix(c, ".ae"), "CA businesses never get .ae candidates: %s", c)
	}
}

func TestGuessCandidatesDefaultTLDs(t *testing.T) {
	candidates := guessCandidates("Sunrise Bakery", "")
	require.NotEmpty(t, candidates)
	assert.Contains(t, candidates, "sunrisebakery.com")
	for _, c := range candidates {
		assert.False(t, strings.HasSuffix(c, ".ca"))
	}
}

func TestGuessCandidatesStripsEntitySuffix(t *testing.T) {
	candidates := guessCandidates("Falcon Trading LLC", "AE")
	require.NotEmpty(t, candidates)
	assert.Contains(t, candidates, "falcontrading.ae")
	assert.Contains(t, candidates, "falcon.ae")
	for _, c := range candidates {
		assert.NotContains(t, c, "llc")
	}
}

func TestGuessCandidatesEmptyName(t *testing.T) {
	assert.Empty(t, guessCandidates("", "CA"))
	assert.Empty(t, guessCandidates("& - the", "CA"))
}

func TestMorphVariants(t *testing.T) {
	assert.Contains(t, morphVariants("bakeries"), "bakery")
	assert.Contains(t, morphVariants("repairs"), "repair")
	assert.Contains(t, morphVariants("repair"), "repairs")
	assert.Contains(t, morphVariants("glass"), "glasses")
	assert.NotContains(t, morphVariants("glass"), "glas")
	assert.Contains(t, morphVariants("alyaseen"), "yaseen")
	assert.Contains(t, morphVariants("yaseen"), "yasin")
}

func realPage(title, body string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>")
	b.WriteString(title)
	b.WriteString("</title></head><body>")
	b.WriteString(body)
	// Padding past the minimum-size floor.
	b.WriteString(strings.Repeat("<p>lorem ipsum dolor sit amet</p>", 30))
	b.WriteString("</body></html>")
	return b.String()
}

func TestValidateGuess(t *testing.T) {
	tests := []struct {
		name string
		biz  string
		page pageFacts
		want bool
	}{
		{
			name: "three word name with two distinctive matches",
			biz:  "Harbour Light Electrical Services",
			page: pageFacts{
				candidate: "harbourlight.ca",
				finalHost: "harbourlight.ca",
				body:      realPage("Harbour Light Electrical", "Harbour Light serves the coast."),
			},
			want: true,
		},
		{
			name: "page about something else entirely",
			biz:  "Harbour Light Electrical Services",
			page: pageFacts{
				candidate: "harbourlight.ca",
				finalHost: "harbourlight.ca",
				body:      realPage("Discount Hosting Plans", "Cheap hosting for everyone."),
			},
			want: false,
		},
		{
			name: "parked for-sale page",
			biz:  "Harbour Light Electrical Services",
			page: pageFacts{
				candidate: "harbourlight.ca",
				finalHost: "harbourlight.ca",
				body:      realPage("harbourlight.ca", "This domain is for sale. Harbour Light Electrical."),
			},
			want: false,
		},
		{
			name: "tiny body rejected",
			biz:  "Harbour Light Electrical Services",
			page: pageFacts{
				candidate: "harbourlight.ca",
				finalHost: "harbourlight.ca",
				body:      "<html><title>Harbour Light</title></html>",
			},
			want: false,
		},
		{
			name: "redirect to unrelated domain",
			biz:  "Harbour Light Electrical Services",
			page: pageFacts{
				candidate:  "harbourlight.ca",
				finalHost:  "godaddy.com",
				redirected: true,
				body:       realPage("Harbour Light Electrical", "Harbour Light serves the coast."),
			},
			want: false,
		},
		{
			name: "redirect to www variant still accepted",
			biz:  "Harbour Light Electrical Services",
			page: pageFacts{
				candidate:  "harbourlight.ca",
				finalHost:  "harbourlight.ca",
				redirected: true,
				body:       realPage("Harbour Light Electrical", "Harbour and light appear here."),
			},
			want: true,
		},
		{
			name: "two word name both distinctive words present",
			biz:  "Village Cobbler",
			page: pageFacts{
				candidate: "villagecobbler.ca",
				finalHost: "villagecobbler.ca",
				body:      realPage("Village Cobbler Shoe Repair", "The Village Cobbler fixes shoes."),
			},
			want: true,
		},
		{
			name: "two word name only one distinctive word present",
			biz:  "Village Cobbler",
			page: pageFacts{
				candidate: "villagecobbler.ca",
				finalHost: "villagecobbler.ca",
				body:      realPage("Village Community Hall", "Book the village hall today."),
			},
			want: false,
		},
		{
			name: "single word name in title",
			biz:  "Mariposa",
			page: pageFacts{
				candidate: "mariposa.com",
				finalHost: "mariposa.com",
				body:      realPage("Mariposa Fine Dining", "Welcome to our restaurant."),
			},
			want: true,
		},
		{
			name: "single word name only in body",
			biz:  "Mariposa",
			page: pageFacts{
				candidate: "mariposa.com",
				finalHost: "mariposa.com",
				body:      realPage("Welcome", "Mariposa appears only down here."),
			},
			want: false,
		},
		{
			name: "domain echo title without meta rescue",
			biz:  "Mariposa",
			page: pageFacts{
				candidate: "mariposa.com",
				finalHost: "mariposa.com",
				body:      realPage("mariposa.com", "Mariposa mariposa mariposa."),
			},
			want: false,
		},
		{
			name: "four word name with single brand match rejected",
			biz:  "Colborne Street United Church",
			page: pageFacts{
				candidate: "colborne.com",
				finalHost: "colborne.com",
				body:      realPage("Colborne Foodbotics", "Colborne builds food robotics systems."),
			},
			want: false,
		},
		{
			name: "location words never count as evidence",
			biz:  "College Street Medical Labs",
			page: pageFacts{
				candidate: "collegestreet.ca",
				finalHost: "collegestreet.ca",
				body:      realPage("College Street BIA", "Shops and events on College Street."),
			},
			want: false,
		},
		{
			name: "three word name carried by one very distinctive word",
			biz:  "Mackenzie Auto Repair",
			page: pageFacts{
				candidate: "mackenzieauto.ca",
				finalHost: "mackenzieauto.ca",
				body:      realPage("Mackenzie Garage", "Mackenzie services all makes."),
			},
			want: true,
		},
		{
			name: "four word name needs two brand matches even with a long one",
			biz:  "St Gabriel Medical Centre Clinic",
			page: pageFacts{
				candidate: "gabriel.ca",
				finalHost: "gabriel.ca",
				body:      realPage("St Gabriel Parish", "The Gabriel parish community welcomes you."),
			},
			want: false,
		},
		{
			name: "generic title for multi word name",
			biz:  "Village Cobbler",
			page: pageFacts{
				candidate: "villagecobbler.ca",
				finalHost: "villagecobbler.ca",
				body:      realPage("Home", "Village Cobbler shoe repairs since 1981."),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validateGuess(tt.biz, tt.page))
		})
	}
}

func TestDomainGuessVerifier(t *testing.T) {
	liveBody := realPage("Village Cobbler Shoe Repair", "The Village Cobbler fixes shoes.")

	v := &DomainGuessVerifier{
		fetch: func(_ context.Context, candidate string) *probeOutcome {
			if candidate == "villagecobbler.ca" {
				return &probeOutcome{
					candidate: candidate,
					alive:     true,
					finalURL:  "https://villagecobbler.ca/",
					body:      liveBody,
				}
			}
			return &probeOutcome{candidate: candidate}
		},
	}

	in := Input{
		Business: model.Business{Name: "The Village Cobbler"},
		Country:  "CA",
	}
	out, err := v.Verify(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, VerdictHasWebsite, out.Verdict)
	assert.Equal(t, "https://villagecobbler.ca/", out.WebsiteURL)
}

func TestDomainGuessVerifierNoMatch(t *testing.T) {
	v := &DomainGuessVerifier{
		fetch: func(_ context.Context, candidate string) *probeOutcome {
			return &probeOutcome{candidate: candidate}
		},
	}
	out, err := v.Verify(context.Background(), Input{
		Business: model.Business{Name: "The Village Cobbler"},
		Country:  "CA",
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictNoMatch, out.Verdict)
}

func TestDomainGuessVerifierNoCandidates(t *testing.T) {
	v := &DomainGuessVerifier{
		fetch: func(_ context.Context, candidate string) *probeOutcome {
			t.Fatal("fetch must not be called without candidates")
			return nil
		},
	}
	out, err := v.Verify(context.Background(), Input{Business: model.Business{Name: "&"}})
	require.NoError(t, err)
	assert.Equal(t, VerdictNoCandidates, out.Verdict)
}
