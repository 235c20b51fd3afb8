package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainMatchesName(t *testing.T) {
	tests := []struct {
		host string
		name string
		want bool
	}{
		{"villagecobbler.ca", "The Village Cobbler", true},
		{"village-cobbler.ca", "The Village Cobbler", true},
		{"acmeplumbing.com", "Acme Plumbing", true},
		// A 7+ char name word in the domain base is enough on its own.
		{"plumbingpros.com", "Acme Plumbing", true},
		{"acehvac.com", "Acme Plumbing", false},
		{"randomsite.com", "Acme Plumbing", false},
		{"mariposarestaurant.com", "Mariposa", true}, // 7+ char distinctive word
		{"marip.com", "Mariposa", false},
		{"", "Acme Plumbing", false},
		{"acme.com", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domainMatchesName(tt.host, tt.name),
			"host=%s name=%s", tt.host, tt.name)
	}
}

func TestTitleMatchesName(t *testing.T) {
	assert.True(t, titleMatchesName("Acme Plumbing | Home", "Acme Plumbing"))
	assert.False(t, titleMatchesName("Acme Widgets Catalog", "Acme Plumbing"))
	// Single-word names never title-match.
	assert.False(t, titleMatchesName("Mariposa Restaurant", "Mariposa"))
	// Two of four words is under 60% coverage.
	assert.False(t, titleMatchesName("Colborne Street Parking", "Colborne Street United Church"))
}

func TestIsDirectoryDomain(t *testing.T) {
	assert.True(t, isDirectoryDomain("www.yelp.ca"))
	assert.True(t, isDirectoryDomain("facebook.com"))
	assert.True(t, isDirectoryDomain("en.wikipedia.org"))
	assert.False(t, isDirectoryDomain("acmeplumbing.com"))
}

func TestIsArticleURL(t *testing.T) {
	assert.True(t, isArticleURL("https://example.com/2024/03/grand-opening"))
	assert.True(t, isArticleURL("https://example.com/blog/new-location"))
	assert.True(t, isArticleURL("https://example.com/why-we-opened-a-second-shop-in-town"))
	assert.False(t, isArticleURL("https://example.com/"))
	assert.False(t, isArticleURL("https://example.com/about"))
}

func TestDomainsRelated(t *testing.T) {
	assert.True(t, domainsRelated("acme.com", "acme.com"))
	assert.True(t, domainsRelated("acme.com", "www.acme.com"))
	assert.True(t, domainsRelated("acme.ca", "acme.com"))
	assert.True(t, domainsRelated("acmeplumbing.com", "acmeplumbingltd.com"))
	assert.False(t, domainsRelated("acme.com", "godaddy.com"))
	// No final host means no redirect evidence either way.
	assert.True(t, domainsRelated("acme.com", ""))
	assert.True(t, domainsRelated("", "acme.com"))
}

func TestRootURL(t *testing.T) {
	assert.Equal(t, "https://acme.com/", rootURL("https://acme.com/services/plumbing?ref=x"))
	assert.Equal(t, "http://acme.com/", rootURL("http://acme.com"))
}

func TestPlaceNameMatches(t *testing.T) {
	assert.True(t, placeNameMatches("Acme Plumbing", "Acme Plumbing Ltd"))
	assert.True(t, placeNameMatches("The Village Cobbler", "Village Cobbler"))
	assert.False(t, placeNameMatches("Acme Plumbing", "Beta Electric"))
	// One of three name words is under the 50% floor.
	assert.False(t, placeNameMatches("Acme Plumbing Heating", "Acme Cafe"))
}
