package classifier

import (
	"net/url"
	"strings"
)

// parkingHostHints flag parking services by substring match on the final
// URL host or any CNAME target.
var parkingHostHints = []string{
	"parkingcrew",
	"sedoparking",
	"bodis",
	"afternic",
	"dan.com",
	"namecheap",
	"hugedomains",
}

// parkingKeywords flag lander pages by substring match on the body.
var parkingKeywords = []string{
	"domain is for sale",
	"buy this domain",
	"this domain may be for sale",
	"domain for sale",
	"sedoparking",
	"bodis",
	"hugedomains",
	"dan.com",
	"afternic",
	"namecheap.com/domains",
	"parked free",
	"parking page",
	"coming soon</title>",
	"under construction</title>",
}

// DetectParking reports whether the probe landed on a parking lander:
// host-hint match on the final URL, host-hint match on any CNAME target,
// or a parking keyword in the body.
func DetectParking(finalURL string, cnameTargets []string, body string) bool {
	if host := hostOf(finalURL); host != "" {
		for _, hint := range parkingHostHints {
			if strings.Contains(host, hint) {
				return true
			}
		}
	}

	for _, target := range cnameTargets {
		lower := strings.ToLower(target)
		for _, hint := range parkingHostHints {
			if strings.Contains(lower, hint) {
				return true
			}
		}
	}

	if body != "" {
		lower := strings.ToLower(body)
		for _, kw := range parkingKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Hostname())
}
