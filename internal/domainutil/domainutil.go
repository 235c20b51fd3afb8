// Package domainutil normalizes domain strings and classifies public email
// providers. The normalized form is the key for every Domain row, so all
// callers must go through Normalize before touching the store.
package domainutil

import (
	"net/url"
	"strings"
	"unicode"
)

// publicEmailDomains are free-mailbox providers whose domains never identify
// a business.
var publicEmailDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"yahoo.com":      {},
	"yahoo.co.uk":    {},
	"yahoo.ae":       {},
	"hotmail.com":    {},
	"outlook.com":    {},
	"live.com":       {},
	"msn.com":        {},
	"icloud.com":     {},
	"me.com":         {},
	"aol.com":        {},
	"protonmail.com": {},
	"pm.me":          {},
	"mail.com":       {},
	"gmx.com":        {},
	"zoho.com":       {},
	"yandex.com":     {},
}

// publicEmailPrefixes catch ccTLD variants of the big providers
// (gmail.de, yahoo.fr, ...).
var publicEmailPrefixes = []string{
	"gmail.",
	"googlemail.",
	"yahoo.",
	"hotmail.",
	"outlook.",
	"live.",
	"icloud.",
	"aol.",
	"protonmail.",
	"yandex.",
	"gmx.",
	"zoho.",
}

// Normalize reduces a URL, email address, or bare host to a canonical
// lowercase domain. Returns "" when the input does not yield a plausible
// domain (no dot, embedded whitespace).
func Normalize(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}

	if strings.Contains(value, "@") && !strings.Contains(value, "://") {
		value = value[strings.Index(value, "@")+1:]
	}

	var host string
	if strings.Contains(value, "://") {
		parsed, err := url.Parse(value)
		if err != nil {
			return ""
		}
		host = parsed.Host
	} else {
		host = strings.SplitN(value, "/", 2)[0]
	}

	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	host = strings.TrimPrefix(host, "www.")
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}

	if !strings.Contains(host, ".") {
		return ""
	}
	if strings.IndexFunc(host, unicode.IsSpace) >= 0 {
		return ""
	}

	return host
}

// FromEmail extracts the normalized domain of an email address.
func FromEmail(email string) string {
	if email == "" || !strings.Contains(email, "@") {
		return ""
	}
	return Normalize(email)
}

// IsPublicEmailDomain reports whether domain belongs to a free-mailbox
// provider.
func IsPublicEmailDomain(domain string) bool {
	candidate := strings.ToLower(strings.TrimSpace(domain))
	if candidate == "" {
		return false
	}
	if _, ok := publicEmailDomains[candidate]; ok {
		return true
	}
	for _, prefix := range publicEmailPrefixes {
		if strings.HasPrefix(candidate, prefix) {
			return true
		}
	}
	return false
}
