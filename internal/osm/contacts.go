package osm

import (
	"regexp"
	"strings"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

// Some OSM exports wrap phone numbers in bidi isolate marks.
const bidiMarks = "⁦⁧⁨⁩‎‏"

var invalidContactValues = map[string]bool{
	"-": true, "n/a": true, "na": true, "none": true,
	"null": true, "unknown": true, "0": true,
}

var phoneKeys = map[string]bool{
	"phone": true, "contact:phone": true,
	"mobile": true, "contact:mobile": true,
	"telephone": true, "contact:telephone": true,
	"tel": true, "contact:tel": true,
	"whatsapp": true, "contact:whatsapp": true,
}

var emailKeys = map[string]bool{
	"email": true, "contact:email": true,
}

var contactPhoneKinds = map[string]bool{
	"phone": true, "mobile": true, "telephone": true, "tel": true, "whatsapp": true,
}

// Phone fields are often "a;b", "a, b", "a / b", or "a or b".
var (
	phoneSplitRe = regexp.MustCompile(`(?i)(?:\s*/\s*)|(?:\s*[,;:\n]\s*)|\s+or\s+`)
	emailSplitRe = regexp.MustCompile(`[,\s;\n]+`)
)

// ExtractContacts pulls deduplicated phone/email pairs out of an OSM tag
// map, normalizing the common key variants and multi-value separators.
func ExtractContacts(tags map[string]string) []model.BusinessContact {
	var out []model.BusinessContact
	seen := map[string]bool{}

	add := func(contactType model.ContactType, value string) {
		key := string(contactType) + "\x00" + value
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, model.BusinessContact{Type: contactType, Value: value, Source: "osm"})
	}

	for key, value := range tags {
		normalized := strings.ToLower(strings.TrimSpace(key))
		if !isPhoneKey(normalized) {
			continue
		}
		cleaned, ok := cleanContactValue(value)
		if !ok {
			continue
		}
		if strings.HasPrefix(strings.ToLower(cleaned), "tel:") {
			cleaned = strings.TrimSpace(cleaned[4:])
		}
		for _, part := range splitContactValue(cleaned, phoneSplitRe) {
			add(model.ContactPhone, part)
		}
	}

	for key, value := range tags {
		normalized := strings.ToLower(strings.TrimSpace(key))
		if !isEmailKey(normalized) {
			continue
		}
		cleaned, ok := cleanContactValue(value)
		if !ok {
			continue
		}
		if strings.HasPrefix(strings.ToLower(cleaned), "mailto:") {
			cleaned = strings.TrimSpace(cleaned[7:])
		}
		for _, part := range splitContactValue(cleaned, emailSplitRe) {
			email := strings.Trim(strings.ToLower(part), ";,")
			if !strings.Contains(email, "@") {
				continue
			}
			add(model.ContactEmail, email)
		}
	}

	return out
}

func isPhoneKey(key string) bool {
	if phoneKeys[key] {
		return true
	}
	if rest, ok := strings.CutPrefix(key, "contact:"); ok {
		kind, _, _ := strings.Cut(rest, ":")
		return contactPhoneKinds[kind]
	}
	return strings.HasPrefix(key, "phone:") ||
		strings.HasPrefix(key, "mobile:") ||
		strings.HasPrefix(key, "telephone:")
}

func isEmailKey(key string) bool {
	if emailKeys[key] {
		return true
	}
	if rest, ok := strings.CutPrefix(key, "contact:"); ok {
		kind, _, _ := strings.Cut(rest, ":")
		return kind == "email"
	}
	return strings.HasPrefix(key, "email:")
}

func cleanContactValue(value string) (string, bool) {
	cleaned := strings.TrimSpace(stripBidi(value))
	if cleaned == "" || invalidContactValues[strings.ToLower(cleaned)] {
		return "", false
	}
	return cleaned, true
}

func splitContactValue(value string, splitter *regexp.Regexp) []string {
	var out []string
	for _, raw := range splitter.Split(value, -1) {
		if cleaned, ok := cleanContactValue(raw); ok {
			out = append(out, cleaned)
		}
	}
	return out
}

func stripBidi(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(bidiMarks, r) {
			return -1
		}
		return r
	}, s)
}
