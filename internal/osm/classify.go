package osm

import "strings"

var foodAmenities = map[string]bool{
	"restaurant": true, "cafe": true, "fast_food": true,
	"food_court": true, "bar": true, "pub": true,
}

var healthAmenities = map[string]bool{
	"clinic": true, "hospital": true, "doctors": true,
	"dentist": true, "pharmacy": true,
}

var educationAmenities = map[string]bool{
	"school": true, "college": true, "university": true, "kindergarten": true,
}

var financeAmenities = map[string]bool{
	"bank": true, "bureau_de_change": true, "atm": true,
}

var autoAmenities = map[string]bool{
	"fuel": true, "car_wash": true, "car_rental": true, "car_repair": true,
}

// MatchCategory returns the category of the first filter whose tags all
// match, or "" when none do or the winning filter is an "any_" catch-all.
func MatchCategory(filters []Filter, tags map[string]string) string {
	for _, filt := range filters {
		if !filterMatches(filt, tags) {
			continue
		}
		if strings.HasPrefix(filt.Category, "any_") {
			return ""
		}
		return filt.Category
	}
	return ""
}

func filterMatches(filt Filter, tags map[string]string) bool {
	for key, value := range filt.Tags {
		if value == "*" {
			if _, ok := tags[key]; !ok {
				return false
			}
			continue
		}
		if tags[key] != value {
			return false
		}
	}
	return true
}

// ClassifyTags maps raw OSM tags to a pipeline category. Craft businesses
// are the highest-value leads, so they win over every other tag family.
func ClassifyTags(tags map[string]string) string {
	if tags["craft"] != "" {
		return "trades"
	}
	if tags["office"] == "construction_company" || tags["company"] == "construction" {
		return "contractors"
	}

	amenity := tags["amenity"]
	switch {
	case foodAmenities[amenity]:
		return "food"
	case healthAmenities[amenity] || tags["healthcare"] != "":
		return "health"
	case educationAmenities[amenity]:
		return "education"
	case financeAmenities[amenity]:
		return "finance"
	case amenity == "place_of_worship":
		return "religious"
	case autoAmenities[amenity]:
		return "auto"
	}

	switch {
	case tags["shop"] != "":
		return "retail"
	case tags["tourism"] != "":
		return "hospitality"
	case tags["leisure"] != "":
		return "recreation"
	case tags["office"] != "":
		return "professional_services"
	case tags["industrial"] != "":
		return "industrial"
	}
	return "other"
}

// ExtractAddress builds a display address from addr:* tags.
func ExtractAddress(tags map[string]string) string {
	if full := tags["addr:full"]; full != "" {
		return full
	}
	var parts []string
	for _, key := range []string{"addr:housenumber", "addr:street", "addr:city", "addr:postcode", "addr:country"} {
		if v := tags[key]; v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// ExtractWebsite returns the first website-style tag value.
func ExtractWebsite(tags map[string]string) string {
	for _, key := range []string{"website", "contact:website", "url"} {
		if v := tags[key]; v != "" {
			return v
		}
	}
	return ""
}
