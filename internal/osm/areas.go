// Package osm imports businesses from OpenStreetMap via the Overpass API
// and extracts outreach-ready contact details from their tags.
package osm

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// BBox is a lat/lon bounding box.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Area is one search region: either tag-addressed (Overpass area) or a
// bounding box.
type Area struct {
	Key      string            `json:"-"`
	Name     string            `json:"name"`
	Country  string            `json:"country,omitempty"`
	Region   string            `json:"region,omitempty"`
	AreaTags map[string]string `json:"area_tags,omitempty"`
	BBox     *BBox             `json:"bbox,omitempty"`
}

// Filter is one tag predicate mapping matched elements to a category. A
// value of "*" means key presence only. Categories prefixed "any_" match
// without assigning, deferring to tag classification.
type Filter struct {
	Category string            `json:"category"`
	Tags     map[string]string `json:"tags"`
}

// Category groups filters under a selectable key.
type Category struct {
	Key     string   `json:"-"`
	Label   string   `json:"label,omitempty"`
	Filters []Filter `json:"filters"`
}

// LoadAreas reads the area definitions file.
func LoadAreas(path string) (map[string]Area, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "osm: read areas file %s", path)
	}
	var raw map[string]Area
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "osm: parse areas file %s", path)
	}
	out := make(map[string]Area, len(raw))
	for key, area := range raw {
		area.Key = key
		out[key] = area
	}
	return out, nil
}

// LoadCategories reads the category filter definitions file.
func LoadCategories(path string) (map[string]Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "osm: read categories file %s", path)
	}
	var raw map[string]Category
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "osm: parse categories file %s", path)
	}
	out := make(map[string]Category, len(raw))
	for key, cat := range raw {
		cat.Key = key
		if cat.Label == "" {
			cat.Label = key
		}
		out[key] = cat
	}
	return out, nil
}

// Split divides the box into an n x n grid. Large metros time out as a
// single Overpass query; a grid of smaller boxes does not.
func (b BBox) Split(n int) []BBox {
	if n <= 1 {
		return []BBox{b}
	}
	latStep := (b.MaxLat - b.MinLat) / float64(n)
	lonStep := (b.MaxLon - b.MinLon) / float64(n)
	out := make([]BBox, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out = append(out, BBox{
				MinLat: b.MinLat + float64(i)*latStep,
				MinLon: b.MinLon + float64(j)*lonStep,
				MaxLat: b.MinLat + float64(i+1)*latStep,
				MaxLon: b.MinLon + float64(j+1)*lonStep,
			})
		}
	}
	return out
}

// BuildQuery renders an Overpass QL query for named elements matching any
// of the filters inside the area (or the override box).
func BuildQuery(area Area, filters []Filter, timeoutSecs int, elementTypes []string, bboxOverride *BBox) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n", timeoutSecs)

	var searchArea string
	switch {
	case bboxOverride != nil:
		searchArea = bboxClause(*bboxOverride)
	case area.BBox != nil:
		searchArea = bboxClause(*area.BBox)
	default:
		fmt.Fprintf(&b, "area%s->.searchArea;\n", tagClause(area.AreaTags, false))
		searchArea = "(area.searchArea)"
	}

	b.WriteString("(\n")
	for _, filt := range filters {
		for _, elementType := range elementTypes {
			fmt.Fprintf(&b, "  %s[\"name\"]%s%s;\n", elementType, tagClause(filt.Tags, true), searchArea)
		}
	}
	b.WriteString(");\n")
	b.WriteString("out center tags;")
	return b.String()
}

func bboxClause(box BBox) string {
	return fmt.Sprintf("(%g,%g,%g,%g)", box.MinLat, box.MinLon, box.MaxLat, box.MaxLon)
}

// tagClause renders [k=v][k2] selectors. Keys are sorted so generated
// queries are deterministic. Wildcards only apply when allowed.
func tagClause(tags map[string]string, allowWildcard bool) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := tags[k]
		if allowWildcard && v == "*" {
			fmt.Fprintf(&b, "[%q]", k)
		} else {
			fmt.Fprintf(&b, "[%q=%q]", k, v)
		}
	}
	return b.String()
}

// ChunkFilters splits filters into Overpass-friendly groups. Union queries
// over many filters hit the server's complexity limits.
func ChunkFilters(filters []Filter, size int) [][]Filter {
	if size <= 0 {
		size = 3
	}
	var out [][]Filter
	for i := 0; i < len(filters); i += size {
		end := min(i+size, len(filters))
		out = append(out, filters[i:end])
	}
	return out
}
