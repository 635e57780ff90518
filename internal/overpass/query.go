// Package overpass retrieves tagged OpenStreetMap features for a bounding box
// from an Overpass API endpoint.
package overpass

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Hint tells the fetcher how a category is mapped in OSM and how its features
// should be reduced.
type Hint string

// Geometry hints.
const (
	// HintLines keeps tagged ways as line strings.
	HintLines Hint = "lines"
	// HintAreal merges tagged nodes with the centroids of tagged ways and
	// multipolygon relations, since schools or hospitals are mapped as any of
	// them.
	HintAreal Hint = "areal"
)

// Query selects features carrying Key with any of Values.
type Query struct {
	Key    string
	Values []string
	Hint   Hint
}

// Matches reports whether tags satisfy q.
func (q Query) Matches(tags map[string]string) bool {
	v, ok := tags[q.Key]
	if !ok {
		return false
	}
	for _, want := range q.Values {
		if v == want {
			return true
		}
	}
	return false
}

// BBox is a geographic bounding box in decimal degrees.
type BBox struct {
	MinLng float64 `yaml:"min_lng"`
	MinLat float64 `yaml:"min_lat"`
	MaxLng float64 `yaml:"max_lng"`
	MaxLat float64 `yaml:"max_lat"`
}

// String renders b in Overpass (south,west,north,east) order.
func (b BBox) String() string {
	return fmt.Sprintf("%.7f,%.7f,%.7f,%.7f", b.MinLat, b.MinLng, b.MaxLat, b.MaxLng)
}

// BuildQL renders the Overpass QL for q within b. Ways are always requested;
// nodes and relations only for areal categories. Members are recursed so ways
// and relations carry coordinates.
func BuildQL(b BBox, q Query, timeout time.Duration) string {
	quoted := make([]string, len(q.Values))
	for i, v := range q.Values {
		quoted[i] = regexp.QuoteMeta(v)
	}
	filter := fmt.Sprintf(`["%s"~"^(%s)$"](%s)`, q.Key, strings.Join(quoted, "|"), b)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[out:json][timeout:%d];\n(\n", int(timeout.Seconds()))
	if q.Hint == HintAreal {
		fmt.Fprintf(&sb, "  node%s;\n", filter)
	}
	fmt.Fprintf(&sb, "  way%s;\n", filter)
	if q.Hint == HintAreal {
		fmt.Fprintf(&sb, "  relation%s;\n", filter)
	}
	sb.WriteString(");\nout body;\n>;\nout skel qt;\n")
	return sb.String()
}
