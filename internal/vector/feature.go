// Package vector holds feature collections (flood polygons, amenity points and
// lines), their shapefile I/O, reprojection and the geometric queries the
// raster stages need.
package vector

import (
	"strings"
	"unicode/utf8"

	"github.com/twpayne/go-geom"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/siteselect/internal/projection"
)

// maxNameBytes is the widest character field a dBASE table can hold.
const maxNameBytes = 254

// Kind is the geometry family of a feature set.
type Kind int

// Geometry families. Every feature in a set belongs to the set's Kind.
const (
	KindPoint Kind = iota
	KindLine
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindPolygon:
		return "polygon"
	}
	return "unknown"
}

// State says whether a feature set was retrieved and whether it holds
// anything. Consumers branch on it instead of checking for nil.
type State int

// Feature set states.
const (
	Absent  State = iota // never retrieved
	Empty                // retrieved, no features
	Present              // at least one feature
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Empty:
		return "empty"
	case Present:
		return "present"
	}
	return "unknown"
}

// Feature is a single geometry with a display name and its source attributes.
type Feature struct {
	ID    int64
	Name  string
	Attrs map[string]string
	Geom  geom.T
}

// FeatureSet is a typed optional collection of features in one CRS.
type FeatureSet struct {
	state    State
	Kind     Kind
	CRS      projection.CRS
	Features []Feature
}

// AbsentSet returns a set that was never retrieved.
func AbsentSet(kind Kind, crs projection.CRS) FeatureSet {
	return FeatureSet{state: Absent, Kind: kind, CRS: crs}
}

// NewSet wraps features, choosing Empty or Present by length.
func NewSet(kind Kind, crs projection.CRS, features []Feature) FeatureSet {
	st := Present
	if len(features) == 0 {
		st = Empty
		features = nil
	}
	return FeatureSet{state: st, Kind: kind, CRS: crs, Features: features}
}

// State returns the set's state.
func (s FeatureSet) State() State { return s.state }

// HasFeatures reports whether the set is Present.
func (s FeatureSet) HasFeatures() bool { return s.state == Present }

// Len returns the number of features.
func (s FeatureSet) Len() int { return len(s.Features) }

// Filter keeps the features for which keep returns true. An Absent set stays
// Absent; filtering everything out yields Empty.
func (s FeatureSet) Filter(keep func(Feature) bool) FeatureSet {
	if s.state == Absent {
		return s
	}
	var out []Feature
	for _, f := range s.Features {
		if keep(f) {
			out = append(out, f)
		}
	}
	return NewSet(s.Kind, s.CRS, out)
}

// Named keeps only features with a non-blank name.
func (s FeatureSet) Named() FeatureSet {
	return s.Filter(func(f Feature) bool { return f.Name != "" })
}

// CleanName normalises a free-text name to NFC, trims surrounding space and
// truncates it on a rune boundary to fit a dBASE character field.
func CleanName(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	if len(s) <= maxNameBytes {
		return s
	}
	s = s[:maxNameBytes]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
