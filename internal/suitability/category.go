// Package suitability combines terrain, flood and amenity criteria into a
// site-suitability score on a common reference grid.
package suitability

import (
	"image/color"

	"github.com/sells-group/siteselect/internal/overpass"
)

// Thresholds, in degrees for slope and map units (metres in UTM) for
// distances. A value equal to the threshold is not suitable.
const (
	SlopeThresholdDegrees = 10.0
	RoadThreshold         = 500.0
	SchoolThreshold       = 1000.0
	MarketThreshold       = 1000.0
	HospitalThreshold     = 2000.0
)

// MaxScore is the highest possible suitability score, one point per amenity
// category.
const MaxScore = 4

// Category describes one amenity criterion. Every category runs through the
// same fetch, filter, distance and reclassify steps.
type Category struct {
	Name        string
	Key         string
	Values      []string
	Threshold   float64
	Hint        overpass.Hint
	RequireName bool
	Color       color.RGBA // marker colour on the amenities map
}

// Query returns the Overpass query for c.
func (c Category) Query() overpass.Query {
	return overpass.Query{Key: c.Key, Values: c.Values, Hint: c.Hint}
}

// DefaultCategories returns the four amenity categories in output order.
func DefaultCategories() []Category {
	return []Category{
		{
			Name:      "roads",
			Key:       "highway",
			Values:    []string{"motorway", "trunk", "primary", "secondary"},
			Threshold: RoadThreshold,
			Hint:      overpass.HintLines,
			Color:     color.RGBA{R: 60, G: 60, B: 60, A: 255},
		},
		{
			Name:        "schools",
			Key:         "amenity",
			Values:      []string{"school"},
			Threshold:   SchoolThreshold,
			Hint:        overpass.HintAreal,
			RequireName: true,
			Color:       color.RGBA{R: 117, G: 107, B: 177, A: 255},
		},
		{
			Name:        "markets",
			Key:         "shop",
			Values:      []string{"supermarket"},
			Threshold:   MarketThreshold,
			Hint:        overpass.HintAreal,
			RequireName: true,
			Color:       color.RGBA{R: 230, G: 85, B: 13, A: 255},
		},
		{
			Name:        "hospitals",
			Key:         "amenity",
			Values:      []string{"hospital"},
			Threshold:   HospitalThreshold,
			Hint:        overpass.HintAreal,
			RequireName: true,
			Color:       color.RGBA{R: 222, G: 45, B: 38, A: 255},
		},
	}
}
