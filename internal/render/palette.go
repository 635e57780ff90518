// Package render draws thematic maps of grids and feature sets as images.
package render

import (
	"image/color"
	"math"
)

// Palette maps a valid cell value to a colour.
type Palette func(v float64) color.RGBA

// Stop anchors a colour at a value on a Ramp.
type Stop struct {
	Value float64
	Color color.RGBA
}

// Ramp interpolates linearly between stops, clamping outside them. Stops must
// be sorted by value.
func Ramp(stops ...Stop) Palette {
	return func(v float64) color.RGBA {
		if len(stops) == 0 {
			return color.RGBA{}
		}
		if v <= stops[0].Value {
			return stops[0].Color
		}
		for i := 1; i < len(stops); i++ {
			if v <= stops[i].Value {
				a, b := stops[i-1], stops[i]
				t := (v - a.Value) / (b.Value - a.Value)
				return lerp(a.Color, b.Color, t)
			}
		}
		return stops[len(stops)-1].Color
	}
}

// Classes colours integer values by index; values outside the table take the
// last colour.
func Classes(colors ...color.RGBA) Palette {
	return func(v float64) color.RGBA {
		k := int(math.Round(v))
		if k < 0 {
			k = 0
		}
		if k >= len(colors) {
			k = len(colors) - 1
		}
		return colors[k]
	}
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// Common colours.
var (
	Transparent = color.RGBA{}
	Unsuitable  = color.RGBA{R: 215, G: 48, B: 39, A: 255}
	Suitable    = color.RGBA{R: 26, G: 152, B: 80, A: 255}
	Water       = color.RGBA{R: 49, G: 130, B: 189, A: 160}
)

// Terrain is a green-brown-white hypsometric ramp between lo and hi.
func Terrain(lo, hi float64) Palette {
	if hi <= lo {
		hi = lo + 1
	}
	span := hi - lo
	return Ramp(
		Stop{lo, color.RGBA{R: 56, G: 128, B: 63, A: 255}},
		Stop{lo + 0.35*span, color.RGBA{R: 196, G: 200, B: 120, A: 255}},
		Stop{lo + 0.7*span, color.RGBA{R: 150, G: 105, B: 60, A: 255}},
		Stop{hi, color.RGBA{R: 245, G: 245, B: 245, A: 255}},
	)
}

// Greys is a dark-to-light grey ramp between lo and hi, used under overlays.
func Greys(lo, hi float64) Palette {
	if hi <= lo {
		hi = lo + 1
	}
	return Ramp(
		Stop{lo, color.RGBA{R: 90, G: 90, B: 90, A: 255}},
		Stop{hi, color.RGBA{R: 230, G: 230, B: 230, A: 255}},
	)
}

// Binary colours 0 as unsuitable and 1 as suitable.
func Binary() Palette { return Classes(Unsuitable, Suitable) }

// Score colours a 0..4 suitability score from red to green.
func Score() Palette {
	return Classes(
		color.RGBA{R: 215, G: 48, B: 39, A: 255},
		color.RGBA{R: 252, G: 141, B: 89, A: 255},
		color.RGBA{R: 254, G: 224, B: 139, A: 255},
		color.RGBA{R: 145, G: 207, B: 96, A: 255},
		color.RGBA{R: 26, G: 152, B: 80, A: 255},
	)
}
