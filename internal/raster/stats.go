package raster

import "math"

// Stats summarises the valid cells of a grid.
type Stats struct {
	Valid  int     `yaml:"valid"`
	NoData int     `yaml:"nodata"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Mean   float64 `yaml:"mean"`
}

// Summarize computes Stats over g. Min, Max and Mean are zero when no cell
// is valid.
func Summarize(g *Grid) Stats {
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for i, v := range g.Data {
		if !g.Valid(i) {
			s.NoData++
			continue
		}
		s.Valid++
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	if s.Valid == 0 {
		s.Min, s.Max = 0, 0
		return s
	}
	s.Mean = sum / float64(s.Valid)
	return s
}

// Histogram counts valid cells by integer value in [0, maxValue]. Values
// outside that range are ignored.
func Histogram(g *Grid, maxValue int) []int {
	h := make([]int, maxValue+1)
	for i, v := range g.Data {
		if !g.Valid(i) {
			continue
		}
		k := int(math.Round(v))
		if k < 0 || k > maxValue {
			continue
		}
		h[k]++
	}
	return h
}
