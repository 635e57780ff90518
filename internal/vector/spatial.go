package vector

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/siteselect/internal/raster"
)

// Contains reports whether c lies inside a polygonal geometry. Rings are
// combined by even-odd parity so holes and overlapping shapefile parts work
// without knowing ring orientation.
func Contains(g geom.T, c geom.Coord) bool {
	flat, ends, ok := rings(g)
	if !ok {
		return false
	}
	inside := false
	start := 0
	for _, end := range ends {
		if end-start >= 3*g.Stride() && xy.IsPointInRing(g.Layout(), c, flat[start:end]) {
			inside = !inside
		}
		start = end
	}
	return inside
}

// Distance returns the planar distance from c to g; zero when c is inside a
// polygon.
func Distance(g geom.T, c geom.Coord) float64 {
	stride := g.Stride()
	switch t := g.(type) {
	case *geom.Point, *geom.MultiPoint:
		return nearestVertex(t.FlatCoords(), stride, c)
	case *geom.LineString:
		return lineDistance(t.Layout(), t.FlatCoords(), c)
	case *geom.MultiLineString:
		return partsDistance(t.Layout(), t.FlatCoords(), t.Ends(), c)
	case *geom.Polygon, *geom.MultiPolygon:
		if Contains(g, c) {
			return 0
		}
		flat, ends, _ := rings(g)
		return partsDistance(g.Layout(), flat, ends, c)
	}
	return math.Inf(1)
}

func rings(g geom.T) ([]float64, []int, bool) {
	switch t := g.(type) {
	case *geom.Polygon:
		return t.FlatCoords(), t.Ends(), true
	case *geom.MultiPolygon:
		return t.FlatCoords(), flattenEndss(t.Endss()), true
	}
	return nil, nil, false
}

func nearestVertex(flat []float64, stride int, c geom.Coord) float64 {
	best := math.Inf(1)
	for i := 0; i+1 < len(flat); i += stride {
		best = math.Min(best, math.Hypot(flat[i]-c[0], flat[i+1]-c[1]))
	}
	return best
}

func lineDistance(layout geom.Layout, flat []float64, c geom.Coord) float64 {
	if len(flat) < 2*layout.Stride() {
		return nearestVertex(flat, layout.Stride(), c)
	}
	return xy.DistanceFromPointToLineString(layout, c, flat)
}

func partsDistance(layout geom.Layout, flat []float64, ends []int, c geom.Coord) float64 {
	best := math.Inf(1)
	start := 0
	for _, end := range ends {
		if end > start {
			best = math.Min(best, lineDistance(layout, flat[start:end], c))
		}
		start = end
	}
	return best
}

// Burn rasterizes the polygons of s onto the geometry of ref: a cell is 1
// when its centre falls inside any polygon and 0 otherwise. Non-polygonal
// features are ignored.
func Burn(ref *raster.Grid, s FeatureSet) *raster.Grid {
	out := ref.LikeWithNoData(raster.DefaultNoData)
	if !s.HasFeatures() {
		return out
	}

	ext := ref.Extent()
	cs := ref.CellSize
	for _, f := range s.Features {
		if _, _, ok := rings(f.Geom); !ok {
			continue
		}
		b := f.Geom.Bounds()
		if b.IsEmpty() {
			continue
		}
		c0 := max(0, int(math.Floor((b.Min(0)-ext.MinX)/cs)))
		c1 := min(ref.Cols-1, int(math.Floor((b.Max(0)-ext.MinX)/cs)))
		r0 := max(0, int(math.Floor((ext.MaxY-b.Max(1))/cs)))
		r1 := min(ref.Rows-1, int(math.Floor((ext.MaxY-b.Min(1))/cs)))

		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				i := ref.Index(c, r)
				if out.Data[i] == 1 {
					continue
				}
				x, y := ref.Center(c, r)
				if Contains(f.Geom, geom.Coord{x, y}) {
					out.Data[i] = 1
				}
			}
		}
	}
	return out
}
