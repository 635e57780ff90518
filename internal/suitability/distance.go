package suitability

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/siteselect/internal/raster"
	"github.com/sells-group/siteselect/internal/vector"
)

// DistanceField returns, for every valid cell of ref, the planar distance from
// the cell centre to the nearest feature of fs (0 inside polygons). Cells
// outside ref's valid extent are NoData. An Absent or Empty set yields +Inf in
// every valid cell, so no threshold is ever met.
func DistanceField(ref *raster.Grid, fs vector.FeatureSet) *raster.Grid {
	out := ref.LikeWithNoData(raster.DefaultNoData)
	if !fs.HasFeatures() {
		for i := range out.Data {
			if ref.Valid(i) {
				out.Data[i] = math.Inf(1)
			} else {
				out.Data[i] = out.NoData
			}
		}
		return out
	}

	bounds := make([]*geom.Bounds, len(fs.Features))
	for i, f := range fs.Features {
		bounds[i] = f.Geom.Bounds()
	}

	for r := 0; r < ref.Rows; r++ {
		for c := 0; c < ref.Cols; c++ {
			i := ref.Index(c, r)
			if !ref.Valid(i) {
				out.Data[i] = out.NoData
				continue
			}
			x, y := ref.Center(c, r)
			best := math.Inf(1)
			for j, f := range fs.Features {
				if boundsDistance(bounds[j], x, y) >= best {
					continue
				}
				best = math.Min(best, vector.Distance(f.Geom, geom.Coord{x, y}))
				if best == 0 {
					break
				}
			}
			out.Data[i] = best
		}
	}
	return out
}

// boundsDistance is a lower bound on the distance from (x, y) to anything
// inside b.
func boundsDistance(b *geom.Bounds, x, y float64) float64 {
	if b.IsEmpty() {
		return math.Inf(1)
	}
	dx := math.Max(0, math.Max(b.Min(0)-x, x-b.Max(0)))
	dy := math.Max(0, math.Max(b.Min(1)-y, y-b.Max(1)))
	return math.Hypot(dx, dy)
}
