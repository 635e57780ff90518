package raster

import "math"

// neighbour offsets, clockwise from north-west
var (
	dX = [8]int{-1, 0, 1, 1, 1, 0, -1, -1}
	dY = [8]int{-1, -1, -1, 0, 1, 1, 1, 0}
)

// Slope returns the terrain slope of g in degrees using Horn's 3x3 finite
// difference. Neighbours beyond the grid edge or holding NoData take the
// centre cell's elevation, so a flat grid has zero slope everywhere including
// its border. NoData cells stay NoData; the result uses DefaultNoData as its
// sentinel.
func Slope(g *Grid) *Grid {
	out := g.LikeWithNoData(DefaultNoData)
	var z [8]float64

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			i := g.Index(c, r)
			zc := g.Data[i]
			if g.IsNoData(zc) {
				out.Data[i] = out.NoData
				continue
			}
			for n := 0; n < 8; n++ {
				cc, rr := c+dX[n], r+dY[n]
				z[n] = zc
				if cc < 0 || rr < 0 || cc >= g.Cols || rr >= g.Rows {
					continue
				}
				if v := g.At(cc, rr); !g.IsNoData(v) {
					z[n] = v
				}
			}
			// z: 0 nw, 1 n, 2 ne, 3 e, 4 se, 5 s, 6 sw, 7 w
			dzdx := ((z[2] + 2*z[3] + z[4]) - (z[0] + 2*z[7] + z[6])) / (8 * g.CellSize)
			dzdy := ((z[6] + 2*z[5] + z[4]) - (z[0] + 2*z[1] + z[2])) / (8 * g.CellSize)
			out.Data[i] = math.Atan(math.Hypot(dzdx, dzdy)) * 180 / math.Pi
		}
	}
	return out
}
