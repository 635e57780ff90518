package suitability

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/siteselect/internal/raster"
)

// Predicate decides whether a valid cell value is suitable.
type Predicate func(v float64) bool

// LessThan is satisfied by values strictly below t.
func LessThan(t float64) Predicate {
	return func(v float64) bool { return v < t }
}

// Equal is satisfied by values equal to want.
func Equal(want float64) Predicate {
	return func(v float64) bool { return v == want }
}

// Reclassify maps every cell of g to 1 when pred holds and 0 otherwise.
// NoData, NaN and infinite cells are always 0, so the result holds only 0 and
// 1.
func Reclassify(g *raster.Grid, pred Predicate) *raster.Grid {
	out := g.LikeWithNoData(raster.DefaultNoData)
	for i, v := range g.Data {
		if g.IsNoData(v) || !pred(v) {
			continue
		}
		out.Data[i] = 1
	}
	return out
}

// Sum adds masks cell by cell. Every mask must share ref's geometry. Cells
// outside ref's valid extent are NoData.
func Sum(ref *raster.Grid, masks ...*raster.Grid) (*raster.Grid, error) {
	out := ref.LikeWithNoData(raster.DefaultNoData)
	for _, m := range masks {
		if !m.SameGeometry(ref) {
			return nil, eris.New("suitability: mask geometry does not match reference grid")
		}
	}
	for i := range out.Data {
		if !ref.Valid(i) {
			out.Data[i] = out.NoData
			continue
		}
		var s float64
		for _, m := range masks {
			s += m.Data[i]
		}
		out.Data[i] = s
	}
	return out, nil
}

// Aggregate computes (sum of amenity masks) * flood * slope. Flood and slope
// act as a veto: a 0 in either zeroes the cell whatever its amenity sum. The
// result is an integer score in [0, len(amenities)] inside ref's valid extent
// and NoData outside it.
func Aggregate(ref *raster.Grid, amenities []*raster.Grid, flood, slope *raster.Grid) (*raster.Grid, error) {
	if !flood.SameGeometry(ref) || !slope.SameGeometry(ref) {
		return nil, eris.New("suitability: constraint mask geometry does not match reference grid")
	}
	score, err := Sum(ref, amenities...)
	if err != nil {
		return nil, eris.Wrap(err, "suitability: aggregate")
	}
	for i, v := range score.Data {
		if !ref.Valid(i) {
			continue
		}
		score.Data[i] = math.Round(v * flood.Data[i] * slope.Data[i])
	}
	return score, nil
}
