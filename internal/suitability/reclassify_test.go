package suitability

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/siteselect/internal/raster"
	"github.com/sells-group/siteselect/internal/vector"
)

func gridOf(t *testing.T, cols, rows int, vals ...float64) *raster.Grid {
	t.Helper()
	g, err := raster.New(cols, rows, 0, 0, 1, raster.DefaultNoData)
	require.NoError(t, err)
	copy(g.Data, vals)
	return g
}

func assertBinary(t *testing.T, g *raster.Grid) {
	t.Helper()
	for i, v := range g.Data {
		assert.Truef(t, v == 0 || v == 1, "cell %d = %v", i, v)
	}
}

func TestReclassify_LessThanIsStrict(t *testing.T) {
	g := gridOf(t, 4, 1, 499.999, 500, 500.001, 0)
	out := Reclassify(g, LessThan(RoadThreshold))
	assert.Equal(t, []float64{1, 0, 0, 1}, out.Data)
}

func TestReclassify_NonFiniteNeverSuitable(t *testing.T) {
	g := gridOf(t, 4, 1, math.NaN(), math.Inf(1), math.Inf(-1), raster.DefaultNoData)
	out := Reclassify(g, LessThan(RoadThreshold))
	assert.Equal(t, []float64{0, 0, 0, 0}, out.Data)

	out = Reclassify(g, Equal(raster.DefaultNoData))
	assert.Equal(t, []float64{0, 0, 0, 0}, out.Data)
}

func TestReclassify_Equal(t *testing.T) {
	g := gridOf(t, 3, 1, 0, 1, 0)
	out := Reclassify(g, Equal(0))
	assert.Equal(t, []float64{1, 0, 1}, out.Data)
}

func TestReclassify_Monotonic(t *testing.T) {
	vals := []float64{0, 1, 250, 499, 500, 501, 999, 1000, 1999, 2000, 5000, math.Inf(1)}
	for _, threshold := range []float64{RoadThreshold, SchoolThreshold, HospitalThreshold} {
		pred := LessThan(threshold)
		for _, v := range vals {
			for _, smaller := range vals {
				if smaller > v {
					continue
				}
				hi := Reclassify(gridOf(t, 1, 1, v), pred).Data[0]
				lo := Reclassify(gridOf(t, 1, 1, smaller), pred).Data[0]
				assert.GreaterOrEqualf(t, lo, hi, "threshold %v: %v -> %v", threshold, v, smaller)
			}
		}
	}
}

func TestReclassify_AlwaysBinary(t *testing.T) {
	g := gridOf(t, 3, 2, -5, 12.5, math.NaN(), raster.DefaultNoData, 9.99, 1e9)
	assertBinary(t, Reclassify(g, LessThan(SlopeThresholdDegrees)))
	assertBinary(t, Reclassify(g, Equal(0)))
}

func TestSum(t *testing.T) {
	ref := gridOf(t, 3, 1, 10, raster.DefaultNoData, 10)
	a := gridOf(t, 3, 1, 1, 1, 0)
	b := gridOf(t, 3, 1, 1, 1, 1)

	out, err := Sum(ref, a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, raster.DefaultNoData, 1}, out.Data)

	_, err = Sum(ref, gridOf(t, 2, 1))
	assert.Error(t, err)
}

func TestAggregate_Veto(t *testing.T) {
	ref := gridOf(t, 4, 1, 1, 1, 1, 1)
	ones := gridOf(t, 4, 1, 1, 1, 1, 1)
	amenities := []*raster.Grid{ones, ones, ones, ones}

	flood := gridOf(t, 4, 1, 1, 0, 1, 0)
	slope := gridOf(t, 4, 1, 1, 1, 0, 0)

	score, err := Aggregate(ref, amenities, flood, slope)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 0, 0, 0}, score.Data)
}

func TestAggregate_RangeAndExtent(t *testing.T) {
	ref := gridOf(t, 3, 1, 5, 5, raster.DefaultNoData)
	masks := []*raster.Grid{
		gridOf(t, 3, 1, 1, 0, 1),
		gridOf(t, 3, 1, 1, 0, 1),
		gridOf(t, 3, 1, 0, 0, 1),
		gridOf(t, 3, 1, 1, 0, 1),
	}
	ones := gridOf(t, 3, 1, 1, 1, 1)

	score, err := Aggregate(ref, masks, ones, ones)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0, raster.DefaultNoData}, score.Data)
	for i, v := range score.Data {
		if !score.Valid(i) {
			continue
		}
		assert.Equal(t, math.Round(v), v)
		assert.True(t, v >= 0 && v <= MaxScore)
	}
}

func TestAggregate_GeometryMismatch(t *testing.T) {
	ref := gridOf(t, 2, 1, 1, 1)
	_, err := Aggregate(ref, nil, gridOf(t, 3, 1), gridOf(t, 2, 1))
	assert.Error(t, err)
}

func TestDistanceField_ThresholdBoundary(t *testing.T) {
	ref := flatGrid(t)
	crs := utm30(t)
	// cell (0, 9) has its centre at originX+50, exactly 500 m from the road
	roads := vector.NewSet(vector.KindLine, crs, []vector.Feature{roadAt(originX + 550)})

	dist := DistanceField(ref, roads)
	assert.InDelta(t, 500, dist.At(0, 9), 1e-9)
	assert.InDelta(t, 400, dist.At(1, 9), 1e-9)
	assert.InDelta(t, 0, dist.At(5, 9), 1e-9)

	mask := Reclassify(dist, LessThan(RoadThreshold))
	assert.Equal(t, 0.0, mask.At(0, 9))
	assert.Equal(t, 1.0, mask.At(1, 9))
	assertBinary(t, mask)
}

func TestDistanceField_NearestOfMany(t *testing.T) {
	ref := flatGrid(t)
	crs := utm30(t)
	fs := vector.NewSet(vector.KindPoint, crs, []vector.Feature{
		point("far", originX+50, originY+5050),
		point("near", originX+50, originY+650),
	})

	dist := DistanceField(ref, fs)
	// cell (0, 9) centre is (originX+50, originY+50)
	assert.InDelta(t, 600, dist.At(0, 9), 1e-9)
}

func TestDistanceField_InsidePolygonIsZero(t *testing.T) {
	ref := flatGrid(t)
	fs := vector.NewSet(vector.KindPolygon, utm30(t), []vector.Feature{
		square("park", originX, originY, originX+300, originY+300),
	})

	dist := DistanceField(ref, fs)
	assert.Equal(t, 0.0, dist.At(1, 8))
	assert.InDelta(t, 50, dist.At(3, 9), 1e-9)
}

func TestDistanceField_EmptyAndAbsent(t *testing.T) {
	ref := flatGrid(t)
	crs := utm30(t)

	for _, fs := range []vector.FeatureSet{
		vector.NewSet(vector.KindPoint, crs, nil),
		vector.AbsentSet(vector.KindPoint, crs),
	} {
		dist := DistanceField(ref, fs)
		assert.True(t, math.IsInf(dist.At(0, 9), 1))
		assert.Equal(t, raster.DefaultNoData, dist.At(9, 0))

		mask := Reclassify(dist, LessThan(HospitalThreshold))
		assert.Equal(t, make([]float64, ref.Len()), mask.Data)
	}
}

func TestDistanceField_NoDataOutsideExtent(t *testing.T) {
	ref := flatGrid(t)
	fs := vector.NewSet(vector.KindPoint, utm30(t), []vector.Feature{point("x", originX+950, originY+950)})

	dist := DistanceField(ref, fs)
	assert.Equal(t, raster.DefaultNoData, dist.At(9, 0))
	assert.Equal(t, 0.0, Reclassify(dist, LessThan(SchoolThreshold)).At(9, 0))
}
