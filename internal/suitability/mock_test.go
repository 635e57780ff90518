package suitability

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/siteselect/internal/overpass"
	"github.com/sells-group/siteselect/internal/projection"
	"github.com/sells-group/siteselect/internal/raster"
	"github.com/sells-group/siteselect/internal/render"
	"github.com/sells-group/siteselect/internal/vector"
)

// --- FeatureSource Mock ---

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Fetch(ctx context.Context, b overpass.BBox, q overpass.Query, dst projection.CRS) (vector.FeatureSet, error) {
	args := m.Called(ctx, b, q, dst)
	return args.Get(0).(vector.FeatureSet), args.Error(1)
}

func queryFor(value string) interface{} {
	return mock.MatchedBy(func(q overpass.Query) bool {
		return len(q.Values) > 0 && q.Values[0] == value
	})
}

// --- In-memory Sink ---

type memSink struct {
	mu       sync.Mutex
	order    []string
	grids    map[string]*raster.Grid
	features map[string]vector.FeatureSet
	maps     map[string]render.Map
}

func newMemSink() *memSink {
	return &memSink{
		grids:    make(map[string]*raster.Grid),
		features: make(map[string]vector.FeatureSet),
		maps:     make(map[string]render.Map),
	}
}

func (s *memSink) Grid(_ context.Context, name string, g *raster.Grid, _ projection.CRS) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, "grid:"+name)
	s.grids[name] = g
	return nil
}

func (s *memSink) Features(_ context.Context, name string, fs vector.FeatureSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, "features:"+name)
	s.features[name] = fs
	return nil
}

func (s *memSink) Map(_ context.Context, name string, m render.Map) error {
	// Drawing catches overlays that do not line up with the base grid.
	if _, err := render.Draw(m); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, "map:"+name)
	s.maps[name] = m
	return nil
}

// --- Fixtures ---

const (
	originX = 440000.0
	originY = 4470000.0
	cell    = 100.0
)

func utm30(t *testing.T) projection.CRS {
	t.Helper()
	c, err := projection.Parse(32630)
	require.NoError(t, err)
	return c
}

// flatGrid is a 10x10 zero-height grid with 100 m cells; the north-east
// corner cell is NoData.
func flatGrid(t *testing.T) *raster.Grid {
	t.Helper()
	g, err := raster.New(10, 10, originX, originY, cell, raster.DefaultNoData)
	require.NoError(t, err)
	g.Set(9, 0, g.NoData)
	return g
}

func point(name string, x, y float64) vector.Feature {
	return vector.Feature{Name: name, Geom: geom.NewPointFlat(geom.XY, []float64{x, y})}
}

func square(name string, minX, minY, maxX, maxY float64) vector.Feature {
	return vector.Feature{
		Name: name,
		Attrs: map[string]string{
			"name": name,
		},
		Geom: geom.NewPolygonFlat(geom.XY, []float64{
			minX, minY, maxX, minY, maxX, maxY, minX, maxY, minX, minY,
		}, []int{10}),
	}
}

// roadAt is a north-south road at easting x crossing the whole test grid.
func roadAt(x float64) vector.Feature {
	return vector.Feature{
		ID:   1,
		Geom: geom.NewLineStringFlat(geom.XY, []float64{x, originY - 1000, x, originY + 2000}),
	}
}
