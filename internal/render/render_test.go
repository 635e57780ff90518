package render

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/siteselect/internal/projection"
	"github.com/sells-group/siteselect/internal/raster"
	"github.com/sells-group/siteselect/internal/vector"
)

func testGrid(t *testing.T, vals ...float64) *raster.Grid {
	t.Helper()
	g, err := raster.New(2, 2, 0, 0, 10, raster.DefaultNoData)
	require.NoError(t, err)
	copy(g.Data, vals)
	return g
}

func TestRamp(t *testing.T) {
	black := color.RGBA{A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	p := Ramp(Stop{Value: 0, Color: black}, Stop{Value: 10, Color: white})

	assert.Equal(t, black, p(-5))
	assert.Equal(t, white, p(50))
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, p(5))
}

func TestClasses(t *testing.T) {
	p := Binary()
	assert.Equal(t, Unsuitable, p(0))
	assert.Equal(t, Suitable, p(1))
	assert.Equal(t, Suitable, p(7))
	assert.Equal(t, Unsuitable, p(-1))

	s := Score()
	assert.NotEqual(t, s(0), s(4))
}

func TestTerrain_DegenerateRange(t *testing.T) {
	p := Terrain(100, 100)
	assert.Equal(t, uint8(255), p(100).A)
}

func TestDraw_BaseAndNoData(t *testing.T) {
	g := testGrid(t, 0, 1, raster.DefaultNoData, 1)

	img, err := Draw(Map{Title: "mask", Base: g, Palette: Binary(), Scale: 3})
	require.NoError(t, err)
	assert.Equal(t, 6, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())

	assert.Equal(t, Unsuitable, img.RGBAAt(0, 0))
	assert.Equal(t, Suitable, img.RGBAAt(5, 2))
	// bottom-left cell is NoData
	assert.Equal(t, Transparent, img.RGBAAt(1, 4))
}

func TestDraw_MaskOverlay(t *testing.T) {
	base := testGrid(t, 1, 1, 1, 1)
	mask := testGrid(t, 1, 0, 0, 0)
	opaque := color.RGBA{B: 255, A: 255}

	img, err := Draw(Map{
		Base:    base,
		Palette: Binary(),
		Layers:  []Layer{{Mask: mask, Color: opaque}},
	})
	require.NoError(t, err)
	assert.Equal(t, opaque, img.RGBAAt(0, 0))
	assert.Equal(t, Suitable, img.RGBAAt(1, 0))
}

func TestDraw_TranslucentMaskComposites(t *testing.T) {
	base := testGrid(t, 1, 1, 1, raster.DefaultNoData)
	mask := testGrid(t, 1, 0, 0, 1)

	img, err := Draw(Map{Base: base, Palette: Binary(), Layers: []Layer{{Mask: mask, Color: Water}}})
	require.NoError(t, err)

	a := float64(Water.A) / 255
	mix := func(src, dst uint8) float64 { return float64(src)*a + float64(dst)*(1-a) }
	got := img.RGBAAt(0, 0)
	assert.InDelta(t, mix(Water.R, Suitable.R), float64(got.R), 1)
	assert.InDelta(t, mix(Water.G, Suitable.G), float64(got.G), 1)
	assert.InDelta(t, mix(Water.B, Suitable.B), float64(got.B), 1)
	assert.Equal(t, uint8(255), got.A)

	assert.Equal(t, Suitable, img.RGBAAt(1, 0))
	// masked NoData cells stay transparent
	assert.Equal(t, Transparent, img.RGBAAt(1, 1))
}

func TestDraw_MaskGeometryMismatch(t *testing.T) {
	base := testGrid(t, 1, 1, 1, 1)
	other, err := raster.New(3, 3, 0, 0, 10, raster.DefaultNoData)
	require.NoError(t, err)

	_, err = Draw(Map{Title: "flood", Base: base, Palette: Binary(), Layers: []Layer{{Mask: other}}})
	assert.Error(t, err)
}

func TestDraw_Features(t *testing.T) {
	base := testGrid(t, 0, 0, 0, 0)
	marker := color.RGBA{R: 255, G: 255, A: 255}
	fs := vector.NewSet(vector.KindPoint, projection.WGS84, []vector.Feature{
		{ID: 1, Geom: geom.NewPointFlat(geom.XY, []float64{5, 15})},
	})
	line := vector.NewSet(vector.KindLine, projection.WGS84, []vector.Feature{
		{ID: 2, Geom: geom.NewLineStringFlat(geom.XY, []float64{0, 1, 20, 1})},
	})

	img, err := Draw(Map{
		Base:    base,
		Palette: Binary(),
		Scale:   10,
		Layers:  []Layer{{Features: fs, Color: marker}, {Features: line, Color: marker}},
	})
	require.NoError(t, err)

	// point at the centre of the north-west cell
	assert.Equal(t, marker, img.RGBAAt(5, 5))
	assert.Equal(t, Unsuitable, img.RGBAAt(15, 5))
	// horizontal line one unit above the southern edge lands on pixel row 19
	assert.Equal(t, marker, img.RGBAAt(3, 19))
	assert.Equal(t, marker, img.RGBAAt(17, 19))
}

func TestDraw_PolygonOutline(t *testing.T) {
	base := testGrid(t, 0, 0, 0, 0)
	edge := color.RGBA{B: 255, A: 255}
	ring := []float64{2, 2, 18, 2, 18, 18, 2, 18, 2, 2}
	fs := vector.NewSet(vector.KindPolygon, projection.WGS84, []vector.Feature{
		{ID: 1, Geom: geom.NewPolygonFlat(geom.XY, ring, []int{len(ring)})},
	})

	img, err := Draw(Map{Base: base, Palette: Binary(), Scale: 10, Layers: []Layer{{Features: fs, Color: edge}}})
	require.NoError(t, err)

	assert.Equal(t, edge, img.RGBAAt(2, 10))
	assert.Equal(t, edge, img.RGBAAt(10, 17))
	// outline only, the interior keeps the base colour
	assert.Equal(t, Unsuitable, img.RGBAAt(10, 10))
}

func TestDraw_Errors(t *testing.T) {
	_, err := Draw(Map{Palette: Binary()})
	assert.Error(t, err)

	_, err = Draw(Map{Base: testGrid(t, 0, 0, 0, 0)})
	assert.Error(t, err)
}

func TestWritePNG(t *testing.T) {
	img, err := Draw(Map{Base: testGrid(t, 0, 1, 1, 0), Palette: Binary(), Scale: 2})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "mask.png")
	require.NoError(t, WritePNG(path, img))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestWritePNG_BadPath(t *testing.T) {
	img, err := Draw(Map{Base: testGrid(t, 0, 0, 0, 0), Palette: Binary()})
	require.NoError(t, err)
	assert.Error(t, WritePNG(filepath.Join(t.TempDir(), "missing", "x.png"), img))
}
