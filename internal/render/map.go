package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/siteselect/internal/raster"
	"github.com/sells-group/siteselect/internal/vector"
)

// Layer is drawn over a map's base grid. Either Mask (cells equal to 1 are
// tinted) or Features (points, lines and polygon outlines) is set.
type Layer struct {
	Mask     *raster.Grid
	Features vector.FeatureSet
	Color    color.RGBA
}

// Map is a base grid coloured by a palette plus optional overlays. Each cell
// is drawn as Scale x Scale pixels.
type Map struct {
	Title   string
	Base    *raster.Grid
	Palette Palette
	Layers  []Layer
	Scale   int
}

// Draw renders m. NoData cells are transparent. Mask layers are composited
// over the base with their colour's alpha; feature layers are stroked and
// filled with gg.
func Draw(m Map) (*image.RGBA, error) {
	if m.Base == nil {
		return nil, eris.New("render: map has no base grid")
	}
	if m.Palette == nil {
		return nil, eris.New("render: map has no palette")
	}
	scale := max(1, m.Scale)
	g := m.Base
	img := image.NewRGBA(image.Rect(0, 0, g.Cols*scale, g.Rows*scale))

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			i := g.Index(c, r)
			if !g.Valid(i) {
				continue
			}
			draw.Draw(img, cellRect(c, r, scale), image.NewUniform(straight(m.Palette(g.Data[i]))), image.Point{}, draw.Src)
		}
	}

	for _, l := range m.Layers {
		switch {
		case l.Mask != nil:
			if !l.Mask.SameGeometry(g) {
				return nil, eris.Errorf("render: %s overlay does not match base grid", m.Title)
			}
			draw.DrawMask(img, img.Bounds(), image.NewUniform(straight(l.Color)), image.Point{},
				coverage(g, l.Mask, scale), image.Point{}, draw.Over)
		case l.Features.HasFeatures():
			p := newPlotter(img, g, float64(scale), l.Color)
			for _, f := range l.Features.Features {
				p.geometry(f.Geom)
			}
			p.finish()
		}
	}
	return img, nil
}

// WritePNG encodes img to path, replacing any existing file.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "render: create %s", path)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "render: encode %s", path)
	}
	return eris.Wrapf(f.Close(), "render: close %s", path)
}

func cellRect(c, r, scale int) image.Rectangle {
	return image.Rect(c*scale, r*scale, (c+1)*scale, (r+1)*scale)
}

// straight reinterprets a palette colour as non-premultiplied, which is how
// the palette defines its alpha.
func straight(c color.RGBA) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// coverage returns an alpha mask that is opaque over the cells where mask is
// 1 and base holds data.
func coverage(base, mask *raster.Grid, scale int) *image.Alpha {
	a := image.NewAlpha(image.Rect(0, 0, base.Cols*scale, base.Rows*scale))
	opaque := image.NewUniform(color.Alpha{A: 255})
	for r := 0; r < base.Rows; r++ {
		for c := 0; c < base.Cols; c++ {
			if mask.At(c, r) == 1 && base.Valid(base.Index(c, r)) {
				draw.Draw(a, cellRect(c, r, scale), opaque, image.Point{}, draw.Src)
			}
		}
	}
	return a
}

// plotter draws map-coordinate geometries in pixel space. Paths accumulate
// on the context and are stroked once by finish.
type plotter struct {
	dc    *gg.Context
	grid  *raster.Grid
	ext   raster.Extent
	scale float64
}

func newPlotter(img *image.RGBA, g *raster.Grid, scale float64, col color.RGBA) plotter {
	dc := gg.NewContextForRGBA(img)
	dc.SetColor(straight(col))
	dc.SetLineWidth(math.Max(1, scale/4))
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	return plotter{dc: dc, grid: g, ext: g.Extent(), scale: scale}
}

func (p plotter) toPixel(x, y float64) (float64, float64) {
	return (x - p.ext.MinX) / p.grid.CellSize * p.scale,
		(p.ext.MaxY - y) / p.grid.CellSize * p.scale
}

func (p plotter) geometry(g geom.T) {
	flat, stride := g.FlatCoords(), g.Stride()
	switch t := g.(type) {
	case *geom.Point, *geom.MultiPoint:
		for i := 0; i+1 < len(flat); i += stride {
			p.marker(p.toPixel(flat[i], flat[i+1]))
		}
	case *geom.LineString:
		p.path(flat, stride, false)
	case *geom.MultiLineString:
		start := 0
		for _, end := range t.Ends() {
			p.path(flat[start:end], stride, false)
			start = end
		}
	case *geom.Polygon:
		start := 0
		for _, end := range t.Ends() {
			p.path(flat[start:end], stride, true)
			start = end
		}
	case *geom.MultiPolygon:
		start := 0
		for _, ends := range t.Endss() {
			for _, end := range ends {
				p.path(flat[start:end], stride, true)
				start = end
			}
		}
	}
}

// marker fills a square half a cell wide centred on the point.
func (p plotter) marker(px, py float64) {
	r := math.Max(1, p.scale/2)
	p.dc.DrawRectangle(px-r, py-r, 2*r, 2*r)
	p.dc.Fill()
}

func (p plotter) path(flat []float64, stride int, closed bool) {
	if len(flat) < 2*stride {
		return
	}
	p.dc.NewSubPath()
	for i := 0; i+1 < len(flat); i += stride {
		x, y := p.toPixel(flat[i], flat[i+1])
		if i == 0 {
			p.dc.MoveTo(x, y)
			continue
		}
		p.dc.LineTo(x, y)
	}
	if closed {
		p.dc.ClosePath()
	}
}

func (p plotter) finish() {
	p.dc.Stroke()
}
