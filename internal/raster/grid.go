// Package raster provides a regular, north-up numeric grid and the cell-level
// operations the suitability pipeline needs (resampling, slope, masking).
package raster

import (
	"math"

	"github.com/rotisserie/eris"
)

// DefaultNoData is the sentinel used for cells outside the study extent.
const DefaultNoData = -9999.0

// Grid is a north-up raster. Data is row-major with row 0 on the northern
// edge, matching the ESRI ASCII layout.
type Grid struct {
	Cols     int
	Rows     int
	XLL      float64 // x of the lower-left corner
	YLL      float64 // y of the lower-left corner
	CellSize float64
	NoData   float64
	Data     []float64
}

// Extent is an axis-aligned bounding box in map units.
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// New allocates a zero-valued grid.
func New(cols, rows int, xll, yll, cellSize, noData float64) (*Grid, error) {
	if cols <= 0 || rows <= 0 {
		return nil, eris.Errorf("raster: invalid dimensions %dx%d", cols, rows)
	}
	if cellSize <= 0 {
		return nil, eris.Errorf("raster: invalid cell size %v", cellSize)
	}
	return &Grid{
		Cols:     cols,
		Rows:     rows,
		XLL:      xll,
		YLL:      yll,
		CellSize: cellSize,
		NoData:   noData,
		Data:     make([]float64, cols*rows),
	}, nil
}

// Like returns a zero-valued grid with the same geometry as g.
func (g *Grid) Like() *Grid {
	return &Grid{
		Cols:     g.Cols,
		Rows:     g.Rows,
		XLL:      g.XLL,
		YLL:      g.YLL,
		CellSize: g.CellSize,
		NoData:   g.NoData,
		Data:     make([]float64, len(g.Data)),
	}
}

// LikeWithNoData returns a zero-valued grid with g's geometry and the given
// NoData sentinel. Grids derived from an input (slopes, masks, scores) use it
// with DefaultNoData so their values never collide with the input's
// sentinel.
func (g *Grid) LikeWithNoData(noData float64) *Grid {
	out := g.Like()
	out.NoData = noData
	return out
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	c := g.Like()
	copy(c.Data, g.Data)
	return c
}

// Len returns the number of cells.
func (g *Grid) Len() int { return g.Cols * g.Rows }

// Index returns the offset of cell (col, row) in Data.
func (g *Grid) Index(col, row int) int { return row*g.Cols + col }

// At returns the value of cell (col, row).
func (g *Grid) At(col, row int) float64 { return g.Data[row*g.Cols+col] }

// Set assigns the value of cell (col, row).
func (g *Grid) Set(col, row int, v float64) { g.Data[row*g.Cols+col] = v }

// Fill assigns v to every cell.
func (g *Grid) Fill(v float64) {
	for i := range g.Data {
		g.Data[i] = v
	}
}

// Center returns the map coordinates of the centre of cell (col, row).
func (g *Grid) Center(col, row int) (x, y float64) {
	x = g.XLL + (float64(col)+0.5)*g.CellSize
	y = g.YLL + (float64(g.Rows-row)-0.5)*g.CellSize
	return x, y
}

// Extent returns the outer bounds of the grid.
func (g *Grid) Extent() Extent {
	return Extent{
		MinX: g.XLL,
		MinY: g.YLL,
		MaxX: g.XLL + float64(g.Cols)*g.CellSize,
		MaxY: g.YLL + float64(g.Rows)*g.CellSize,
	}
}

// IsNoData reports whether v is the grid's NoData value, NaN or infinite.
func (g *Grid) IsNoData(v float64) bool {
	return v == g.NoData || math.IsNaN(v) || math.IsInf(v, 0)
}

// Valid reports whether cell i holds data.
func (g *Grid) Valid(i int) bool { return !g.IsNoData(g.Data[i]) }

// SameGeometry reports whether g and o share dimensions, origin and cell size.
func (g *Grid) SameGeometry(o *Grid) bool {
	return g.Cols == o.Cols && g.Rows == o.Rows &&
		g.XLL == o.XLL && g.YLL == o.YLL && g.CellSize == o.CellSize
}

// MaskTo returns a copy of g where every cell that is NoData in ref is set to
// g's NoData value.
func (g *Grid) MaskTo(ref *Grid) (*Grid, error) {
	if !g.SameGeometry(ref) {
		return nil, eris.New("raster: mask geometry does not match grid")
	}
	out := g.Clone()
	for i := range ref.Data {
		if !ref.Valid(i) {
			out.Data[i] = out.NoData
		}
	}
	return out, nil
}
