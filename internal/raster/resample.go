package raster

import "github.com/rotisserie/eris"

// Coarsen aggregates factor x factor blocks of g into single cells holding the
// mean of their valid values. Partial blocks on the eastern and southern edges
// are kept so the coarse grid covers the full extent; the northern and western
// edges stay aligned with g. A block with no valid cells is NoData.
func Coarsen(g *Grid, factor int) (*Grid, error) {
	if factor < 1 {
		return nil, eris.Errorf("raster: coarsen factor must be >= 1, got %d", factor)
	}
	if factor == 1 {
		return g.Clone(), nil
	}

	cols := (g.Cols + factor - 1) / factor
	rows := (g.Rows + factor - 1) / factor
	cs := g.CellSize * float64(factor)
	top := g.YLL + float64(g.Rows)*g.CellSize

	out, err := New(cols, rows, g.XLL, top-float64(rows)*cs, cs, g.NoData)
	if err != nil {
		return nil, eris.Wrap(err, "raster: coarsen")
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var sum float64
			var n int
			for rr := r * factor; rr < min((r+1)*factor, g.Rows); rr++ {
				for cc := c * factor; cc < min((c+1)*factor, g.Cols); cc++ {
					v := g.Data[rr*g.Cols+cc]
					if g.IsNoData(v) {
						continue
					}
					sum += v
					n++
				}
			}
			if n == 0 {
				out.Set(c, r, out.NoData)
				continue
			}
			out.Set(c, r, sum/float64(n))
		}
	}
	return out, nil
}
