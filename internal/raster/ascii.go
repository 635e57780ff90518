package raster

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadASCII loads an ESRI ASCII grid from path.
func ReadASCII(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer func() { _ = f.Close() }()

	g, err := DecodeASCII(f)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: decode %s", path)
	}
	return g, nil
}

// DecodeASCII parses an ESRI ASCII grid. Both the corner and the centre
// variants of the origin keys are accepted; NODATA_value defaults to
// DefaultNoData when absent.
func DecodeASCII(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	header := make(map[string]float64, 6)
	var first string
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if !isHeaderKey(key) {
			first = sc.Text()
			break
		}
		if !sc.Scan() {
			return nil, eris.Errorf("raster: missing value for header %s", key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: parse header %s", key)
		}
		header[key] = v
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: scan header")
	}

	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if _, ok := header[k]; !ok {
			return nil, eris.Errorf("raster: missing header %s", k)
		}
	}
	noData := DefaultNoData
	if v, ok := header["nodata_value"]; ok {
		noData = v
	}
	cs := header["cellsize"]
	xll, yll, err := origin(header, cs)
	if err != nil {
		return nil, err
	}

	cols, err := dimension(header, "ncols")
	if err != nil {
		return nil, err
	}
	rows, err := dimension(header, "nrows")
	if err != nil {
		return nil, err
	}
	if cols*rows > maxCells {
		return nil, eris.Errorf("raster: %dx%d grid exceeds %d cells", cols, rows, maxCells)
	}

	g, err := New(cols, rows, xll, yll, cs, noData)
	if err != nil {
		return nil, err
	}

	n := 0
	parse := func(tok string) error {
		if n >= len(g.Data) {
			return eris.Errorf("raster: more than %d values", len(g.Data))
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return eris.Wrapf(err, "raster: parse value %d", n)
		}
		g.Data[n] = v
		n++
		return nil
	}
	if first != "" {
		if err := parse(first); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		if err := parse(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: scan values")
	}
	if n != len(g.Data) {
		return nil, eris.Errorf("raster: expected %d values, got %d", len(g.Data), n)
	}
	return g, nil
}

// maxCells bounds the allocation a header can request.
const maxCells = 1 << 27

// dimension reads a grid size header, which must be a positive integer.
func dimension(h map[string]float64, k string) (int, error) {
	v := h[k]
	if v != math.Trunc(v) || v < 1 || v > maxCells {
		return 0, eris.Errorf("raster: %s must be a positive integer, got %v", k, v)
	}
	return int(v), nil
}

func isHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}

func origin(h map[string]float64, cs float64) (float64, float64, error) {
	var x, y float64
	switch {
	case has(h, "xllcorner"):
		x = h["xllcorner"]
	case has(h, "xllcenter"):
		x = h["xllcenter"] - cs/2
	default:
		return 0, 0, eris.New("raster: missing header xllcorner")
	}
	switch {
	case has(h, "yllcorner"):
		y = h["yllcorner"]
	case has(h, "yllcenter"):
		y = h["yllcenter"] - cs/2
	default:
		return 0, 0, eris.New("raster: missing header yllcorner")
	}
	return x, y, nil
}

func has(h map[string]float64, k string) bool {
	_, ok := h[k]
	return ok
}

// WriteASCII writes g to path as an ESRI ASCII grid, replacing any existing
// file.
func WriteASCII(path string, g *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "raster: create %s", path)
	}
	w := bufio.NewWriter(f)
	if err := EncodeASCII(w, g); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "raster: encode %s", path)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "raster: flush %s", path)
	}
	return eris.Wrapf(f.Close(), "raster: close %s", path)
}

// EncodeASCII writes g in ESRI ASCII format. NaN and infinite values are
// written as NODATA.
func EncodeASCII(w io.Writer, g *Grid) error {
	var b strings.Builder
	b.WriteString("ncols " + strconv.Itoa(g.Cols) + "\n")
	b.WriteString("nrows " + strconv.Itoa(g.Rows) + "\n")
	b.WriteString("xllcorner " + formatFloat(g.XLL) + "\n")
	b.WriteString("yllcorner " + formatFloat(g.YLL) + "\n")
	b.WriteString("cellsize " + formatFloat(g.CellSize) + "\n")
	b.WriteString("NODATA_value " + formatFloat(g.NoData) + "\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "raster: write header")
	}

	nd := formatFloat(g.NoData)
	line := make([]byte, 0, g.Cols*8)
	for r := 0; r < g.Rows; r++ {
		line = line[:0]
		for c := 0; c < g.Cols; c++ {
			if c > 0 {
				line = append(line, ' ')
			}
			v := g.Data[r*g.Cols+c]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				line = append(line, nd...)
				continue
			}
			line = strconv.AppendFloat(line, v, 'g', -1, 64)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return eris.Wrapf(err, "raster: write row %d", r)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
