package vector

import (
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/siteselect/internal/projection"
)

// NameField is the only attribute kept on exported vectors.
const NameField = "name"

// LoadOptions controls how a shapefile is read.
type LoadOptions struct {
	CRS       projection.CRS // CRS the file's coordinates are in
	NameField string         // attribute copied into Feature.Name
}

// LoadShapefile reads every record of a point, polyline or polygon shapefile.
// All attributes are kept in Feature.Attrs under lower-cased field names.
func LoadShapefile(path string, opts LoadOptions) (FeatureSet, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return FeatureSet{}, eris.Wrapf(err, "vector: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	var kind Kind
	switch reader.GeometryType {
	case shp.POINT:
		kind = KindPoint
	case shp.POLYLINE:
		kind = KindLine
	case shp.POLYGON:
		kind = KindPolygon
	default:
		return FeatureSet{}, eris.Errorf("vector: unsupported shape type %d in %s", reader.GeometryType, path)
	}

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}
	nameKey := strings.ToLower(opts.NameField)

	var features []Feature
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()
		g := shapeToGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			attrs[name] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}
		features = append(features, Feature{
			ID:    int64(n),
			Name:  CleanName(attrs[nameKey]),
			Attrs: attrs,
			Geom:  g,
		})
	}

	if err := reader.Err(); err != nil {
		return FeatureSet{}, eris.Wrapf(err, "vector: read shapefile %s", path)
	}
	if err := checkLength(path); err != nil {
		return FeatureSet{}, err
	}

	if skipped > 0 {
		zap.L().Debug("vector: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return NewSet(kind, opts.CRS, features), nil
}

// checkLength compares the file length declared in the .shp header with the
// file on disk, catching files truncated on a record boundary.
func checkLength(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "vector: open shapefile %s", path)
	}
	defer func() { _ = f.Close() }()

	var header [28]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return eris.Wrapf(err, "vector: read header of %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		return eris.Wrapf(err, "vector: stat %s", path)
	}
	// length is big-endian, in 16-bit words
	declared := int64(binary.BigEndian.Uint32(header[24:28])) * 2
	if info.Size() < declared {
		return eris.Errorf("vector: shapefile %s is truncated: %d of %d bytes", path, info.Size(), declared)
	}
	return nil
}

// shapeToGeom converts a go-shp shape into a go-geom geometry. Polygon parts
// become one polygon each; hole detection is left to even-odd containment.
func shapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PolyLine:
		if s.NumParts == 0 || len(s.Points) == 0 {
			return nil
		}
		flat, ends := partsFlat(s.Parts, s.Points)
		return geom.NewMultiLineStringFlat(geom.XY, flat, ends)
	case *shp.Polygon:
		if s.NumParts == 0 || len(s.Points) == 0 {
			return nil
		}
		flat, ends := partsFlat(s.Parts, s.Points)
		endss := make([][]int, len(ends))
		for i, e := range ends {
			endss[i] = []int{e}
		}
		return geom.NewMultiPolygonFlat(geom.XY, flat, endss)
	}
	return nil
}

func partsFlat(parts []int32, points []shp.Point) ([]float64, []int) {
	flat := make([]float64, 0, 2*len(points))
	ends := make([]int, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		for j := start; j < end; j++ {
			flat = append(flat, points[j].X, points[j].Y)
		}
		ends = append(ends, len(flat))
	}
	return flat, ends
}

// WriteShapefile writes s to path (which must end in .shp) keeping only a
// name attribute; features without a name get placeholder. A .prj sidecar is
// written next to it. Existing files are replaced.
func WriteShapefile(path string, s FeatureSet, placeholder string) error {
	if !strings.HasSuffix(path, ".shp") {
		return eris.Errorf("vector: shapefile path %s must end in .shp", path)
	}

	var st shp.ShapeType
	switch s.Kind {
	case KindPoint:
		st = shp.POINT
	case KindLine:
		st = shp.POLYLINE
	case KindPolygon:
		st = shp.POLYGON
	default:
		return eris.Errorf("vector: unsupported kind %s", s.Kind)
	}

	w, err := shp.Create(path, st)
	if err != nil {
		return eris.Wrapf(err, "vector: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields([]shp.Field{shp.StringField(NameField, maxNameBytes)}); err != nil {
		return eris.Wrapf(err, "vector: set fields %s", path)
	}

	for _, f := range s.Features {
		shape, err := geomToShape(f.Geom, s.Kind)
		if err != nil {
			return eris.Wrapf(err, "vector: feature %d", f.ID)
		}
		row := w.Write(shape)
		name := CleanName(f.Name)
		if name == "" {
			name = placeholder
		}
		if err := w.WriteAttribute(int(row), 0, name); err != nil {
			return eris.Wrapf(err, "vector: write name for feature %d", f.ID)
		}
	}

	return projection.WritePRJ(strings.TrimSuffix(path, ".shp"), s.CRS)
}

func geomToShape(g geom.T, kind Kind) (shp.Shape, error) {
	switch kind {
	case KindPoint:
		p, ok := g.(*geom.Point)
		if !ok {
			return nil, eris.Errorf("vector: expected point, got %T", g)
		}
		return &shp.Point{X: p.X(), Y: p.Y()}, nil
	case KindLine:
		switch t := g.(type) {
		case *geom.LineString:
			return shp.NewPolyLine(flatParts(t.FlatCoords(), []int{len(t.FlatCoords())}, t.Stride())), nil
		case *geom.MultiLineString:
			return shp.NewPolyLine(flatParts(t.FlatCoords(), t.Ends(), t.Stride())), nil
		}
		return nil, eris.Errorf("vector: expected line, got %T", g)
	case KindPolygon:
		var parts [][]shp.Point
		switch t := g.(type) {
		case *geom.Polygon:
			parts = flatParts(t.FlatCoords(), t.Ends(), t.Stride())
		case *geom.MultiPolygon:
			parts = flatParts(t.FlatCoords(), flattenEndss(t.Endss()), t.Stride())
		default:
			return nil, eris.Errorf("vector: expected polygon, got %T", g)
		}
		poly := shp.Polygon(*shp.NewPolyLine(parts))
		return &poly, nil
	}
	return nil, eris.Errorf("vector: unsupported kind %s", kind)
}

func flatParts(flat []float64, ends []int, stride int) [][]shp.Point {
	parts := make([][]shp.Point, 0, len(ends))
	start := 0
	for _, end := range ends {
		part := make([]shp.Point, 0, (end-start)/stride)
		for i := start; i < end; i += stride {
			part = append(part, shp.Point{X: flat[i], Y: flat[i+1]})
		}
		parts = append(parts, part)
		start = end
	}
	return parts
}

func flattenEndss(endss [][]int) []int {
	var out []int
	for _, ends := range endss {
		out = append(out, ends...)
	}
	return out
}
