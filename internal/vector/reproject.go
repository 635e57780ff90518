package vector

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/siteselect/internal/projection"
)

// Reproject returns a copy of s with every geometry transformed into dst.
// Features whose coordinates cannot be transformed are dropped and logged.
func (s FeatureSet) Reproject(dst projection.CRS) (FeatureSet, error) {
	if s.state == Absent {
		return AbsentSet(s.Kind, dst), nil
	}
	if s.CRS == dst {
		return s, nil
	}

	tr := projection.NewTransform(s.CRS, dst)
	out := make([]Feature, 0, len(s.Features))
	var skipped int
	for _, f := range s.Features {
		g, err := TransformGeom(f.Geom, tr)
		if err != nil {
			skipped++
			zap.L().Debug("vector: skipping feature outside target CRS",
				zap.Int64("id", f.ID), zap.String("crs", dst.String()), zap.Error(err))
			continue
		}
		f.Geom = g
		out = append(out, f)
	}
	if skipped > 0 && len(out) == 0 {
		return FeatureSet{}, eris.Errorf("vector: no feature could be reprojected from %s to %s", s.CRS, dst)
	}
	return NewSet(s.Kind, dst, out), nil
}

// TransformGeom applies tr to every vertex of g, returning a new geometry of
// the same type.
func TransformGeom(g geom.T, tr projection.Transform) (geom.T, error) {
	stride := g.Stride()
	flat := make([]float64, len(g.FlatCoords()))
	copy(flat, g.FlatCoords())
	for i := 0; i+1 < len(flat); i += stride {
		x, y, err := tr(flat[i], flat[i+1])
		if err != nil {
			return nil, err
		}
		flat[i], flat[i+1] = x, y
	}

	switch t := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(t.Layout(), flat), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(t.Layout(), flat), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(t.Layout(), flat), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(t.Layout(), flat, t.Ends()), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(t.Layout(), flat, t.Ends()), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(t.Layout(), flat, t.Endss()), nil
	}
	return nil, eris.Errorf("vector: unsupported geometry %T", g)
}
