package suitability

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/siteselect/internal/overpass"
	"github.com/sells-group/siteselect/internal/projection"
	"github.com/sells-group/siteselect/internal/raster"
)

// Study is the run context every stage reads. Reference is the coarsened
// elevation grid; every mask and distance field shares its geometry and its
// valid cells define the study extent. Nothing writes to a Study after
// NewStudy returns.
type Study struct {
	Elevation *raster.Grid // native resolution
	Reference *raster.Grid
	CRS       projection.CRS
	Factor    int
}

// NewStudy coarsens elev by factor to build the reference grid.
func NewStudy(elev *raster.Grid, crs projection.CRS, factor int) (*Study, error) {
	ref, err := raster.Coarsen(elev, factor)
	if err != nil {
		return nil, eris.Wrap(err, "suitability: build reference grid")
	}
	return &Study{Elevation: elev, Reference: ref, CRS: crs, Factor: factor}, nil
}

// BBox returns the geographic bounding box of the reference grid. Corners and
// edge midpoints are projected so the box covers the whole extent when grid
// edges curve in WGS84.
func (s *Study) BBox() (overpass.BBox, error) {
	ext := s.Reference.Extent()
	midX := (ext.MinX + ext.MaxX) / 2
	midY := (ext.MinY + ext.MaxY) / 2
	points := [][2]float64{
		{ext.MinX, ext.MinY}, {midX, ext.MinY}, {ext.MaxX, ext.MinY},
		{ext.MinX, midY}, {ext.MaxX, midY},
		{ext.MinX, ext.MaxY}, {midX, ext.MaxY}, {ext.MaxX, ext.MaxY},
	}

	tr := projection.NewTransform(s.CRS, projection.WGS84)
	b := overpass.BBox{
		MinLng: math.Inf(1), MinLat: math.Inf(1),
		MaxLng: math.Inf(-1), MaxLat: math.Inf(-1),
	}
	for _, p := range points {
		lng, lat, err := tr(p[0], p[1])
		if err != nil {
			return overpass.BBox{}, eris.Wrapf(err, "suitability: project extent corner %v", p)
		}
		b.MinLng = math.Min(b.MinLng, lng)
		b.MinLat = math.Min(b.MinLat, lat)
		b.MaxLng = math.Max(b.MaxLng, lng)
		b.MaxLat = math.Max(b.MaxLat, lat)
	}
	return b, nil
}
