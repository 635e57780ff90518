package suitability

import (
	"context"
	"image/color"

	"github.com/rotisserie/eris"

	"github.com/sells-group/siteselect/internal/raster"
	"github.com/sells-group/siteselect/internal/render"
)

// Output names. File sinks derive file names from these.
const (
	GridElevation = "elevation_resampled"
	GridSlopeMask = "slope_mask"
	GridFloodMask = "flood_mask"
	GridDensity   = "amenity_density"
	GridScore     = "suitability"

	// VectorFloodZones is the flood polygons in the study CRS.
	VectorFloodZones = "flood_zones"

	MapElevation  = "elevation"
	MapSlopeMask  = "slope_mask"
	MapFloodMask  = "flood_mask"
	MapDensity    = "amenity_density"
	MapScore      = "suitability"
	MapAmenities  = "amenities"
	MapFloodZones = "flood_zones"
)

// DistanceGridName is the output name of a category's distance field.
func DistanceGridName(category string) string { return "dist_" + category }

// NamedGrid is a raster output and its name.
type NamedGrid struct {
	Name string
	Grid *raster.Grid
}

// Grids lists the raster outputs of res in write order, masked to the study
// extent.
func (res *Result) Grids() ([]NamedGrid, error) {
	ref := res.Study.Reference
	grids := []NamedGrid{
		{GridElevation, ref},
		{GridSlopeMask, res.SlopeMask},
		{GridFloodMask, res.FloodMask},
	}
	for _, a := range res.Amenities {
		grids = append(grids, NamedGrid{DistanceGridName(a.Category.Name), a.Distance})
	}
	grids = append(grids, NamedGrid{GridDensity, res.Density}, NamedGrid{GridScore, res.Score})

	for i, ng := range grids {
		masked, err := ng.Grid.MaskTo(ref)
		if err != nil {
			return nil, eris.Wrapf(err, "output: mask %s", ng.Name)
		}
		grids[i].Grid = masked
	}
	return grids, nil
}

func (p *Pipeline) write(ctx context.Context, res *Result) error {
	grids, err := res.Grids()
	if err != nil {
		return err
	}
	for _, ng := range grids {
		if err := p.sink.Grid(ctx, ng.Name, ng.Grid, res.Study.CRS); err != nil {
			return eris.Wrapf(err, "output: grid %s", ng.Name)
		}
	}

	for _, a := range res.Amenities {
		if err := p.sink.Features(ctx, a.Category.Name, a.Features); err != nil {
			return eris.Wrapf(err, "output: features %s", a.Category.Name)
		}
	}
	if err := p.sink.Features(ctx, VectorFloodZones, res.FloodZones); err != nil {
		return eris.Wrapf(err, "output: features %s", VectorFloodZones)
	}

	if !p.opts.Maps {
		return nil
	}
	byName := make(map[string]*raster.Grid, len(grids))
	for _, ng := range grids {
		byName[ng.Name] = ng.Grid
	}
	for _, nm := range res.maps(byName, p.opts.MapScale) {
		if err := p.sink.Map(ctx, nm.Title, nm); err != nil {
			return eris.Wrapf(err, "output: map %s", nm.Title)
		}
	}
	return nil
}

// maps builds the seven thematic maps from the masked output grids.
func (res *Result) maps(grids map[string]*raster.Grid, scale int) []render.Map {
	ref := grids[GridElevation]
	st := raster.Summarize(ref)
	greys := render.Greys(st.Min, st.Max)

	amenities := render.Map{Title: MapAmenities, Base: ref, Palette: greys, Scale: scale}
	for _, a := range res.Amenities {
		amenities.Layers = append(amenities.Layers, render.Layer{Features: a.Features, Color: a.Category.Color})
	}

	flooded := Reclassify(res.FloodMask, Equal(0))
	zones := render.Map{
		Title:   MapFloodZones,
		Base:    ref,
		Palette: greys,
		Scale:   scale,
		Layers: []render.Layer{
			{Mask: flooded, Color: render.Water},
			{Features: res.FloodZones, Color: outline(render.Water)},
		},
	}

	return []render.Map{
		{Title: MapElevation, Base: ref, Palette: render.Terrain(st.Min, st.Max), Scale: scale},
		{Title: MapSlopeMask, Base: grids[GridSlopeMask], Palette: render.Binary(), Scale: scale},
		{Title: MapFloodMask, Base: grids[GridFloodMask], Palette: render.Binary(), Scale: scale},
		{Title: MapDensity, Base: grids[GridDensity], Palette: render.Score(), Scale: scale},
		{Title: MapScore, Base: grids[GridScore], Palette: render.Score(), Scale: scale},
		amenities,
		zones,
	}
}

func outline(c color.RGBA) color.RGBA {
	c.A = 255
	return c
}

// FeatureCounts returns the number of features kept per category.
func (res *Result) FeatureCounts() map[string]int {
	out := make(map[string]int, len(res.Amenities)+1)
	for _, a := range res.Amenities {
		out[a.Category.Name] = a.Features.Len()
	}
	out[VectorFloodZones] = res.FloodZones.Len()
	return out
}
