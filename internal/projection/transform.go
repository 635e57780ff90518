package projection

import (
	"math"

	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
)

// Transform maps a coordinate pair from one CRS to another. Geographic pairs
// are (longitude, latitude) in degrees.
type Transform func(x, y float64) (float64, float64, error)

// NewTransform returns the coordinate transform from src to dst. A UTM target
// keeps every point in its own zone, even one outside the zone's nominal
// 6 degree band. If either system cannot be set up, the returned Transform
// fails on every call.
func NewTransform(src, dst CRS) Transform {
	if src == dst {
		return func(x, y float64) (float64, float64, error) { return x, y, nil }
	}
	t, err := newTransformer(src, dst)
	if err != nil {
		return func(float64, float64) (float64, float64, error) { return 0, 0, err }
	}
	return func(x, y float64) (float64, float64, error) {
		if src.Geographic() {
			if err := checkLonLat(x, y, dst); err != nil {
				return 0, 0, err
			}
		}
		ox, oy, err := t(x, y)
		if err != nil {
			return 0, 0, eris.Wrapf(err, "projection: transform (%v, %v) from %s to %s", x, y, src, dst)
		}
		if math.IsNaN(ox) || math.IsNaN(oy) || math.IsInf(ox, 0) || math.IsInf(oy, 0) {
			return 0, 0, eris.Errorf("projection: (%v, %v) has no image in %s", x, y, dst)
		}
		return ox, oy, nil
	}
}

func newTransformer(src, dst CRS) (proj.Transformer, error) {
	for _, c := range []CRS{src, dst} {
		if c.Proj4 == "" {
			return nil, eris.Errorf("projection: %s has no definition", c)
		}
	}
	from, err := proj.Parse(src.Proj4)
	if err != nil {
		return nil, eris.Wrapf(err, "projection: parse %s", src)
	}
	to, err := proj.Parse(dst.Proj4)
	if err != nil {
		return nil, eris.Wrapf(err, "projection: parse %s", dst)
	}
	t, err := from.NewTransform(to)
	if err != nil {
		return nil, eris.Wrapf(err, "projection: %s to %s", src, dst)
	}
	return t, nil
}

func checkLonLat(lon, lat float64, dst CRS) error {
	if lon < -180 || lon > 180 {
		return eris.Errorf("projection: longitude %v out of range", lon)
	}
	if lat < -90 || lat > 90 {
		return eris.Errorf("projection: latitude %v out of range", lat)
	}
	if dst.Zone != 0 && (lat < -80 || lat > 84) {
		return eris.Errorf("projection: latitude %v outside UTM range", lat)
	}
	return nil
}
