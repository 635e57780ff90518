// Package projection describes the coordinate reference systems the pipeline
// reads and writes and transforms coordinates between them.
package projection

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// EPSG codes handled by Parse.
const (
	EPSGWGS84       = 4326
	EPSGETRS89      = 4258
	EPSGWebMercator = 3857
	epsgUTMNorth    = 32600
	epsgUTMSouth    = 32700
	epsgETRS89UTM   = 25800
	minETRS89Zone   = 28
	maxETRS89Zone   = 38
	maxUTMZone      = 60
)

const (
	wgs84GeogCSWKT  = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
	etrs89GeogCSWKT = `GEOGCS["GCS_ETRS_1989",DATUM["D_ETRS_1989",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
	webMercatorWKT  = `PROJCS["WGS_1984_Web_Mercator_Auxiliary_Sphere",` + wgs84GeogCSWKT + `,PROJECTION["Mercator_Auxiliary_Sphere"],` +
		`PARAMETER["False_Easting",0.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",0.0],` +
		`PARAMETER["Standard_Parallel_1",0.0],PARAMETER["Auxiliary_Sphere_Type",0.0],UNIT["Meter",1.0]]`

	wgs84Proj4       = "+proj=longlat +datum=WGS84 +no_defs"
	etrs89Proj4      = "+proj=longlat +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +no_defs"
	webMercatorProj4 = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"

	falseEasting       = 500000.0
	falseNorthingSouth = 10000000.0
	utmScale           = 0.9996
)

// CRS identifies a coordinate reference system by EPSG code together with the
// PROJ.4 definition used to transform it. Zone is set for UTM systems only.
type CRS struct {
	EPSG  int
	Proj4 string
	Zone  int
	South bool
}

// WGS84 is the geographic system the Overpass API speaks.
var WGS84 = CRS{EPSG: EPSGWGS84, Proj4: wgs84Proj4}

// Parse resolves an EPSG code. Supported: WGS84 (4326) and its UTM zones
// (32601-32660, 32701-32760), ETRS89 (4258) and its UTM zones 28-38
// (25828-25838), and Web Mercator (3857).
func Parse(epsg int) (CRS, error) {
	switch {
	case epsg == EPSGWGS84:
		return WGS84, nil
	case epsg == EPSGETRS89:
		return CRS{EPSG: epsg, Proj4: etrs89Proj4}, nil
	case epsg == EPSGWebMercator:
		return CRS{EPSG: epsg, Proj4: webMercatorProj4}, nil
	case epsg > epsgUTMNorth && epsg <= epsgUTMNorth+maxUTMZone:
		return utm(epsg, epsg-epsgUTMNorth, false, "+datum=WGS84"), nil
	case epsg > epsgUTMSouth && epsg <= epsgUTMSouth+maxUTMZone:
		return utm(epsg, epsg-epsgUTMSouth, true, "+datum=WGS84"), nil
	case epsg >= epsgETRS89UTM+minETRS89Zone && epsg <= epsgETRS89UTM+maxETRS89Zone:
		return utm(epsg, epsg-epsgETRS89UTM, false, "+ellps=GRS80 +towgs84=0,0,0,0,0,0,0"), nil
	}
	return CRS{}, eris.Errorf("projection: unsupported EPSG code %d", epsg)
}

func utm(epsg, zone int, south bool, datum string) CRS {
	def := fmt.Sprintf("+proj=utm +zone=%d %s +units=m +no_defs", zone, datum)
	if south {
		def = fmt.Sprintf("+proj=utm +zone=%d +south %s +units=m +no_defs", zone, datum)
	}
	return CRS{EPSG: epsg, Proj4: def, Zone: zone, South: south}
}

// Geographic reports whether c is longitude/latitude.
func (c CRS) Geographic() bool { return strings.HasPrefix(c.Proj4, "+proj=longlat") }

// etrs89 reports whether c is on the ETRS89 datum.
func (c CRS) etrs89() bool {
	return c.EPSG == EPSGETRS89 || (c.EPSG > epsgETRS89UTM && c.EPSG < epsgETRS89UTM+100)
}

func (c CRS) String() string { return fmt.Sprintf("EPSG:%d", c.EPSG) }

// WKT returns the ESRI flavoured well-known text used in .prj sidecars.
func (c CRS) WKT() string {
	geogcs, datum := wgs84GeogCSWKT, "WGS_1984"
	if c.etrs89() {
		geogcs, datum = etrs89GeogCSWKT, "ETRS_1989"
	}
	switch {
	case c.Geographic():
		return geogcs
	case c.EPSG == EPSGWebMercator:
		return webMercatorWKT
	}
	hemi := "N"
	northing := 0.0
	if c.South {
		hemi = "S"
		northing = falseNorthingSouth
	}
	return fmt.Sprintf(`PROJCS["%s_UTM_Zone_%d%s",%s,PROJECTION["Transverse_Mercator"],`+
		`PARAMETER["False_Easting",%.1f],PARAMETER["False_Northing",%.1f],`+
		`PARAMETER["Central_Meridian",%.1f],PARAMETER["Scale_Factor",%.4f],`+
		`PARAMETER["Latitude_Of_Origin",0.0],UNIT["Meter",1.0]]`,
		datum, c.Zone, hemi, geogcs, falseEasting, northing, centralMeridian(c.Zone), utmScale)
}

func centralMeridian(zone int) float64 {
	return float64((zone-1)*6 - 180 + 3)
}

// WritePRJ writes the .prj sidecar for a dataset whose path without extension
// is base, replacing any existing file.
func WritePRJ(base string, c CRS) error {
	path := strings.TrimSuffix(base, ".prj") + ".prj"
	if err := os.WriteFile(path, []byte(c.WKT()), 0o644); err != nil {
		return eris.Wrapf(err, "projection: write %s", path)
	}
	return nil
}
