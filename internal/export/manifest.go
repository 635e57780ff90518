package export

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/siteselect/internal/overpass"
	"github.com/sells-group/siteselect/internal/raster"
	"github.com/sells-group/siteselect/internal/suitability"
)

// ManifestFile is the manifest's file name inside the output directory.
const ManifestFile = "manifest.yaml"

// Manifest describes one run.
type Manifest struct {
	RunID     string                    `yaml:"run_id"`
	Started   time.Time                 `yaml:"started"`
	Finished  time.Time                 `yaml:"finished"`
	Inputs    ManifestInputs            `yaml:"inputs"`
	CRS       string                    `yaml:"crs"`
	Grid      ManifestGrid              `yaml:"grid"`
	BBox      *overpass.BBox            `yaml:"bbox,omitempty"`
	Stages    []suitability.StageResult `yaml:"stages"`
	Features  map[string]int            `yaml:"features"`
	Score     raster.Stats              `yaml:"score"`
	Histogram map[int]int               `yaml:"histogram"`
	Outputs   []Output                  `yaml:"outputs"`
}

// ManifestInputs records where the inputs came from.
type ManifestInputs struct {
	Elevation  string   `yaml:"elevation"`
	Flood      string   `yaml:"flood"`
	FloodCRS   string   `yaml:"flood_crs"`
	RiskField  string   `yaml:"risk_field,omitempty"`
	RiskValues []string `yaml:"risk_values,omitempty"`
	Overpass   string   `yaml:"overpass,omitempty"` // empty when run offline
}

// ManifestGrid describes the reference grid.
type ManifestGrid struct {
	Cols          int     `yaml:"cols"`
	Rows          int     `yaml:"rows"`
	CellSize      float64 `yaml:"cell_size"`
	XLL           float64 `yaml:"xll"`
	YLL           float64 `yaml:"yll"`
	CoarsenFactor int     `yaml:"coarsen_factor"`
}

// NewManifest summarises res. endpoint is the Overpass endpoint used, or
// empty when amenities were not fetched.
func NewManifest(res *suitability.Result, in suitability.Inputs, endpoint string, outputs []Output) Manifest {
	ref := res.Study.Reference
	m := Manifest{
		RunID:    res.RunID,
		Started:  res.Started.UTC(),
		Finished: res.Finished.UTC(),
		Inputs: ManifestInputs{
			Elevation:  in.Elevation,
			Flood:      in.Flood,
			FloodCRS:   in.FloodCRS.String(),
			RiskField:  in.RiskField,
			RiskValues: in.RiskValues,
			Overpass:   endpoint,
		},
		CRS: res.Study.CRS.String(),
		Grid: ManifestGrid{
			Cols:          ref.Cols,
			Rows:          ref.Rows,
			CellSize:      ref.CellSize,
			XLL:           ref.XLL,
			YLL:           ref.YLL,
			CoarsenFactor: res.Study.Factor,
		},
		Stages:    res.Stages,
		Features:  res.FeatureCounts(),
		Score:     raster.Summarize(res.Score),
		Histogram: make(map[int]int, len(res.Histogram)),
		Outputs:   outputs,
	}
	for score, n := range res.Histogram {
		m.Histogram[score] = n
	}
	if endpoint != "" {
		if b, err := res.Study.BBox(); err == nil {
			m.BBox = &b
		}
	}
	return m
}

// WriteManifest writes m as YAML to path.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "export: marshal manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write manifest %s", path)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read manifest %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "export: parse manifest")
	}
	return &m, nil
}
