package suitability

import (
	"context"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/siteselect/internal/overpass"
	"github.com/sells-group/siteselect/internal/projection"
	"github.com/sells-group/siteselect/internal/raster"
	"github.com/sells-group/siteselect/internal/render"
	"github.com/sells-group/siteselect/internal/vector"
)

// FeatureSource retrieves amenity features for a geographic bounding box,
// reprojected into dst. *overpass.Client satisfies it.
type FeatureSource interface {
	Fetch(ctx context.Context, b overpass.BBox, q overpass.Query, dst projection.CRS) (vector.FeatureSet, error)
}

// Sink receives every output of a run. Implementations decide how (and
// whether) grids, feature sets and maps are persisted.
type Sink interface {
	Grid(ctx context.Context, name string, g *raster.Grid, crs projection.CRS) error
	Features(ctx context.Context, name string, fs vector.FeatureSet) error
	Map(ctx context.Context, name string, m render.Map) error
}

// Inputs names the local input files.
type Inputs struct {
	Elevation      string
	Flood          string
	FloodCRS       projection.CRS
	FloodNameField string
	// RiskField and RiskValues restrict burned flood polygons to those whose
	// attribute is one of RiskValues. An empty RiskField burns every polygon.
	RiskField  string
	RiskValues []string
}

// Options configures a Pipeline.
type Options struct {
	CRS           projection.CRS
	CoarsenFactor int
	Workers       int
	Categories    []Category
	Maps          bool
	MapScale      int
	RunID         string
}

// StageResult records how long one stage took.
type StageResult struct {
	Name       string `yaml:"name"`
	DurationMS int64  `yaml:"duration_ms"`
}

// AmenityResult holds one category's features, distance field and mask.
type AmenityResult struct {
	Category Category
	Features vector.FeatureSet
	Distance *raster.Grid
	Mask     *raster.Grid
}

// Result is everything a run produced.
type Result struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	Study      *Study
	SlopeMask  *raster.Grid
	FloodMask  *raster.Grid
	FloodZones vector.FeatureSet
	Amenities  []AmenityResult
	Density    *raster.Grid
	Score      *raster.Grid
	Histogram  []int
	Stages     []StageResult
}

// Pipeline runs the suitability stages in order: input loading, terrain,
// flood, amenities, then aggregation and output.
type Pipeline struct {
	source FeatureSource
	sink   Sink
	opts   Options
}

// New creates a Pipeline. A nil source skips amenity retrieval and leaves
// every category Absent.
func New(source FeatureSource, sink Sink, opts Options) *Pipeline {
	if opts.CoarsenFactor < 1 {
		opts.CoarsenFactor = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Categories == nil {
		opts.Categories = DefaultCategories()
	}
	if opts.MapScale < 1 {
		opts.MapScale = 1
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Pipeline{source: source, sink: sink, opts: opts}
}

// Run loads the inputs and runs every stage.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	start := time.Now()
	elev, flood, err := LoadInputs(in, p.opts.CRS)
	if err != nil {
		return nil, err
	}
	load := StageResult{Name: "load", DurationMS: time.Since(start).Milliseconds()}

	res, err := p.Analyze(ctx, elev, flood)
	if err != nil {
		return nil, err
	}
	res.Started = start
	res.Stages = append([]StageResult{load}, res.Stages...)
	return res, nil
}

// LoadInputs reads the elevation raster (in crs) and the flood polygons.
// A missing file is fatal and the error names it.
func LoadInputs(in Inputs, crs projection.CRS) (*raster.Grid, vector.FeatureSet, error) {
	if _, err := os.Stat(in.Elevation); err != nil {
		return nil, vector.FeatureSet{}, eris.Errorf("input: elevation raster %s does not exist", in.Elevation)
	}
	if _, err := os.Stat(in.Flood); err != nil {
		return nil, vector.FeatureSet{}, eris.Errorf("input: flood zones %s do not exist", in.Flood)
	}

	elev, err := raster.ReadASCII(in.Elevation)
	if err != nil {
		return nil, vector.FeatureSet{}, eris.Wrap(err, "input: elevation")
	}

	name := in.FloodNameField
	if name == "" {
		name = vector.NameField
	}
	flood, err := vector.LoadShapefile(in.Flood, vector.LoadOptions{CRS: in.FloodCRS, NameField: name})
	if err != nil {
		return nil, vector.FeatureSet{}, eris.Wrap(err, "input: flood zones")
	}
	if flood.Kind != vector.KindPolygon {
		return nil, vector.FeatureSet{}, eris.Errorf("input: flood zones %s hold %s features, want polygons", in.Flood, flood.Kind)
	}

	zap.L().Info("input: loaded",
		zap.String("elevation", in.Elevation),
		zap.Int("cols", elev.Cols),
		zap.Int("rows", elev.Rows),
		zap.String("crs", crs.String()),
		zap.String("flood", in.Flood),
		zap.Int("flood_polygons", flood.Len()),
	)
	return elev, FilterRisk(flood, in.RiskField, in.RiskValues), nil
}

// FilterRisk keeps the features whose field attribute is one of values,
// compared case-insensitively. An empty field keeps everything.
func FilterRisk(fs vector.FeatureSet, field string, values []string) vector.FeatureSet {
	if field == "" {
		return fs
	}
	key := strings.ToLower(field)
	return fs.Filter(func(f vector.Feature) bool {
		return slices.ContainsFunc(values, func(v string) bool {
			return strings.EqualFold(strings.TrimSpace(v), f.Attrs[key])
		})
	})
}

// Analyze runs every stage after input loading on in-memory inputs.
func (p *Pipeline) Analyze(ctx context.Context, elev *raster.Grid, flood vector.FeatureSet) (*Result, error) {
	res := &Result{RunID: p.opts.RunID, Started: time.Now()}
	log := zap.L().With(zap.String("component", "suitability"), zap.String("run_id", res.RunID))
	log.Info("pipeline: starting", zap.String("crs", p.opts.CRS.String()), zap.Int("coarsen_factor", p.opts.CoarsenFactor))

	stage := func(name string, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		err := fn()
		d := time.Since(start)
		res.Stages = append(res.Stages, StageResult{Name: name, DurationMS: d.Milliseconds()})
		if err != nil {
			log.Error("pipeline: stage failed", zap.String("stage", name), zap.Error(err))
			return err
		}
		log.Info("pipeline: stage complete", zap.String("stage", name), zap.Int64("duration_ms", d.Milliseconds()))
		return nil
	}

	var err error
	res.Study, err = NewStudy(elev, p.opts.CRS, p.opts.CoarsenFactor)
	if err != nil {
		return nil, err
	}

	if err := stage("terrain", func() error {
		res.SlopeMask, err = ClassifyTerrain(res.Study)
		return err
	}); err != nil {
		return nil, err
	}

	if err := stage("flood", func() error {
		res.FloodMask, res.FloodZones, err = ClassifyFlood(res.Study, flood)
		return err
	}); err != nil {
		return nil, err
	}

	if err := stage("amenities", func() error {
		res.Amenities, err = ScoreAmenities(ctx, res.Study, p.source, p.opts.Categories, p.opts.Workers)
		return err
	}); err != nil {
		return nil, err
	}

	if err := stage("aggregate", func() error {
		masks := make([]*raster.Grid, len(res.Amenities))
		for i, a := range res.Amenities {
			masks[i] = a.Mask
		}
		if res.Density, err = Sum(res.Study.Reference, masks...); err != nil {
			return err
		}
		if res.Score, err = Aggregate(res.Study.Reference, masks, res.FloodMask, res.SlopeMask); err != nil {
			return err
		}
		res.Histogram = raster.Histogram(res.Score, len(masks))
		return nil
	}); err != nil {
		return nil, err
	}

	if p.sink != nil {
		if err := stage("output", func() error { return p.write(ctx, res) }); err != nil {
			return nil, err
		}
	}

	res.Finished = time.Now()
	log.Info("pipeline: complete", zap.Ints("histogram", res.Histogram))
	return res, nil
}

// ClassifyTerrain derives slope at native resolution, brings it onto the
// reference grid and marks cells with slope below SlopeThresholdDegrees.
func ClassifyTerrain(s *Study) (*raster.Grid, error) {
	slope, err := raster.Coarsen(raster.Slope(s.Elevation), s.Factor)
	if err != nil {
		return nil, eris.Wrap(err, "terrain: coarsen slope")
	}
	if !slope.SameGeometry(s.Reference) {
		return nil, eris.New("terrain: slope grid does not match reference grid")
	}
	return Reclassify(slope, LessThan(SlopeThresholdDegrees)), nil
}

// ClassifyFlood reprojects the flood polygons into the study CRS, burns them
// onto the reference grid and inverts the result so unflooded cells are 1.
func ClassifyFlood(s *Study, flood vector.FeatureSet) (*raster.Grid, vector.FeatureSet, error) {
	zones, err := flood.Reproject(s.CRS)
	if err != nil {
		return nil, vector.FeatureSet{}, eris.Wrap(err, "flood: reproject")
	}
	burned := vector.Burn(s.Reference, zones)
	return Reclassify(burned, Equal(0)), zones, nil
}

// ScoreAmenities fetches, filters and scores every category concurrently.
// Each goroutine writes only its own slot, so results keep category order.
// A nil source leaves every category Absent.
func ScoreAmenities(ctx context.Context, s *Study, src FeatureSource, cats []Category, workers int) ([]AmenityResult, error) {
	var bbox overpass.BBox
	if src != nil {
		var err error
		if bbox, err = s.BBox(); err != nil {
			return nil, eris.Wrap(err, "amenities: study bbox")
		}
	}

	results := make([]AmenityResult, len(cats))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for i, cat := range cats {
		g.Go(func() error {
			fs := vector.AbsentSet(kindFor(cat.Hint), s.CRS)
			if src != nil {
				fetched, err := src.Fetch(gCtx, bbox, cat.Query(), s.CRS)
				if err != nil {
					return eris.Wrapf(err, "amenities: fetch %s", cat.Name)
				}
				fs = fetched
			}
			if cat.RequireName {
				fs = fs.Named()
			}

			dist := DistanceField(s.Reference, fs)
			mask := Reclassify(dist, LessThan(cat.Threshold))
			results[i] = AmenityResult{Category: cat, Features: fs, Distance: dist, Mask: mask}

			zap.L().Info("amenities: scored category",
				zap.String("category", cat.Name),
				zap.Stringer("state", fs.State()),
				zap.Int("features", fs.Len()),
				zap.Float64("threshold", cat.Threshold),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func kindFor(h overpass.Hint) vector.Kind {
	if h == overpass.HintLines {
		return vector.KindLine
	}
	return vector.KindPoint
}
