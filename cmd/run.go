package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/siteselect/internal/config"
	"github.com/sells-group/siteselect/internal/export"
	"github.com/sells-group/siteselect/internal/overpass"
	"github.com/sells-group/siteselect/internal/projection"
	"github.com/sells-group/siteselect/internal/suitability"
)

var (
	runElevation string
	runFlood     string
	runOut       string
	runNoMaps    bool
	runOffline   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the suitability pipeline",
	Long:  "Loads the elevation raster and flood zones, fetches amenities from Overpass, and writes rasters, shapefiles, maps and a manifest to the output directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRunFlags(cmd, cfg)
		if err := cfg.Validate("run"); err != nil {
			return err
		}
		return runPipeline(cmd.Context(), cfg, os.Stdout)
	},
}

func init() {
	runCmd.Flags().StringVar(&runElevation, "elevation", "", "elevation raster (ESRI ASCII grid); overrides input.elevation")
	runCmd.Flags().StringVar(&runFlood, "flood", "", "flood zone polygons (shapefile); overrides input.flood")
	runCmd.Flags().StringVar(&runOut, "out", "", "output directory; overrides output.dir")
	runCmd.Flags().BoolVar(&runNoMaps, "no-maps", false, "skip map rendering")
	runCmd.Flags().BoolVar(&runOffline, "offline", false, "skip Overpass; every amenity category scores 0")
	rootCmd.AddCommand(runCmd)
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("elevation") {
		c.Input.Elevation = runElevation
	}
	if flags.Changed("flood") {
		c.Input.Flood = runFlood
	}
	if flags.Changed("out") {
		c.Output.Dir = runOut
	}
	if runNoMaps {
		c.Output.Maps = false
	}
	if runOffline {
		c.Overpass.Offline = true
	}
}

func overpassOptions(c *config.Config) overpass.Options {
	return overpass.Options{
		Endpoint:   c.Overpass.Endpoint,
		Timeout:    time.Duration(c.Overpass.TimeoutSecs) * time.Second,
		RatePerSec: c.Overpass.RatePerSec,
	}
}

func runPipeline(ctx context.Context, c *config.Config, out io.Writer) error {
	crs, err := projection.Parse(c.CRS.EPSG)
	if err != nil {
		return eris.Wrap(err, "run: raster crs")
	}
	floodCRS, err := projection.Parse(c.Input.FloodEPSG)
	if err != nil {
		return eris.Wrap(err, "run: flood crs")
	}

	sink, err := export.NewFileSink(c.Output.Dir, c.Output.PlaceholderName)
	if err != nil {
		return err
	}

	var source suitability.FeatureSource
	var endpoint string
	if c.Overpass.Offline {
		zap.L().Warn("run: offline, amenity categories will score 0")
	} else {
		source = overpass.New(overpassOptions(c))
		endpoint = c.Overpass.Endpoint
	}

	p := suitability.New(source, sink, suitability.Options{
		CRS:           crs,
		CoarsenFactor: c.Analysis.CoarsenFactor,
		Workers:       c.Analysis.Workers,
		Maps:          c.Output.Maps,
		MapScale:      c.Output.MapScale,
	})
	in := suitability.Inputs{
		Elevation:      c.Input.Elevation,
		Flood:          c.Input.Flood,
		FloodCRS:       floodCRS,
		FloodNameField: c.Input.FloodNameField,
		RiskField:      c.Input.FloodRiskField,
		RiskValues:     c.Input.FloodRiskValues,
	}

	res, err := p.Run(ctx, in)
	if err != nil {
		return eris.Wrap(err, "run")
	}

	manifest := filepath.Join(c.Output.Dir, export.ManifestFile)
	if err := export.WriteManifest(manifest, export.NewManifest(res, in, endpoint, sink.Outputs())); err != nil {
		return err
	}
	zap.L().Info("run: complete",
		zap.String("run_id", res.RunID),
		zap.String("manifest", manifest),
		zap.Int("outputs", len(sink.Outputs())),
	)

	formatSummary(out, res)
	return nil
}

// formatSummary writes per-category feature counts and the score histogram.
func formatSummary(out io.Writer, res *suitability.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tSTATE\tFEATURES\tTHRESHOLD")
	_, _ = fmt.Fprintln(w, "--------\t-----\t--------\t---------")
	for _, a := range res.Amenities {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.0f\n",
			a.Category.Name,
			a.Features.State(),
			a.Features.Len(),
			a.Category.Threshold,
		)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SCORE\tCELLS")
	_, _ = fmt.Fprintln(w, "-----\t-----")
	for score, n := range res.Histogram {
		_, _ = fmt.Fprintf(w, "%d\t%d\n", score, n)
	}
	_ = w.Flush()
}
