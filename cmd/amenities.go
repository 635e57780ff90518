package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/siteselect/internal/config"
	"github.com/sells-group/siteselect/internal/overpass"
	"github.com/sells-group/siteselect/internal/projection"
	"github.com/sells-group/siteselect/internal/raster"
	"github.com/sells-group/siteselect/internal/suitability"
)

var amenitiesCmd = &cobra.Command{
	Use:   "amenities",
	Short: "Show amenity categories and their Overpass queries",
	Long:  "Prints the amenity table and the Overpass QL each category would send for the extent of the configured elevation raster.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("amenities"); err != nil {
			return err
		}
		return showAmenities(os.Stdout, cfg)
	},
}

func init() {
	rootCmd.AddCommand(amenitiesCmd)
}

func showAmenities(out io.Writer, c *config.Config) error {
	cats := suitability.DefaultCategories()
	formatCategories(out, cats)

	crs, err := projection.Parse(c.CRS.EPSG)
	if err != nil {
		return eris.Wrap(err, "amenities: raster crs")
	}
	elev, err := raster.ReadASCII(c.Input.Elevation)
	if err != nil {
		return eris.Wrap(err, "amenities: elevation")
	}
	study, err := suitability.NewStudy(elev, crs, c.Analysis.CoarsenFactor)
	if err != nil {
		return err
	}
	bbox, err := study.BBox()
	if err != nil {
		return err
	}

	timeout := time.Duration(c.Overpass.TimeoutSecs) * time.Second
	_, _ = fmt.Fprintf(out, "\nbbox (s,w,n,e): %s\nendpoint: %s\n", bbox, c.Overpass.Endpoint)
	for _, cat := range cats {
		_, _ = fmt.Fprintf(out, "\n# %s\n%s", cat.Name, overpass.BuildQL(bbox, cat.Query(), timeout))
	}
	return nil
}

// formatCategories writes the amenity table to out.
func formatCategories(out io.Writer, cats []suitability.Category) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tTAG\tVALUES\tTHRESHOLD\tGEOMETRY\tNAME REQUIRED")
	_, _ = fmt.Fprintln(w, "----\t---\t------\t---------\t--------\t-------------")
	for _, cat := range cats {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%s\t%t\n",
			cat.Name,
			cat.Key,
			strings.Join(cat.Values, ","),
			cat.Threshold,
			cat.Hint,
			cat.RequireName,
		)
	}
	_ = w.Flush()
}
