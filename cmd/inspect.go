package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/siteselect/internal/raster"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.asc>",
	Short: "Print raster metadata and value statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspectRaster(os.Stdout, args[0])
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func inspectRaster(out io.Writer, path string) error {
	g, err := raster.ReadASCII(path)
	if err != nil {
		return eris.Wrap(err, "inspect")
	}
	ext := g.Extent()
	st := raster.Summarize(g)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "file\t%s\n", path)
	_, _ = fmt.Fprintf(w, "size\t%d x %d\n", g.Cols, g.Rows)
	_, _ = fmt.Fprintf(w, "cell size\t%g\n", g.CellSize)
	_, _ = fmt.Fprintf(w, "extent\t%g, %g, %g, %g\n", ext.MinX, ext.MinY, ext.MaxX, ext.MaxY)
	_, _ = fmt.Fprintf(w, "nodata\t%g\n", g.NoData)
	_, _ = fmt.Fprintf(w, "valid cells\t%d\n", st.Valid)
	_, _ = fmt.Fprintf(w, "nodata cells\t%d\n", st.NoData)
	_, _ = fmt.Fprintf(w, "min\t%g\n", st.Min)
	_, _ = fmt.Fprintf(w, "max\t%g\n", st.Max)
	_, _ = fmt.Fprintf(w, "mean\t%.4f\n", st.Mean)
	return w.Flush()
}
