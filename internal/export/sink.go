// Package export persists suitability outputs: ESRI ASCII grids and
// shapefiles with .prj sidecars, PNG maps, and a YAML run manifest.
package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/siteselect/internal/projection"
	"github.com/sells-group/siteselect/internal/raster"
	"github.com/sells-group/siteselect/internal/render"
	"github.com/sells-group/siteselect/internal/vector"
)

// Output kinds.
const (
	KindRaster = "raster"
	KindVector = "vector"
	KindMap    = "map"
)

// Output records one written file.
type Output struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// FileSink writes every output into one directory, replacing files left by
// earlier runs.
type FileSink struct {
	dir         string
	placeholder string

	mu      sync.Mutex
	outputs []Output
}

// NewFileSink creates dir if needed. Features without a name are exported
// with placeholder.
func NewFileSink(dir, placeholder string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create output dir %s", dir)
	}
	return &FileSink{dir: dir, placeholder: placeholder}, nil
}

// Dir returns the output directory.
func (s *FileSink) Dir() string { return s.dir }

// Grid writes g as <name>.asc with a .prj sidecar.
func (s *FileSink) Grid(ctx context.Context, name string, g *raster.Grid, crs projection.CRS) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.path(name, ".asc")
	if err := raster.WriteASCII(path, g); err != nil {
		return eris.Wrapf(err, "export: grid %s", name)
	}
	if err := projection.WritePRJ(strings.TrimSuffix(path, ".asc"), crs); err != nil {
		return eris.Wrapf(err, "export: grid %s", name)
	}
	s.record(KindRaster, name, path)
	return nil
}

// Features writes fs as <name>.shp keeping only the name attribute.
func (s *FileSink) Features(ctx context.Context, name string, fs vector.FeatureSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.path(name, ".shp")
	if err := vector.WriteShapefile(path, fs, s.placeholder); err != nil {
		return eris.Wrapf(err, "export: features %s", name)
	}
	s.record(KindVector, name, path)
	return nil
}

// Map renders m to <name>.png.
func (s *FileSink) Map(ctx context.Context, name string, m render.Map) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := render.Draw(m)
	if err != nil {
		return eris.Wrapf(err, "export: map %s", name)
	}
	path := s.path(name, ".png")
	if err := render.WritePNG(path, img); err != nil {
		return eris.Wrapf(err, "export: map %s", name)
	}
	s.record(KindMap, name, path)
	return nil
}

// Outputs returns the files written so far in write order.
func (s *FileSink) Outputs() []Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Output, len(s.outputs))
	copy(out, s.outputs)
	return out
}

func (s *FileSink) path(name, ext string) string {
	return filepath.Join(s.dir, name+ext)
}

func (s *FileSink) record(kind, name, path string) {
	s.mu.Lock()
	s.outputs = append(s.outputs, Output{Kind: kind, Name: name, Path: path})
	s.mu.Unlock()
	zap.L().Info("export: wrote file", zap.String("kind", kind), zap.String("path", path))
}
