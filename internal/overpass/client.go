package overpass

import (
	"context"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	goverpass "github.com/serjvanilla/go-overpass"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/siteselect/internal/projection"
	"github.com/sells-group/siteselect/internal/vector"
)

// DefaultEndpoint is the public Overpass interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// Options configures a Client.
type Options struct {
	Endpoint   string
	Timeout    time.Duration
	RatePerSec float64
	Transport  http.RoundTripper
}

// Client fetches features from Overpass. Requests from all goroutines share
// one rate limiter.
type Client struct {
	endpoint  string
	timeout   time.Duration
	transport http.RoundTripper
	limiter   *rate.Limiter
}

// New creates a Client, filling zero options with defaults.
func New(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout == 0 {
		opts.Timeout = 180 * time.Second
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 1
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	return &Client{
		endpoint:  opts.Endpoint,
		timeout:   opts.Timeout,
		transport: opts.Transport,
		limiter:   rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
	}
}

// ctxTransport binds every request to ctx, since the Overpass client's Query
// takes no context.
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// Fetch runs q over b and returns the matching features reprojected into dst.
// A query that matches nothing returns an Empty set. Errors are not retried.
func (c *Client) Fetch(ctx context.Context, b BBox, q Query, dst projection.CRS) (vector.FeatureSet, error) {
	kind := vector.KindPoint
	if q.Hint == HintLines {
		kind = vector.KindLine
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return vector.FeatureSet{}, eris.Wrap(err, "overpass: rate limit wait")
	}

	log := zap.L().With(zap.String("component", "overpass"), zap.String("key", q.Key), zap.Strings("values", q.Values))

	httpClient := &http.Client{
		Timeout:   c.timeout,
		Transport: ctxTransport{ctx: ctx, base: c.transport},
	}
	api := goverpass.NewWithSettings(c.endpoint, 1, httpClient)

	start := time.Now()
	result, err := api.Query(BuildQL(b, q, c.timeout))
	if err != nil {
		return vector.FeatureSet{}, eris.Wrapf(err, "overpass: query %s=%v", q.Key, q.Values)
	}

	features := convert(&result, q, projection.NewTransform(projection.WGS84, dst))
	log.Info("fetched features",
		zap.Int("nodes", len(result.Nodes)),
		zap.Int("ways", len(result.Ways)),
		zap.Int("relations", len(result.Relations)),
		zap.Int("kept", len(features)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return vector.NewSet(kind, dst, features), nil
}

// convert turns an Overpass result into features ordered by element type
// (nodes, ways, relations) then id, so repeated runs produce identical output.
func convert(result *goverpass.Result, q Query, tr projection.Transform) []vector.Feature {
	var features []vector.Feature

	if q.Hint == HintAreal {
		ids := make([]int64, 0, len(result.Nodes))
		for id, n := range result.Nodes {
			if q.Matches(n.Tags) {
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			n := result.Nodes[id]
			x, y, err := tr(n.Lon, n.Lat)
			if err != nil {
				zap.L().Debug("overpass: skipping node", zap.Int64("id", id), zap.Error(err))
				continue
			}
			features = append(features, newFeature(id, n.Tags, geom.NewPointFlat(geom.XY, []float64{x, y})))
		}
	}

	ids := make([]int64, 0, len(result.Ways))
	for id, w := range result.Ways {
		if q.Matches(w.Tags) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		w := result.Ways[id]
		flat, ok := project(w, tr)
		if !ok {
			zap.L().Debug("overpass: skipping way without usable nodes", zap.Int64("id", id))
			continue
		}

		var g geom.T
		switch q.Hint {
		case HintLines:
			if len(flat) < 4 {
				continue
			}
			g = geom.NewLineStringFlat(geom.XY, flat)
		default:
			g = geom.NewPointFlat(geom.XY, wayCentroid(flat))
		}
		features = append(features, newFeature(id, w.Tags, g))
	}

	if q.Hint != HintAreal {
		return features
	}
	ids = ids[:0]
	for id, r := range result.Relations {
		if q.Matches(r.Tags) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		r := result.Relations[id]
		c, ok := relationCentroid(r, tr)
		if !ok {
			zap.L().Debug("overpass: skipping relation without usable outer ways", zap.Int64("id", id))
			continue
		}
		features = append(features, newFeature(id, r.Tags, geom.NewPointFlat(geom.XY, c)))
	}
	return features
}

// project returns the way's vertices in the target CRS. It fails when a node
// was not returned by the server or does not transform.
func project(w *goverpass.Way, tr projection.Transform) ([]float64, bool) {
	if w == nil || len(w.Nodes) == 0 {
		return nil, false
	}
	flat := make([]float64, 0, 2*len(w.Nodes))
	for _, n := range w.Nodes {
		if n == nil {
			return nil, false
		}
		x, y, err := tr(n.Lon, n.Lat)
		if err != nil {
			return nil, false
		}
		flat = append(flat, x, y)
	}
	return flat, true
}

// relationCentroid reduces a relation to the area-weighted centroid of its
// closed outer ways. Unclosed outer fragments only contribute to the vertex
// mean used when no closed ring has area.
func relationCentroid(r *goverpass.Relation, tr projection.Transform) ([]float64, bool) {
	var (
		cx, cy, area float64
		sx, sy       float64
		n            int
	)
	for _, m := range r.Members {
		if m.Type != goverpass.ElementTypeWay || (m.Role != "outer" && m.Role != "") {
			continue
		}
		flat, ok := project(m.Way, tr)
		if !ok {
			continue
		}
		for i := 0; i+1 < len(flat); i += 2 {
			sx += flat[i]
			sy += flat[i+1]
			n++
		}
		if !closedRing(flat) {
			continue
		}
		poly := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
		a := math.Abs(poly.Area())
		if a == 0 {
			continue
		}
		c := wayCentroid(flat)
		cx += c[0] * a
		cy += c[1] * a
		area += a
	}
	switch {
	case area > 0:
		return []float64{cx / area, cy / area}, true
	case n > 0:
		return []float64{sx / float64(n), sy / float64(n)}, true
	default:
		return nil, false
	}
}

func closedRing(flat []float64) bool {
	return len(flat) >= 8 && flat[0] == flat[len(flat)-2] && flat[1] == flat[len(flat)-1]
}

func newFeature(id int64, tags map[string]string, g geom.T) vector.Feature {
	return vector.Feature{
		ID:    id,
		Name:  vector.CleanName(tags["name"]),
		Attrs: tags,
		Geom:  g,
	}
}

// wayCentroid returns the area centroid of a closed way, falling back to the
// vertex mean for open or degenerate ways.
func wayCentroid(flat []float64) []float64 {
	n := len(flat) / 2
	closed := closedRing(flat)
	if closed {
		poly := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
		if c, err := xy.Centroid(poly); err == nil && !math.IsNaN(c[0]) && !math.IsNaN(c[1]) && !math.IsInf(c[0], 0) {
			return []float64{c[0], c[1]}
		}
	}
	if closed {
		n--
	}
	var sx, sy float64
	for i := 0; i < 2*n; i += 2 {
		sx += flat[i]
		sy += flat[i+1]
	}
	return []float64{sx / float64(n), sy / float64(n)}
}
