package dataset

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/larschri/skyggekart/scaling"
	"github.com/maypok86/otter/v2"
)

// Precache strategies accepted by Context.SetPrecache.
const (
	PrecacheNone  = "none"
	PrecacheTiled = "tiled"
	PrecacheFull  = "full"
)

// DefaultTileSize is the side length of a buffer tile in grid points.
const DefaultTileSize = 256

// maxTiledBuffers bounds the number of tiles kept with the tiled strategy.
const maxTiledBuffers = 64

type tileKey struct {
	row int
	col int
}

type tile struct {
	values []float64
}

// Context combines several rasters into one elevation surface addressed by
// latitude and longitude. The merged grid uses the finest resolution of the
// sources and is anchored at the north-west corner of their union.
//
// Elevation queries are safe for concurrent use. SetPrecache, FillBuffers,
// ClearBuffers, Add and the setters are not; per worker state is obtained
// with Copy.
type Context struct {
	sources []RasterData
	bounds  Bounds
	latRes  float64
	lonRes  float64

	minimum   float64
	maximum   float64
	estimated bool
	scaler    scaling.Scaler

	strategy    string
	tileSize    int
	cache       *otter.Cache[tileKey, *tile]
	cacheBounds Bounds
}

// NewContext returns an empty Context without buffering and without
// elevation scaling.
func NewContext() *Context {
	return &Context{
		scaler:   mustNoneScaler(),
		strategy: PrecacheNone,
		tileSize: DefaultTileSize,
	}
}

func mustNoneScaler() scaling.Scaler {
	s, _ := scaling.New(scaling.None, 1, scaling.Range{})
	return s
}

// Add appends a raster source. Earlier sources win on overlap unless
// overlap averaging is requested.
func (c *Context) Add(data RasterData) {
	if len(c.sources) == 0 {
		c.bounds = data.Bounds()
		c.latRes = data.LatitudeResolution()
		c.lonRes = data.LongitudeResolution()
	} else {
		c.bounds = c.bounds.Union(data.Bounds())
		c.latRes = math.Min(c.latRes, data.LatitudeResolution())
		c.lonRes = math.Min(c.lonRes, data.LongitudeResolution())
	}
	c.sources = append(c.sources, data)
	c.ClearBuffers()
}

// Len returns the number of raster sources.
func (c *Context) Len() int { return len(c.sources) }

func (c *Context) Bounds() Bounds                { return c.bounds }
func (c *Context) North() float64                { return c.bounds.North }
func (c *Context) South() float64                { return c.bounds.South }
func (c *Context) East() float64                 { return c.bounds.East }
func (c *Context) West() float64                 { return c.bounds.West }
func (c *Context) LatitudeResolution() float64   { return c.latRes }
func (c *Context) LongitudeResolution() float64  { return c.lonRes }
func (c *Context) DataMinimumValue() float64     { return c.minimum }
func (c *Context) DataMaximumValueTrue() float64 { return c.maximum }
func (c *Context) MinMaxEstimated() bool         { return c.estimated }
func (c *Context) ElevationScaler() scaling.Scaler {
	return c.scaler
}

// DataMaximumValue returns the maximum elevation after scaling.
func (c *Context) DataMaximumValue() float64 {
	return c.scaler.Scale(c.maximum)
}

// SetElevationScaler sets the scaler applied to every valid elevation.
// A nil scaler disables scaling.
func (c *Context) SetElevationScaler(s scaling.Scaler) {
	if s == nil {
		s = mustNoneScaler()
	}
	c.scaler = s
}

// SetMinMax overrides the data range, for example with values estimated from
// a subsample.
func (c *Context) SetMinMax(minimum, maximum float64, estimated bool) {
	c.minimum = minimum
	c.maximum = maximum
	c.estimated = estimated
}

// CalculateMinMax scans every source for the valid data range.
func (c *Context) CalculateMinMax() error {
	if len(c.sources) == 0 {
		c.SetMinMax(0, 0, false)
		return nil
	}
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	found := false
	for _, s := range c.sources {
		smin, smax, ok := s.MinMax()
		if !ok {
			continue
		}
		found = true
		lo = math.Min(lo, smin)
		hi = math.Max(hi, smax)
	}
	if !found {
		return &DataSourceError{Op: "calculate min/max", Err: fmt.Errorf("no valid elevation in %d sources", len(c.sources))}
	}
	c.SetMinMax(lo, hi, false)
	return nil
}

// EstimateMinMax sets the data range from a subsample of about samples x
// samples grid points of every source. The range is marked as estimated.
func (c *Context) EstimateMinMax(samples int) error {
	if len(c.sources) == 0 {
		c.SetMinMax(0, 0, true)
		return nil
	}
	samples = max(1, samples)
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	found := false
	for _, s := range c.sources {
		b := s.Bounds()
		rows := int(math.Round((b.North - b.South) / s.LatitudeResolution()))
		cols := int(math.Round((b.East - b.West) / s.LongitudeResolution()))
		rowStep, colStep := max(1, rows/samples), max(1, cols/samples)
		for r := 0; r < rows; r += rowStep {
			lat := b.North - float64(r)*s.LatitudeResolution()
			for col := 0; col < cols; col += colStep {
				v := s.Sample(lat, b.West+float64(col)*s.LongitudeResolution())
				if v == NoData {
					continue
				}
				found = true
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
	}
	if !found {
		return &DataSourceError{Op: "estimate min/max", Err: fmt.Errorf("no valid elevation sampled in %d sources", len(c.sources))}
	}
	c.SetMinMax(lo, hi, true)
	return nil
}

// SetPrecache selects the buffering strategy used by FillBuffers.
func (c *Context) SetPrecache(strategy string, tileSize int) error {
	switch strategy {
	case "", PrecacheNone:
		strategy = PrecacheNone
	case PrecacheTiled, PrecacheFull:
	default:
		return &DataSourceError{Op: "set precache", Err: fmt.Errorf("unknown strategy %q", strategy)}
	}
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	c.ClearBuffers()
	c.strategy = strategy
	c.tileSize = tileSize
	return nil
}

// Copy returns a Context sharing the read-only sources but with its own
// buffers. The copy starts unbuffered.
func (c *Context) Copy() *Context {
	cp := *c
	cp.sources = append([]RasterData(nil), c.sources...)
	cp.cache = nil
	cp.cacheBounds = Bounds{}
	return &cp
}

// FillBuffers prepares buffers for the given box. With the full strategy
// every tile of the box is loaded before returning.
func (c *Context) FillBuffers(north, south, east, west float64) error {
	c.ClearBuffers()
	if c.strategy == PrecacheNone || len(c.sources) == 0 {
		return nil
	}

	r0, c0 := c.index(north, west)
	r1, c1 := c.index(south, east)
	tr0, tr1 := floorDiv(r0, c.tileSize), floorDiv(r1, c.tileSize)
	tc0, tc1 := floorDiv(c0, c.tileSize), floorDiv(c1, c.tileSize)
	tiles := (tr1 - tr0 + 1) * (tc1 - tc0 + 1)

	size := maxTiledBuffers
	if c.strategy == PrecacheFull {
		size = tiles
	}

	cache, err := otter.New(&otter.Options[tileKey, *tile]{
		MaximumSize: size,
	})
	if err != nil {
		return &DataSourceError{Op: "fill buffers", Err: err}
	}
	c.cache = cache
	c.cacheBounds = Bounds{North: north, South: south, East: east, West: west}

	if c.strategy == PrecacheFull {
		for tr := tr0; tr <= tr1; tr++ {
			for tc := tc0; tc <= tc1; tc++ {
				if _, err := c.tileAt(tileKey{tr, tc}); err != nil {
					return err
				}
			}
		}
		log.Printf("buffered %d raster tiles of %d points", tiles, c.tileSize*c.tileSize)
	}
	return nil
}

// ClearBuffers drops every buffered tile.
func (c *Context) ClearBuffers() {
	if c.cache != nil {
		c.cache.InvalidateAll()
	}
	c.cache = nil
}

func (c *Context) loadTile(_ context.Context, key tileKey) (*tile, error) {
	n := c.tileSize
	t := &tile{values: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			t.values[i*n+j] = c.merged(key.row*n+i, key.col*n+j, false)
		}
	}
	return t, nil
}

func (c *Context) tileAt(key tileKey) (*tile, error) {
	t, err := c.cache.Get(context.Background(), key, otter.LoaderFunc[tileKey, *tile](c.loadTile))
	if err != nil {
		return nil, &DataSourceError{Op: "load buffer tile", Err: err}
	}
	return t, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// index returns the merged grid point at or north-west of lat/lon.
func (c *Context) index(lat, lon float64) (int, int) {
	return int(math.Floor((c.bounds.North-lat)/c.latRes + indexEpsilon)),
		int(math.Floor((lon-c.bounds.West)/c.lonRes + indexEpsilon))
}

// merged returns the raw value of merged grid point (row, col).
func (c *Context) merged(row, col int, averageOverlap bool) float64 {
	lat := c.bounds.North - float64(row)*c.latRes
	lon := c.bounds.West + float64(col)*c.lonRes

	sum, n := 0.0, 0
	for _, s := range c.sources {
		if !s.Bounds().Contains(lat, lon) {
			continue
		}
		v := s.Sample(lat, lon)
		if v == NoData {
			continue
		}
		if !averageOverlap {
			return v
		}
		sum += v
		n++
	}
	if n == 0 {
		return NoData
	}
	return sum / float64(n)
}

// point returns the raw value of a merged grid point, through the buffers
// when possible. Averaged overlaps are not buffered.
func (c *Context) point(row, col int, averageOverlap bool) float64 {
	if c.cache == nil || averageOverlap {
		return c.merged(row, col, averageOverlap)
	}
	lat := c.bounds.North - float64(row)*c.latRes
	lon := c.bounds.West + float64(col)*c.lonRes
	if !c.cacheBounds.Contains(lat, lon) {
		return c.merged(row, col, false)
	}
	key := tileKey{floorDiv(row, c.tileSize), floorDiv(col, c.tileSize)}
	t, err := c.tileAt(key)
	if err != nil {
		return c.merged(row, col, false)
	}
	return t.values[(row-key.row*c.tileSize)*c.tileSize+col-key.col*c.tileSize]
}

// raw returns the unscaled elevation at lat/lon or NoData.
func (c *Context) raw(lat, lon float64, averageOverlap, interpolate bool) float64 {
	if len(c.sources) == 0 || !c.bounds.Contains(lat, lon) {
		return NoData
	}

	fr := (c.bounds.North - lat) / c.latRes
	fc := (lon - c.bounds.West) / c.lonRes
	r0 := int(math.Floor(fr + indexEpsilon))
	c0 := int(math.Floor(fc + indexEpsilon))
	dr := math.Max(0, fr-float64(r0))
	dc := math.Max(0, fc-float64(c0))

	if !interpolate || (dr < indexEpsilon && dc < indexEpsilon) {
		return c.point(r0, c0, averageOverlap)
	}

	v00 := c.point(r0, c0, averageOverlap)
	v01 := c.point(r0, c0+1, averageOverlap)
	v10 := c.point(r0+1, c0, averageOverlap)
	v11 := c.point(r0+1, c0+1, averageOverlap)
	if v00 == NoData || v01 == NoData || v10 == NoData || v11 == NoData {
		return c.point(int(math.Round(fr)), int(math.Round(fc)), averageOverlap)
	}

	north := v00*(1-dc) + v01*dc
	south := v10*(1-dc) + v11*dc
	return north*(1-dr) + south*dr
}

func (c *Context) finish(v float64, allowNoData bool) float64 {
	if v == NoData {
		if allowNoData {
			return NoData
		}
		v = c.minimum
	}
	return c.scaler.Scale(v)
}

// StandardResolution returns the scaled elevation at lat/lon at the native
// resolution of the merged grid. Missing data yields NoData when allowNoData
// is set and the data minimum otherwise.
func (c *Context) StandardResolution(lat, lon float64, averageOverlap, interpolate, allowNoData bool) float64 {
	return c.finish(c.raw(lat, lon, averageOverlap, interpolate), allowNoData)
}

// EffectiveResolution returns the scaled mean elevation of the native points
// inside the cell of size latRes x lonRes whose north-west corner is lat/lon.
// Cells no coarser than the native grid are sampled like StandardResolution.
func (c *Context) EffectiveResolution(lat, lon, latRes, lonRes float64, averageOverlap, interpolate, allowNoData bool) float64 {
	if latRes <= c.latRes*(1+indexEpsilon) && lonRes <= c.lonRes*(1+indexEpsilon) {
		return c.StandardResolution(lat, lon, averageOverlap, interpolate, allowNoData)
	}
	if len(c.sources) == 0 || !c.bounds.Contains(lat, lon) {
		return c.finish(NoData, allowNoData)
	}

	r0, c0 := c.index(lat, lon)
	rows := int(math.Max(1, math.Round(latRes/c.latRes)))
	cols := int(math.Max(1, math.Round(lonRes/c.lonRes)))

	sum, n := 0.0, 0
	for r := r0; r < r0+rows; r++ {
		for col := c0; col < c0+cols; col++ {
			v := c.point(r, col, averageOverlap)
			if v == NoData {
				continue
			}
			sum += v
			n++
		}
	}
	if n == 0 {
		return c.finish(NoData, allowNoData)
	}
	return c.finish(sum/float64(n), allowNoData)
}
