package grid

import (
	"errors"
	"sync/atomic"

	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/model"
)

// ErrDisposed is returned by FillControlled.Err after the grid was disposed.
var ErrDisposed = errors.New("model grid disposed")

// Filter adjusts the elevation loaded into a cell.
type Filter interface {
	FilterElevation(lat, lon, elevation float64) (float64, error)
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(lat, lon, elevation float64) (float64, error)

func (f FilterFunc) FilterElevation(lat, lon, elevation float64) (float64, error) {
	return f(lat, lon, elevation)
}

// ScriptFilter passes valid elevations through a point script.
func ScriptFilter(script model.PointScript) Filter {
	return FilterFunc(func(lat, lon, elevation float64) (float64, error) {
		if elevation == dataset.NoData {
			return elevation, nil
		}
		return script.OnGetElevation(lat, lon, elevation)
	})
}

type fillState struct {
	filled   atomic.Bool
	disposed atomic.Bool
}

// FillOptions controls how FillControlled reads raster data.
type FillOptions struct {
	AverageOverlap bool
	Interpolate    bool
}

// FillControlled wraps a backing grid. Until MarkFilled is called elevations
// are computed from the raster through the filter stack, which is the value
// the load pass stores. Afterwards they are read from the backing grid.
//
// Dependent instances share the backing grid and fill state but own their
// raster context and filters, so each goroutine uses its own instance.
type FillControlled struct {
	backing Grid
	raster  *dataset.Context
	opts    FillOptions
	filters []Filter
	state   *fillState
	root    bool
	err     error
}

// NewFillControlled wraps backing with raster as the elevation source.
func NewFillControlled(backing Grid, raster *dataset.Context, opts FillOptions) *FillControlled {
	return &FillControlled{
		backing: backing,
		raster:  raster,
		opts:    opts,
		state:   &fillState{},
		root:    true,
	}
}

// NewDependent returns an instance sharing the backing grid that reads
// raster data from raster.
func (g *FillControlled) NewDependent(raster *dataset.Context) *FillControlled {
	return &FillControlled{
		backing: g.backing,
		raster:  raster,
		opts:    g.opts,
		state:   g.state,
	}
}

// SetFilters replaces the filter stack of this instance.
func (g *FillControlled) SetFilters(filters ...Filter) {
	g.filters = append([]Filter(nil), filters...)
}

// Raster returns the raster context of this instance.
func (g *FillControlled) Raster() *dataset.Context { return g.raster }

// Backing returns the grid the cells are stored in.
func (g *FillControlled) Backing() Grid { return g.backing }

// MarkFilled switches every instance to reading the backing grid.
func (g *FillControlled) MarkFilled() { g.state.filled.Store(true) }

// Filled reports whether MarkFilled was called since the last Reset.
func (g *FillControlled) Filled() bool { return g.state.filled.Load() }

// Err returns the first filter error seen by this instance, or the storage
// error of the backing grid.
func (g *FillControlled) Err() error {
	if g.err != nil {
		return g.err
	}
	if g.state.disposed.Load() {
		return ErrDisposed
	}
	if b, ok := g.backing.(interface{ Err() error }); ok {
		return b.Err()
	}
	return nil
}

func (g *FillControlled) Bounds() dataset.Bounds       { return g.backing.Bounds() }
func (g *FillControlled) LatitudeResolution() float64  { return g.backing.LatitudeResolution() }
func (g *FillControlled) LongitudeResolution() float64 { return g.backing.LongitudeResolution() }
func (g *FillControlled) Rows() int                    { return g.backing.Rows() }
func (g *FillControlled) Columns() int                 { return g.backing.Columns() }

func (g *FillControlled) geometry() geometry {
	return geometry{
		bounds: g.backing.Bounds(),
		latRes: g.backing.LatitudeResolution(),
		lonRes: g.backing.LongitudeResolution(),
		rows:   g.backing.Rows(),
		cols:   g.backing.Columns(),
	}
}

// load computes the elevation of cell (r, c) from the raster.
func (g *FillControlled) load(geo geometry, r, c int) float64 {
	lat := geo.bounds.North - float64(r)*geo.latRes
	lon := geo.bounds.West + float64(c)*geo.lonRes
	v := g.raster.EffectiveResolution(lat, lon, geo.latRes, geo.lonRes, g.opts.AverageOverlap, g.opts.Interpolate, true)
	for _, f := range g.filters {
		var err error
		v, err = f.FilterElevation(lat, lon, v)
		if err != nil {
			if g.err == nil {
				g.err = err
			}
			return dataset.NoData
		}
	}
	// Stored cells are float32.
	if v != dataset.NoData {
		v = float64(float32(v))
	}
	return v
}

func (g *FillControlled) Elevation(lat, lon float64, interpolate bool) float64 {
	if g.state.disposed.Load() {
		return dataset.NoData
	}
	if g.state.filled.Load() {
		return g.backing.Elevation(lat, lon, interpolate)
	}
	geo := g.geometry()
	return geo.interpolate(lat, lon, interpolate, func(r, c int) float64 {
		return g.load(geo, r, c)
	})
}

func (g *FillControlled) SetElevation(lat, lon, elevation float64) {
	if g.state.disposed.Load() {
		return
	}
	g.backing.SetElevation(lat, lon, elevation)
}

func (g *FillControlled) Rgba(lat, lon float64, rgba *[4]uint8) {
	if g.state.disposed.Load() {
		*rgba = [4]uint8{}
		return
	}
	g.backing.Rgba(lat, lon, rgba)
}

func (g *FillControlled) SetRgba(lat, lon float64, rgba [4]uint8) {
	if g.state.disposed.Load() {
		return
	}
	g.backing.SetRgba(lat, lon, rgba)
}

// Reset clears the backing grid and returns every instance to the data
// phase.
func (g *FillControlled) Reset() {
	g.state.filled.Store(false)
	g.backing.Reset()
}

// Dispose releases the raster buffers of this instance. Disposing the root
// instance also disposes the backing grid and invalidates every dependent.
func (g *FillControlled) Dispose() error {
	g.raster.ClearBuffers()
	if !g.root {
		return nil
	}
	if g.state.disposed.Swap(true) {
		return nil
	}
	return g.backing.Dispose()
}

func (g *FillControlled) Histogram(bins int) Histogram {
	return g.backing.Histogram(bins)
}
