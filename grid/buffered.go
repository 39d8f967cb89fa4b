package grid

import (
	"sync/atomic"

	"github.com/larschri/skyggekart/dataset"
)

// Buffered is a Grid held in memory.
type Buffered struct {
	geometry
	elevation []float32
	rgba      []uint8
	disposed  atomic.Bool
}

// NewBuffered allocates a grid covering b and resets it.
func NewBuffered(b dataset.Bounds, latRes, lonRes float64) (*Buffered, error) {
	geo, err := newGeometry(b, latRes, lonRes)
	if err != nil {
		return nil, err
	}
	g := &Buffered{
		geometry:  geo,
		elevation: make([]float32, geo.rows*geo.cols),
		rgba:      make([]uint8, 4*geo.rows*geo.cols),
	}
	g.Reset()
	return g, nil
}

func (g *Buffered) cell(r, c int) float64 {
	return toFloat(g.elevation[r*g.cols+c])
}

func (g *Buffered) Elevation(lat, lon float64, interpolate bool) float64 {
	if g.disposed.Load() {
		return dataset.NoData
	}
	return g.interpolate(lat, lon, interpolate, g.cell)
}

func (g *Buffered) SetElevation(lat, lon, elevation float64) {
	r, c, ok := g.index(lat, lon)
	if !ok || g.disposed.Load() {
		return
	}
	g.elevation[r*g.cols+c] = float32(elevation)
}

func (g *Buffered) Rgba(lat, lon float64, rgba *[4]uint8) {
	r, c, ok := g.index(lat, lon)
	if !ok || g.disposed.Load() {
		*rgba = [4]uint8{}
		return
	}
	i := 4 * (r*g.cols + c)
	copy(rgba[:], g.rgba[i:i+4])
}

func (g *Buffered) SetRgba(lat, lon float64, rgba [4]uint8) {
	r, c, ok := g.index(lat, lon)
	if !ok || g.disposed.Load() {
		return
	}
	i := 4 * (r*g.cols + c)
	copy(g.rgba[i:i+4], rgba[:])
}

func (g *Buffered) Reset() {
	for i := range g.elevation {
		g.elevation[i] = dataset.NoData
	}
	clear(g.rgba)
}

// Dispose releases the cell arrays. Every later read returns NoData.
func (g *Buffered) Dispose() error {
	if g.disposed.Swap(true) {
		return nil
	}
	g.elevation = nil
	g.rgba = nil
	return nil
}

func (g *Buffered) Histogram(bins int) Histogram {
	return histogramOf(bins, func(yield func(float64)) {
		if g.disposed.Load() {
			return
		}
		for _, v := range g.elevation {
			yield(toFloat(v))
		}
	})
}
