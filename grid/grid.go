// Package grid implements the model grid: a dense array of cells holding an
// elevation and an RGBA color, addressed by latitude and longitude.
//
// Cell (r, c) belongs to latitude north-r*latRes and longitude west+c*lonRes.
// Coordinates outside the grid read as dataset.NoData and writes to them are
// ignored.
package grid

import (
	"fmt"
	"math"

	"github.com/larschri/skyggekart/dataset"
)

const indexEpsilon = 1e-6

// Grid is a model grid. Implementations allow concurrent use as long as no
// two goroutines write the same row.
type Grid interface {
	Bounds() dataset.Bounds
	LatitudeResolution() float64
	LongitudeResolution() float64
	Rows() int
	Columns() int

	// Elevation returns the elevation at lat/lon, interpolated between the
	// surrounding cells when interpolate is set.
	Elevation(lat, lon float64, interpolate bool) float64
	SetElevation(lat, lon, elevation float64)

	Rgba(lat, lon float64, rgba *[4]uint8)
	SetRgba(lat, lon float64, rgba [4]uint8)

	// Reset clears every cell to NoData and a transparent color.
	Reset()
	Dispose() error

	// Histogram returns the distribution of the stored elevations.
	Histogram(bins int) Histogram
}

type geometry struct {
	bounds dataset.Bounds
	latRes float64
	lonRes float64
	rows   int
	cols   int
}

func newGeometry(b dataset.Bounds, latRes, lonRes float64) (geometry, error) {
	if !(latRes > 0) || !(lonRes > 0) {
		return geometry{}, &dataset.DataSourceError{Op: "create grid", Err: fmt.Errorf("invalid resolution %v x %v", latRes, lonRes)}
	}
	rows := int(math.Round((b.North - b.South) / latRes))
	cols := int(math.Round((b.East - b.West) / lonRes))
	if rows <= 0 || cols <= 0 {
		return geometry{}, &dataset.DataSourceError{Op: "create grid", Err: fmt.Errorf("invalid dimensions %d x %d", rows, cols)}
	}
	return geometry{bounds: b, latRes: latRes, lonRes: lonRes, rows: rows, cols: cols}, nil
}

func (g geometry) Bounds() dataset.Bounds       { return g.bounds }
func (g geometry) LatitudeResolution() float64  { return g.latRes }
func (g geometry) LongitudeResolution() float64 { return g.lonRes }
func (g geometry) Rows() int                    { return g.rows }
func (g geometry) Columns() int                 { return g.cols }

func (g geometry) row(lat float64) int {
	return int(math.Floor((g.bounds.North-lat)/g.latRes + indexEpsilon))
}

func (g geometry) col(lon float64) int {
	return int(math.Floor((lon-g.bounds.West)/g.lonRes + indexEpsilon))
}

// index returns the cell containing lat/lon.
func (g geometry) index(lat, lon float64) (int, int, bool) {
	r, c := g.row(lat), g.col(lon)
	return r, c, g.inside(r, c)
}

func (g geometry) inside(r, c int) bool {
	return r >= 0 && r < g.rows && c >= 0 && c < g.cols
}

// interpolate reads lat/lon through cell. Cells outside the grid or holding
// NoData fall back to the nearest cell.
func (g geometry) interpolate(lat, lon float64, interpolate bool, cell func(r, c int) float64) float64 {
	fr := (g.bounds.North - lat) / g.latRes
	fc := (lon - g.bounds.West) / g.lonRes
	r0 := int(math.Floor(fr + indexEpsilon))
	c0 := int(math.Floor(fc + indexEpsilon))
	if !g.inside(r0, c0) {
		return dataset.NoData
	}
	dr := math.Max(0, fr-float64(r0))
	dc := math.Max(0, fc-float64(c0))
	if !interpolate || (dr < indexEpsilon && dc < indexEpsilon) {
		return cell(r0, c0)
	}

	r1, c1 := min(r0+1, g.rows-1), min(c0+1, g.cols-1)
	v00, v01 := cell(r0, c0), cell(r0, c1)
	v10, v11 := cell(r1, c0), cell(r1, c1)
	if v00 == dataset.NoData || v01 == dataset.NoData || v10 == dataset.NoData || v11 == dataset.NoData {
		return cell(min(int(math.Round(fr)), g.rows-1), min(int(math.Round(fc)), g.cols-1))
	}
	north := v00*(1-dc) + v01*dc
	south := v10*(1-dc) + v11*dc
	return north*(1-dr) + south*dr
}

func toFloat(v float32) float64 {
	if v == dataset.NoData {
		return dataset.NoData
	}
	return float64(v)
}
