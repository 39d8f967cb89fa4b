// Package dataset implements access to elevation data stored in raster files.
//
// Raster files are read through a DatasetReader, optionally cached on disk and
// mapped into memory using mmap for fast access. A Context combines several
// rasters into one addressable elevation surface.
package dataset

import (
	"fmt"
	"math"
)

// NoData is returned for every elevation query that has no data behind it.
const NoData = -99999.0

// indexEpsilon absorbs floating point noise when a coordinate is quantized
// to a row or column. It is a fraction of one cell.
const indexEpsilon = 1e-6

// Bounds is a latitude/longitude box in degrees.
type Bounds struct {
	North float64
	South float64
	East  float64
	West  float64
}

// Contains reports whether lat/lon is inside the box, edges included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat <= b.North && lat >= b.South && lon >= b.West && lon <= b.East
}

// Union returns the smallest box covering b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		North: math.Max(b.North, o.North),
		South: math.Min(b.South, o.South),
		East:  math.Max(b.East, o.East),
		West:  math.Min(b.West, o.West),
	}
}

// RasterData is one elevation raster. Implementations must be safe for
// concurrent reads.
type RasterData interface {
	Bounds() Bounds
	LatitudeResolution() float64
	LongitudeResolution() float64

	// Sample returns the value of the grid point at or north-west of lat/lon,
	// or NoData.
	Sample(lat, lon float64) float64

	// MinMax returns the range of valid values. ok is false when the raster
	// holds no valid value.
	MinMax() (min, max float64, ok bool)
}

// ElevationMap is an in-memory grid registered raster. Value (r, c) belongs to
// latitude north-r*latRes and longitude west+c*lonRes.
type ElevationMap struct {
	bounds Bounds
	latRes float64
	lonRes float64
	rows   int
	cols   int
	values []float32
	noData float32
}

// NewElevationMap copies buffer into a new ElevationMap. All rows of buffer
// must have the same length.
func NewElevationMap(buffer [][]float32, north, west, latRes, lonRes float64, noData float32) (*ElevationMap, error) {
	if len(buffer) == 0 || len(buffer[0]) == 0 {
		return nil, &DataSourceError{Op: "create elevation map", Err: fmt.Errorf("empty buffer")}
	}
	if latRes <= 0 || lonRes <= 0 {
		return nil, &DataSourceError{Op: "create elevation map", Err: fmt.Errorf("invalid resolution %v x %v", latRes, lonRes)}
	}

	rows, cols := len(buffer), len(buffer[0])
	values := make([]float32, 0, rows*cols)
	for i, row := range buffer {
		if len(row) != cols {
			return nil, &DataSourceError{Op: "create elevation map", Err: fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)}
		}
		values = append(values, row...)
	}

	return newElevationMap(values, rows, cols, north, west, latRes, lonRes, noData), nil
}

func newElevationMap(values []float32, rows, cols int, north, west, latRes, lonRes float64, noData float32) *ElevationMap {
	return &ElevationMap{
		bounds: Bounds{
			North: north,
			South: north - float64(rows)*latRes,
			East:  west + float64(cols)*lonRes,
			West:  west,
		},
		latRes: latRes,
		lonRes: lonRes,
		rows:   rows,
		cols:   cols,
		values: values,
		noData: noData,
	}
}

func (em *ElevationMap) Bounds() Bounds               { return em.bounds }
func (em *ElevationMap) LatitudeResolution() float64  { return em.latRes }
func (em *ElevationMap) LongitudeResolution() float64 { return em.lonRes }

// Rows returns the number of grid rows.
func (em *ElevationMap) Rows() int { return em.rows }

// Columns returns the number of grid columns.
func (em *ElevationMap) Columns() int { return em.cols }

func (em *ElevationMap) lookup(row, col int) float64 {
	if row < 0 || row >= em.rows || col < 0 || col >= em.cols || em.values == nil {
		return NoData
	}
	v := em.values[row*em.cols+col]
	if v == em.noData || math.IsNaN(float64(v)) {
		return NoData
	}
	return float64(v)
}

func (em *ElevationMap) Sample(lat, lon float64) float64 {
	row := int(math.Floor((em.bounds.North-lat)/em.latRes + indexEpsilon))
	col := int(math.Floor((lon-em.bounds.West)/em.lonRes + indexEpsilon))
	return em.lookup(row, col)
}

func (em *ElevationMap) MinMax() (float64, float64, bool) {
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	found := false
	for _, v := range em.values {
		if v == em.noData || math.IsNaN(float64(v)) {
			continue
		}
		found = true
		lo = math.Min(lo, float64(v))
		hi = math.Max(hi, float64(v))
	}
	return lo, hi, found
}
