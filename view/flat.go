package view

import (
	"errors"
	"fmt"
	"math"

	"github.com/larschri/skyggekart/dataset"
)

// Map projection ids.
const (
	Equirectangular = "equirectangular"
	Mercator        = "mercator"
	Sinusoidal      = "sinusoidal"
)

// MapProjection maps latitude and longitude to plane coordinates with y
// pointing north.
type MapProjection interface {
	Forward(lat, lon float64) (x, y float64)
}

type equirectangular struct{}

func (equirectangular) Forward(lat, lon float64) (float64, float64) {
	return lon, lat
}

// mercatorLimit is the latitude where the square web mercator map ends.
const mercatorLimit = 85.05112878

type mercator struct{}

func (mercator) Forward(lat, lon float64) (float64, float64) {
	lat = math.Max(-mercatorLimit, math.Min(mercatorLimit, lat))
	phi := lat * math.Pi / 180
	return lon, math.Log(math.Tan(math.Pi/4+phi/2)) * 180 / math.Pi
}

type sinusoidal struct {
	centralLon float64
}

func (s sinusoidal) Forward(lat, lon float64) (float64, float64) {
	return (lon - s.centralLon) * math.Cos(lat*math.Pi/180), lat
}

// NewMapProjection returns the projection with the given id.
func NewMapProjection(id string, centralLon float64) (MapProjection, error) {
	switch id {
	case Equirectangular, "":
		return equirectangular{}, nil
	case Mercator:
		return mercator{}, nil
	case Sinusoidal:
		return sinusoidal{centralLon: centralLon}, nil
	}
	return nil, &MapProjectionError{Projection: id, Err: errors.New("unknown projection")}
}

// Flat draws the box as a map.
type Flat struct {
	proj       MapProjection
	minX, maxX float64
	minY, maxY float64
	width      float64
	height     float64
}

// NewFlat fits the projected box into a width x height image. The extent of
// the projected box is found from its corners and edge midpoints.
func NewFlat(b dataset.Bounds, width, height int, projection string) (*Flat, error) {
	midLat, midLon := (b.North+b.South)/2, (b.East+b.West)/2
	proj, err := NewMapProjection(projection, midLon)
	if err != nil {
		return nil, err
	}

	f := &Flat{
		proj:   proj,
		minX:   math.Inf(1),
		maxX:   math.Inf(-1),
		minY:   math.Inf(1),
		maxY:   math.Inf(-1),
		width:  float64(width),
		height: float64(height),
	}
	probes := [8][2]float64{
		{b.North, b.West}, {b.North, midLon}, {b.North, b.East},
		{midLat, b.West}, {midLat, b.East},
		{b.South, b.West}, {b.South, midLon}, {b.South, b.East},
	}
	for _, p := range probes {
		x, y := proj.Forward(p[0], p[1])
		f.minX, f.maxX = math.Min(f.minX, x), math.Max(f.maxX, x)
		f.minY, f.maxY = math.Min(f.minY, y), math.Max(f.maxY, y)
	}

	if !(f.maxX-f.minX > 0) || !(f.maxY-f.minY > 0) || math.IsInf(f.maxX-f.minX, 0) || math.IsInf(f.maxY-f.minY, 0) {
		return nil, &MapProjectionError{
			Projection: projection,
			Err:        fmt.Errorf("degenerate extent x [%v, %v] y [%v, %v]", f.minX, f.maxX, f.minY, f.maxY),
		}
	}
	return f, nil
}

func (f *Flat) Project(lat, lon, elevation float64) (float64, float64, float64, bool) {
	px, py := f.proj.Forward(lat, lon)
	x := (px - f.minX) / (f.maxX - f.minX) * f.width
	y := (f.maxY - py) / (f.maxY - f.minY) * f.height
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0, 0, false
	}
	return x, y, elevationOrZero(elevation), true
}
