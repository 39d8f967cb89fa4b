// Package lighting computes surface normals, sun positions and the shading
// applied to the colors of a model.
//
// Vectors are in a local east-north-up frame: X east, Y north, Z up.
package lighting

import (
	"math"

	"github.com/larschri/skyggekart/dataset"
	"github.com/tidwall/geodesic"
	"gonum.org/v1/gonum/spatial/r3"
)

// ElevationFunc returns the elevation at lat/lon or dataset.NoData.
type ElevationFunc func(lat, lon float64) float64

// NormalCalculator estimates surface normals by central differences over
// neighbouring cells. It is not safe for concurrent use.
type NormalCalculator struct {
	elevation ElevationFunc
	latRes    float64
	lonRes    float64
	ellipsoid *geodesic.Ellipsoid

	lastLat float64
	dx, dy  float64
}

// NewNormalCalculator returns a calculator sampling neighbours latRes and
// lonRes degrees away on a sphere of the given radius in meters. Zero radius
// selects the WGS84 ellipsoid.
func NewNormalCalculator(elevation ElevationFunc, latRes, lonRes, radius float64) *NormalCalculator {
	e := geodesic.WGS84
	if radius > 0 {
		e = geodesic.NewEllipsoid(radius, 0)
	}
	return &NormalCalculator{
		elevation: elevation,
		latRes:    latRes,
		lonRes:    lonRes,
		ellipsoid: e,
		lastLat:   math.NaN(),
	}
}

// spacing returns the ground distance in meters between the west and east
// neighbours and between the north and south neighbours of a point at lat.
func (n *NormalCalculator) spacing(lat float64) (float64, float64) {
	if lat == n.lastLat {
		return n.dx, n.dy
	}
	var dx, dy float64
	n.ellipsoid.Inverse(lat, -n.lonRes, lat, n.lonRes, &dx, nil, nil)
	north := math.Min(lat+n.latRes, 90)
	south := math.Max(lat-n.latRes, -90)
	n.ellipsoid.Inverse(north, 0, south, 0, &dy, nil, nil)

	n.lastLat, n.dx, n.dy = lat, dx, dy
	return dx, dy
}

// Normal returns the unit surface normal at lat/lon. Neighbours without
// data take the elevation of the centre. A centre without data gives the
// vertical.
func (n *NormalCalculator) Normal(lat, lon float64) r3.Vec {
	up := r3.Vec{Z: 1}
	centre := n.elevation(lat, lon)
	if centre == dataset.NoData {
		return up
	}

	sample := func(lat, lon float64) float64 {
		v := n.elevation(lat, lon)
		if v == dataset.NoData {
			return centre
		}
		return v
	}
	north := sample(lat+n.latRes, lon)
	south := sample(lat-n.latRes, lon)
	east := sample(lat, lon+n.lonRes)
	west := sample(lat, lon-n.lonRes)

	dx, dy := n.spacing(lat)
	var dzdx, dzdy float64
	if dx > 0 {
		dzdx = (east - west) / dx
	}
	if dy > 0 {
		dzdy = (north - south) / dy
	}

	v := r3.Vec{X: -dzdx, Y: -dzdy, Z: 1}
	return r3.Unit(v)
}
