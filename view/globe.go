package view

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/model"
	"gonum.org/v1/gonum/spatial/r3"
)

// Globe draws the planet as a sphere facing the centre of the box.
type Globe struct {
	width, height float64
	radius        float64 // pixels
	planetRadius  float64 // meters
	east, north   r3.Vec
	up            r3.Vec
	vp            model.ViewPerspective
	eye           float64
}

func toVec(p s2.Point) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// NewGlobe returns a globe view. radius is the planet radius in meters.
func NewGlobe(b dataset.Bounds, width, height int, vp model.ViewPerspective, radius float64) *Globe {
	lat := (b.North + b.South) / 2 * math.Pi / 180
	lon := (b.East + b.West) / 2 * math.Pi / 180
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)
	r := model.GlobeRadius(width, height, vp.Zoom)
	return &Globe{
		width:        float64(width),
		height:       float64(height),
		radius:       r,
		planetRadius: radius,
		east:         r3.Vec{X: -sinLon, Y: cosLon},
		north:        r3.Vec{X: -sinLat * cosLon, Y: -sinLat * sinLon, Z: cosLat},
		up:           toVec(s2.PointFromLatLng(s2.LatLngFromDegrees((b.North+b.South)/2, (b.East+b.West)/2))),
		vp:           vp,
		eye:          r + eyeDistance(vp, width, height),
	}
}

func (g *Globe) Project(lat, lon, elevation float64) (float64, float64, float64, bool) {
	p := toVec(s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon)))
	r := g.radius
	if g.planetRadius > 0 {
		r *= 1 + elevationOrZero(elevation)/g.planetRadius
	}
	local := r3.Scale(r, r3.Vec{X: r3.Dot(p, g.east), Y: r3.Dot(p, g.north), Z: r3.Dot(p, g.up)})
	v := g.vp.Transform(local)
	if v.Z < 0 {
		return 0, 0, 0, false
	}
	v = r3.Add(v, g.vp.Shift())
	return project(v, g.eye, g.eye-g.radius, g.width, g.height)
}
