package view

import (
	"math"

	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/model"
	"gonum.org/v1/gonum/spatial/r3"
)

// Perspective draws the box as a height field seen through a pinhole
// camera.
type Perspective struct {
	width, height        float64
	centreLat, centreLon float64
	// Pixels per degree and per meter of elevation.
	pxLat, pxLon, pxZ float64
	vp                model.ViewPerspective
	eye               float64
}

// NewPerspective returns a view of the box that fills a width x height image
// before rotation. radius is the planet radius in meters.
func NewPerspective(b dataset.Bounds, width, height int, vp model.ViewPerspective, radius float64) *Perspective {
	z := zoom(vp)
	pxLat := float64(height) / (b.North - b.South) * z
	pxLon := float64(width) / (b.East - b.West) * z
	metersPerDegree := radius * math.Pi / 180
	return &Perspective{
		width:     float64(width),
		height:    float64(height),
		centreLat: (b.North + b.South) / 2,
		centreLon: (b.East + b.West) / 2,
		pxLat:     pxLat,
		pxLon:     pxLon,
		pxZ:       pxLat / metersPerDegree,
		vp:        vp,
		eye:       eyeDistance(vp, width, height),
	}
}

// local returns the point in pixels relative to the centre of the box.
func (p *Perspective) local(lat, lon, elevation float64) r3.Vec {
	return r3.Vec{
		X: (lon - p.centreLon) * p.pxLon,
		Y: (lat - p.centreLat) * p.pxLat,
		Z: elevationOrZero(elevation) * p.pxZ,
	}
}

func (p *Perspective) Project(lat, lon, elevation float64) (float64, float64, float64, bool) {
	v := r3.Add(p.vp.Transform(p.local(lat, lon, elevation)), p.vp.Shift())
	return project(v, p.eye, p.eye, p.width, p.height)
}

// project divides v by its distance from the eye. Points at depth
// eye-focal keep their size.
func project(v r3.Vec, eye, focal, width, height float64) (float64, float64, float64, bool) {
	d := eye - v.Z
	if !(d > 0) {
		return 0, 0, 0, false
	}
	f := focal / d
	return width/2 + v.X*f, height/2 + v.Y*f, v.Z, true
}
