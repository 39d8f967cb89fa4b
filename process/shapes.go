package process

import (
	"github.com/larschri/skyggekart/grid"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

type shapeArea struct {
	bound orb.Bound
	geom  orb.Geometry
	color colorful.Color
	alpha float64
}

func (a shapeArea) contains(pt orb.Point) bool {
	if !a.bound.Contains(pt) {
		return false
	}
	switch g := a.geom.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	case orb.Bound:
		return true
	}
	return false
}

// ShapeOverlay tints the points inside the polygons of the shape layers with
// the color of the layer. Layers are applied in order.
type ShapeOverlay struct {
	Base
	grid  *grid.FillControlled
	areas []shapeArea
}

func (p *ShapeOverlay) Prepare(env *Env) error {
	p.grid = env.Grid
	p.areas = nil
	for _, s := range env.Model.Shapes {
		c := colorful.Color{
			R: float64(s.Color[0]) / 255,
			G: float64(s.Color[1]) / 255,
			B: float64(s.Color[2]) / 255,
		}
		for _, f := range s.Features.Features {
			switch f.Geometry.(type) {
			case orb.Polygon, orb.MultiPolygon, orb.Bound:
				p.areas = append(p.areas, shapeArea{
					bound: f.Geometry.Bound(),
					geom:  f.Geometry,
					color: c,
					alpha: float64(s.Color[3]) / 255,
				})
			}
		}
	}
	return nil
}

func (p *ShapeOverlay) OnModelPoint(lat, lon float64) error {
	if len(p.areas) == 0 {
		return nil
	}
	var rgba [4]uint8
	p.grid.Rgba(lat, lon, &rgba)
	if rgba[3] == 0 {
		return nil
	}
	pt := orb.Point{lon, lat}
	changed := false
	c := colorful.Color{R: float64(rgba[0]) / 255, G: float64(rgba[1]) / 255, B: float64(rgba[2]) / 255}
	for _, a := range p.areas {
		if a.contains(pt) {
			c = c.BlendRgb(a.color, a.alpha)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	rgba[0], rgba[1], rgba[2] = c.Clamped().RGB255()
	p.grid.SetRgba(lat, lon, rgba)
	return p.grid.Err()
}
