package process

import (
	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/grid"
	"github.com/larschri/skyggekart/lighting"
	"github.com/larschri/skyggekart/raytrace"
)

// Shadow darkens the points the terrain hides from the sun. It is used in
// manifests without hillshading, which traces shadows itself.
type Shadow struct {
	Base
	grid      *grid.FillControlled
	sun       sunSource
	tracer    *raytrace.Tracer
	intensity float64
}

func (p *Shadow) Prepare(env *Env) error {
	p.grid = env.Grid
	p.sun = newSunSource(env.Model)
	p.tracer = newTracer(env)
	p.intensity = env.Model.Options.Lighting.ShadowIntensity
	return nil
}

func (p *Shadow) OnModelPoint(lat, lon float64) error {
	elevation := p.grid.Elevation(lat, lon, false)
	if elevation == dataset.NoData {
		return p.grid.Err()
	}
	sun := p.sun.at(lat, lon)
	block, err := p.tracer.Blocked(sun.Azimuth, sun.Elevation, lat, lon, elevation)
	if err != nil || block == 0 {
		return err
	}
	var rgba [4]uint8
	p.grid.Rgba(lat, lon, &rgba)
	lighting.AdjustBrightness(&rgba, -p.intensity*block)
	p.grid.SetRgba(lat, lon, rgba)
	return p.grid.Err()
}
