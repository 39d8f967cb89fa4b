package process

import (
	"fmt"

	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/grid"
	"github.com/larschri/skyggekart/model"
	"github.com/larschri/skyggekart/render"
)

// Color sets the color of every point with data from the configured
// coloring. Points without data stay transparent.
type Color struct {
	Base
	grid     *grid.FillControlled
	coloring render.Coloring
	script   model.PointScript
	minimum  float64
	maximum  float64
}

func (p *Color) Prepare(env *Env) error {
	if env.Colorings == nil {
		return fmt.Errorf("no coloring registry")
	}
	id := env.Model.Options.Coloring
	c, ok := env.Colorings.Lookup(id)
	if !ok {
		return fmt.Errorf("unknown coloring %q", id)
	}
	raster := env.Grid.Raster()
	p.grid = env.Grid
	p.coloring = c
	p.minimum = raster.ElevationScaler().Scale(raster.DataMinimumValue())
	p.maximum = raster.DataMaximumValue()
	if env.Model.Options.UseScripting {
		p.script, _ = env.Model.Script.(model.PointScript)
	}
	return nil
}

func (p *Color) OnModelPoint(lat, lon float64) error {
	elevation := p.grid.Elevation(lat, lon, false)
	if elevation == dataset.NoData {
		return p.grid.Err()
	}
	rgba := p.coloring.Color(elevation, p.minimum, p.maximum)
	if p.script != nil {
		if err := p.script.OnGetPointColor(lat, lon, elevation, &rgba); err != nil {
			return err
		}
	}
	p.grid.SetRgba(lat, lon, rgba)
	return p.grid.Err()
}
