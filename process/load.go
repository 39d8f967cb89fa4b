package process

import "github.com/larschri/skyggekart/grid"

// Load stores the elevation of every point in the grid.
type Load struct {
	Base
	grid *grid.FillControlled
}

func (p *Load) Prepare(env *Env) error {
	p.grid = env.Grid
	return nil
}

func (p *Load) OnModelPoint(lat, lon float64) error {
	p.grid.SetElevation(lat, lon, p.grid.Elevation(lat, lon, false))
	return p.grid.Err()
}
