// Package process implements the grid processors that fill a model grid.
//
// A processor is driven through OnProcessBefore, then for every row
// OnLatitudeStart, OnModelPoint for every column and OnLatitudeEnd, then
// OnProcessAfter. The processors of a Stack run in order for each point, so
// every processor sees the cell as the previous one left it.
package process

import (
	"github.com/larschri/skyggekart/grid"
	"github.com/larschri/skyggekart/model"
	"github.com/larschri/skyggekart/render"
)

// GridProcessor is one step of the chain. An instance is used by a single
// goroutine.
type GridProcessor interface {
	// Prepare derives the per-run constants from env.
	Prepare(env *Env) error
	OnProcessBefore() error
	OnLatitudeStart(lat float64) error
	OnModelPoint(lat, lon float64) error
	OnLatitudeEnd(lat float64) error
	OnProcessAfter() error
	Dispose() error
}

// Env is what a processor is prepared with. Model and Grid belong to the
// goroutine running the processor.
type Env struct {
	Model     *model.Context
	Grid      *grid.FillControlled
	Colorings *render.ColoringRegistry
}

// Base implements every hook but OnModelPoint as a no-op.
type Base struct{}

func (Base) OnProcessBefore() error            { return nil }
func (Base) OnLatitudeStart(lat float64) error { return nil }
func (Base) OnLatitudeEnd(lat float64) error   { return nil }
func (Base) OnProcessAfter() error             { return nil }
func (Base) Dispose() error                    { return nil }
