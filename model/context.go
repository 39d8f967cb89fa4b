// Package model holds the configuration of one render: the raster data, the
// options snapshot and the grid dimensions derived from them.
package model

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/larschri/skyggekart/dataset"
)

var contextCounter atomic.Int64

// Context is the root of one render task.
type Context struct {
	id string

	Raster  *dataset.Context
	Shapes  []*Shapes
	Options Options
	Script  ScriptProxy
	Planets *PlanetRegistry

	north, south, east, west float64
	dims                     Dimensions
}

// NewContext returns a context with a fresh id and derived dimensions.
func NewContext(raster *dataset.Context, options Options, script ScriptProxy) (*Context, error) {
	if raster == nil {
		raster = dataset.NewContext()
	}
	c := &Context{
		id:      nextID(),
		Raster:  raster,
		Options: options,
		Script:  script,
		Planets: NewPlanetRegistry(),
	}
	if err := c.Update(); err != nil {
		return nil, err
	}
	return c, nil
}

func nextID() string {
	return fmt.Sprintf("ctx-%d", contextCounter.Add(1))
}

// ID returns the unique id of the context.
func (c *Context) ID() string { return c.id }

func (c *Context) North() float64         { return c.north }
func (c *Context) South() float64         { return c.south }
func (c *Context) East() float64          { return c.east }
func (c *Context) West() float64          { return c.west }
func (c *Context) Dimensions() Dimensions { return c.dims }

// Planet returns the planet selected in the options.
func (c *Context) Planet() Planet {
	return c.Planets.Get(c.Options.Planet)
}

// Update derives the model limits and dimensions from the options and the
// raster data.
func (c *Context) Update() error {
	north, south, east, west := 90.0, -90.0, 180.0, -180.0
	var latRes, lonRes float64
	if c.Raster.Len() > 0 {
		b := c.Raster.Bounds()
		north, south, east, west = b.North, b.South, b.East, b.West
		latRes, lonRes = c.Raster.LatitudeResolution(), c.Raster.LongitudeResolution()
	} else {
		log.Printf("%s: no raster data, using global limits", c.id)
	}

	o := &c.Options
	if o.LimitCoordinates {
		if o.NorthLimit != NotSet {
			north = o.NorthLimit
		}
		if o.SouthLimit != NotSet {
			south = o.SouthLimit
		}
		if o.EastLimit != NotSet {
			east = o.EastLimit
		}
		if o.WestLimit != NotSet {
			west = o.WestLimit
		}
	}
	c.north, c.south, c.east, c.west = north, south, east, west

	dims, err := ComputeDimensions(north, south, east, west, latRes, lonRes, o.Width, o.Height, o.RenderProjection, o.ViewAngle.Zoom, o.MaxTextureCells)
	if err != nil {
		return fmt.Errorf("%s: %w", c.id, err)
	}
	c.dims = dims
	return nil
}

// Copy returns an independent context with a new id. The raster buffers,
// shapes and options are copied; the script and the planet registry are
// shared.
func (c *Context) Copy() *Context {
	cp := *c
	cp.id = nextID()
	cp.Raster = c.Raster.Copy()
	cp.Shapes = make([]*Shapes, len(c.Shapes))
	for i, s := range c.Shapes {
		cp.Shapes[i] = s.Copy()
	}
	cp.Options.Shapes = append([]ShapeLayer(nil), c.Options.Shapes...)
	return &cp
}
