// Package render draws a filled model grid through a view.
package render

import (
	"math"

	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/grid"
	"github.com/larschri/skyggekart/view"
)

// ModelRenderer walks the model box at model resolution and draws every
// cell as two triangles.
type ModelRenderer struct {
	Grid   grid.Grid
	View   view.View
	Target Target

	Bounds              dataset.Bounds
	LatitudeResolution  float64
	LongitudeResolution float64
	Rows                int
	Columns             int
}

// elevation reads the grid with coordinates on the southern and eastern
// edges of the box moved onto the last row and column.
func (r *ModelRenderer) elevation(lat, lon float64) float64 {
	b := r.Grid.Bounds()
	lat = math.Max(lat, b.South+r.Grid.LatitudeResolution())
	lon = math.Min(lon, b.East-r.Grid.LongitudeResolution())
	return r.Grid.Elevation(lat, lon, true)
}

func (r *ModelRenderer) project(lat, lon float64) (vertex, bool) {
	x, y, z, ok := r.View.Project(lat, lon, r.elevation(lat, lon))
	return vertex{x, y, z}, ok
}

// RenderRow draws row from west to east.
func (r *ModelRenderer) RenderRow(row int) {
	lat := r.Bounds.North - float64(row)*r.LatitudeResolution
	south := r.Bounds.North - float64(row+1)*r.LatitudeResolution

	var rgba [4]uint8
	nw, nwOK := r.project(lat, r.Bounds.West)
	sw, swOK := r.project(south, r.Bounds.West)
	for c := 0; c < r.Columns; c++ {
		lon := r.Bounds.West + float64(c)*r.LongitudeResolution
		east := r.Bounds.West + float64(c+1)*r.LongitudeResolution
		ne, neOK := r.project(lat, east)
		se, seOK := r.project(south, east)

		r.Grid.Rgba(lat, lon, &rgba)
		if rgba[3] != 0 && nwOK && neOK && swOK && seOK {
			fillTriangle(r.Target, nw, ne, sw, rgba)
			fillTriangle(r.Target, ne, se, sw, rgba)
		}
		nw, nwOK = ne, neOK
		sw, swOK = se, seOK
	}
}

// Render draws every row from north to south.
func (r *ModelRenderer) Render() {
	for row := 0; row < r.Rows; row++ {
		r.RenderRow(row)
	}
}
