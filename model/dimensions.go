package model

import (
	"fmt"
	"math"
)

// Dimensions are the grid sizes and resolutions derived from the model
// bounding box. Resolutions are in degrees per row or column.
type Dimensions struct {
	DataLatitudeResolution  float64
	DataLongitudeResolution float64
	DataRows                int
	DataColumns             int

	TextureLatitudeResolution  float64
	TextureLongitudeResolution float64
	TextureRows                int
	TextureColumns             int

	ModelLatitudeResolution  float64
	ModelLongitudeResolution float64
	ModelRows                int
	ModelColumns             int

	// OutputWidth and OutputHeight are the image size in pixels.
	OutputWidth  int
	OutputHeight int
}

// globeMargin is the number of pixels left around a globe.
const globeMargin = 20

// GlobeRadius returns the radius in pixels of a globe drawn in a
// width x height image.
func GlobeRadius(width, height int, zoom float64) float64 {
	if zoom <= 0 {
		zoom = 1
	}
	return math.Max(1, float64(min(width, height)-globeMargin)/2) * zoom
}

// fit returns the number of whole steps of res covering extent, and the
// resolution adjusted so the steps cover it exactly.
func fit(extent, res float64) (int, float64) {
	n := int(math.Max(1, math.Round(extent/res)))
	return n, extent / float64(n)
}

// fitCoarse is like fit but never returns a resolution finer than res.
func fitCoarse(extent, res float64) (int, float64) {
	n := int(math.Max(1, math.Floor(extent/res+1e-9)))
	return n, extent / float64(n)
}

// ComputeDimensions derives data, texture and model grids for the box.
// Width and height default to the data grid size when not positive. The
// texture grid is coarsened until it holds at most maxTextureCells cells;
// zero means no limit.
func ComputeDimensions(north, south, east, west, dataLatRes, dataLonRes float64, width, height int, view string, zoom float64, maxTextureCells int) (Dimensions, error) {
	latExtent := north - south
	lonExtent := east - west
	if !(latExtent > 0) || !(lonExtent > 0) {
		return Dimensions{}, fmt.Errorf("invalid model box north=%v south=%v east=%v west=%v", north, south, east, west)
	}

	var d Dimensions
	if dataLatRes <= 0 || dataLonRes <= 0 {
		if width <= 0 || height <= 0 {
			width, height = int(math.Round(lonExtent)), int(math.Round(latExtent))
			width, height = max(width, 1), max(height, 1)
		}
		dataLatRes = latExtent / float64(height)
		dataLonRes = lonExtent / float64(width)
	}
	d.DataLatitudeResolution = dataLatRes
	d.DataLongitudeResolution = dataLonRes
	d.DataRows = int(math.Max(1, math.Round(latExtent/dataLatRes)))
	d.DataColumns = int(math.Max(1, math.Round(lonExtent/dataLonRes)))

	if width <= 0 {
		width = d.DataColumns
	}
	if height <= 0 {
		height = d.DataRows
	}
	d.OutputWidth = width
	d.OutputHeight = height

	if view == ViewGlobe {
		// One output pixel along the equator of the drawn globe.
		res := 360 / (2 * math.Pi * GlobeRadius(width, height, zoom))
		d.ModelRows, d.ModelLatitudeResolution = fit(latExtent, res)
		d.ModelColumns, d.ModelLongitudeResolution = fit(lonExtent, res)
	} else {
		d.ModelRows, d.ModelLatitudeResolution = fit(latExtent, latExtent/float64(height))
		d.ModelColumns, d.ModelLongitudeResolution = fit(lonExtent, lonExtent/float64(width))
	}

	texLatRes := math.Max(dataLatRes, d.ModelLatitudeResolution)
	texLonRes := math.Max(dataLonRes, d.ModelLongitudeResolution)
	d.TextureRows, d.TextureLatitudeResolution = fitCoarse(latExtent, texLatRes)
	d.TextureColumns, d.TextureLongitudeResolution = fitCoarse(lonExtent, texLonRes)

	if maxTextureCells > 0 {
		for d.TextureRows*d.TextureColumns > maxTextureCells {
			f := math.Sqrt(float64(d.TextureRows) * float64(d.TextureColumns) / float64(maxTextureCells))
			f = math.Max(f, 1.01)
			rows := max(1, int(float64(d.TextureRows)/f))
			cols := max(1, int(float64(d.TextureColumns)/f))
			d.TextureRows, d.TextureLatitudeResolution = rows, latExtent/float64(rows)
			d.TextureColumns, d.TextureLongitudeResolution = cols, lonExtent/float64(cols)
		}
	}

	return d, nil
}
