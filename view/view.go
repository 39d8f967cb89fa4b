// Package view projects model points into image coordinates.
//
// Image coordinates have x to the right and y down. The returned depth grows
// towards the viewer, so of two points on the same pixel the one with the
// larger depth is visible.
package view

import (
	"fmt"

	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/model"
)

// View projects a point to image coordinates and a depth. ok is false when
// the point is not visible.
type View interface {
	Project(lat, lon, elevation float64) (x, y, z float64, ok bool)
}

// MapProjectionError is returned when a map projection cannot be set up for
// the model box.
type MapProjectionError struct {
	Projection string
	Err        error
}

func (e *MapProjectionError) Error() string {
	return fmt.Sprintf("map projection %s: %v", e.Projection, e.Err)
}

func (e *MapProjectionError) Unwrap() error {
	return e.Err
}

// New returns the view selected by o.RenderProjection for a width x height
// image of the box b. radius is the planet radius in meters.
func New(o model.Options, b dataset.Bounds, width, height int, radius float64) (View, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	switch o.RenderProjection {
	case model.ViewFlat, "":
		return NewFlat(b, width, height, o.MapProjection)
	case model.View3D:
		return NewPerspective(b, width, height, o.ViewAngle, radius), nil
	case model.ViewGlobe:
		return NewGlobe(b, width, height, o.ViewAngle, radius), nil
	}
	return nil, fmt.Errorf("unknown render projection %q", o.RenderProjection)
}

func elevationOrZero(elevation float64) float64 {
	if elevation == dataset.NoData {
		return 0
	}
	return elevation
}

// eyeDistance returns the distance from the eye to the projection plane.
func eyeDistance(vp model.ViewPerspective, width, height int) float64 {
	if vp.EyeDistance > 0 {
		return vp.EyeDistance
	}
	return 2 * float64(max(width, height))
}

func zoom(vp model.ViewPerspective) float64 {
	if vp.Zoom <= 0 {
		return 1
	}
	return vp.Zoom
}
