// Package raytrace decides how much of the sun is hidden from a point by
// marching a ray towards the sun through the elevation field.
package raytrace

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/larschri/skyggekart/dataset"
)

// sunAngularRadius is the apparent radius of the sun. It sets the width of
// the penumbra.
const sunAngularRadius s1.Angle = 0.2666 * s1.Degree

// ElevationFunc returns the elevation at lat/lon or dataset.NoData.
type ElevationFunc func(lat, lon float64) (float64, error)

// Error is returned when a ray cannot be traced.
type Error struct {
	Lat float64
	Lon float64
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ray trace from %v,%v: %v", e.Lat, e.Lon, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Tracer marches rays over the elevation field of a model.
type Tracer struct {
	// LatitudeResolution sets the step length of the march.
	LatitudeResolution float64
	// Radius of the planet in meters.
	Radius float64
	Bounds dataset.Bounds
	// MaxElevation is the highest elevation in the field. A ray above it
	// cannot be blocked.
	MaxElevation float64
	Elevation    ElevationFunc
}

// Blocked returns the fraction of the sun disc hidden by terrain, seen from
// lat/lon at the given elevation. Points without data are never shadowed.
func (t *Tracer) Blocked(azimuth, elevation s1.Angle, lat, lon, height float64) (float64, error) {
	if height == dataset.NoData {
		return 0, nil
	}
	if math.IsNaN(height) || math.IsInf(height, 0) {
		return 0, &Error{Lat: lat, Lon: lon, Err: fmt.Errorf("invalid elevation %v", height)}
	}
	if elevation <= -sunAngularRadius {
		return 1, nil
	}

	r := t.Radius
	step := t.LatitudeResolution * math.Pi / 180 * r
	if !(step > 0) {
		return 0, &Error{Lat: lat, Lon: lon, Err: errors.New("step length must be positive")}
	}

	sin, cos := math.Sincos(azimuth.Radians())
	cosLat := math.Max(math.Cos(lat*math.Pi/180), 1e-9)
	tanPenumbra := math.Tan(sunAngularRadius.Radians())

	block := 0.0
	for dist := step; ; dist += step {
		earthCurvatureAngle := math.Atan2(dist/2, r)
		rayAngle := elevation.Radians() + earthCurvatureAngle
		if rayAngle >= math.Pi/2 {
			break
		}
		rayHeight := height + dist*math.Tan(rayAngle)
		if rayHeight-dist*tanPenumbra > t.MaxElevation {
			break
		}

		lat2 := lat + dist*cos/r*180/math.Pi
		lon2 := lon + dist*sin/(r*cosLat)*180/math.Pi
		if !t.Bounds.Contains(lat2, lon2) {
			break
		}

		terrain, err := t.Elevation(lat2, lon2)
		if err != nil {
			return 0, &Error{Lat: lat, Lon: lon, Err: err}
		}
		if terrain == dataset.NoData {
			continue
		}

		penumbra := dist * tanPenumbra
		b := 0.5 + (terrain-rayHeight)/(2*penumbra)
		block = math.Max(block, math.Max(0, math.Min(1, b)))
		if block >= 1 {
			break
		}
	}
	return block, nil
}
