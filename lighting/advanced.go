package lighting

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Calculator is the emissive, ambient, diffuse and specular lighting model
// with optional distance attenuation.
type Calculator struct {
	Emissive        float64
	Ambient         float64
	Diffuse         float64
	Specular        float64
	ShadowIntensity float64

	UseDistanceAttenuation bool
	// AttenuationRadius is the distance in meters at which the light falls
	// to half strength.
	AttenuationRadius float64

	// Eye is the unit vector from the surface towards the viewer.
	Eye r3.Vec
}

// attenuation returns the light strength left after distance meters.
func (c Calculator) attenuation(distance float64) float64 {
	if !c.UseDistanceAttenuation || c.AttenuationRadius <= 0 {
		return 1
	}
	return 1 / (1 + distance/c.AttenuationRadius)
}

// Apply lights the color in place. block is the fraction of the sun hidden
// by terrain and distance the distance of the point from the light centre.
func (c Calculator) Apply(rgba *[4]uint8, normal, sun r3.Vec, spotExponent int, block, distance float64) {
	dot := clamp(r3.Dot(normal, sun), -1, 1)
	shade := clamp(1-c.ShadowIntensity*block, 0, 1)
	att := c.attenuation(distance)

	diffuse := c.Diffuse * math.Max(dot, 0) * shade * att

	specular := 0.0
	if dot > 0 && c.Specular > 0 {
		// Reflection of the sun about the normal.
		reflect := r3.Sub(r3.Scale(2*dot, normal), sun)
		if n := r3.Norm(reflect); n > 0 {
			rdot := clamp(r3.Dot(r3.Scale(1/n, reflect), c.Eye), 0, 1)
			exp := math.Max(1, float64(spotExponent))
			specular = c.Specular * math.Pow(rdot, exp) * shade * att
		}
	}

	k := c.Emissive + c.Ambient + diffuse
	for i := 0; i < 3; i++ {
		v := float64(rgba[i])*k + 255*specular
		rgba[i] = uint8(clamp(math.Round(v), 0, 255))
	}
}
