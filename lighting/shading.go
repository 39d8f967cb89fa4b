package lighting

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r3"
)

// Shading turns the angle between a normal and the sun into a brightness
// factor in [-1, 1].
type Shading struct {
	LightIntensity  float64
	DarkIntensity   float64
	ShadowIntensity float64
	SpotExponent    int

	// Solar zenith angles in degrees. Between them the light fades out,
	// beyond DarkZenith it is gone.
	LightZenith float64
	DarkZenith  float64
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// twilight dims dot by how far the sun has set.
func (s Shading) twilight(dot, zenith float64) float64 {
	lower, upper := s.LightZenith, s.DarkZenith
	switch {
	case zenith > upper:
		dot -= 2
	case zenith > lower && upper > lower:
		dot -= 2 * (zenith - lower) / (upper - lower)
	}
	return math.Max(dot, -1)
}

// Dot returns the brightness factor for a surface with the given normal. block
// is the fraction of the sun hidden by terrain.
func (s Shading) Dot(normal, sun r3.Vec, zenith, block float64) float64 {
	dot := clamp(r3.Dot(normal, sun), -1, 1)
	dot = s.twilight(dot, zenith)

	if dot > 0 {
		dot *= s.LightIntensity
	} else if dot < 0 {
		dot *= s.DarkIntensity
	}

	if block > 0 {
		dot = math.Max(dot-2*s.ShadowIntensity*block, -1)
	}

	if s.SpotExponent != 1 && dot != 0 {
		dot = math.Copysign(math.Pow(math.Abs(dot), float64(s.SpotExponent)), dot)
	}
	if math.IsNaN(dot) {
		return 0
	}
	return clamp(dot, -1, 1)
}

var (
	white = colorful.Color{R: 1, G: 1, B: 1}
	black = colorful.Color{}
)

// AdjustBrightness moves the color towards white for positive factors and
// towards black for negative ones. Alpha is kept.
func AdjustBrightness(rgba *[4]uint8, factor float64) {
	factor = clamp(factor, -1, 1)
	if factor == 0 {
		return
	}
	c := colorful.Color{
		R: float64(rgba[0]) / 255,
		G: float64(rgba[1]) / 255,
		B: float64(rgba[2]) / 255,
	}
	if factor > 0 {
		c = c.BlendRgb(white, factor)
	} else {
		c = c.BlendRgb(black, -factor)
	}
	rgba[0], rgba[1], rgba[2] = c.Clamped().RGB255()
}
