package process

import (
	"time"

	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/grid"
	"github.com/larschri/skyggekart/lighting"
	"github.com/larschri/skyggekart/model"
	"github.com/larschri/skyggekart/raytrace"
	"github.com/tidwall/geodesic"
	"gonum.org/v1/gonum/spatial/r3"
)

// sunSource gives the sun position for a point.
type sunSource struct {
	sun    lighting.SunPosition
	recalc bool
	time   time.Time
}

func newSunSource(m *model.Context) sunSource {
	l := m.Options.Lighting
	if l.SourceType != model.LightByDateAndTime {
		return sunSource{sun: lighting.SunByAngles(l.Azimuth, l.Elevation)}
	}
	lat, lon := centre(m)
	return sunSource{
		sun:    lighting.SunAt(l.SunlightTime, lat, lon),
		recalc: l.RecalcLightForEachPoint,
		time:   l.SunlightTime,
	}
}

func (s sunSource) at(lat, lon float64) lighting.SunPosition {
	if s.recalc {
		return lighting.SunAt(s.time, lat, lon)
	}
	return s.sun
}

func centre(m *model.Context) (float64, float64) {
	return (m.North() + m.South()) / 2, (m.East() + m.West()) / 2
}

func newTracer(env *Env) *raytrace.Tracer {
	g := env.Grid
	return &raytrace.Tracer{
		LatitudeResolution: g.LatitudeResolution(),
		Radius:             env.Model.Planet().MeanRadiusMeters(),
		Bounds:             g.Bounds(),
		MaxElevation:       g.Raster().DataMaximumValue(),
		Elevation: func(lat, lon float64) (float64, error) {
			return g.Elevation(lat, lon, true), g.Err()
		},
	}
}

// eye returns the direction towards the viewer in the local frame.
func eye(o model.Options) r3.Vec {
	up := r3.Vec{Z: 1}
	if o.RenderProjection == model.ViewFlat {
		return up
	}
	return o.ViewAngle.Eye()
}

// Hillshade lights the color of every point by the angle between its
// surface normal and the sun.
type Hillshade struct {
	Base
	grid    *grid.FillControlled
	enabled bool
	sun     sunSource
	normals *lighting.NormalCalculator
	tracer  *raytrace.Tracer

	shading     lighting.Shading
	advanced    bool
	calculator  lighting.Calculator
	spot        int
	centreLat   float64
	centreLon   float64
	attenuation bool
}

func (p *Hillshade) Prepare(env *Env) error {
	l := env.Model.Options.Lighting
	p.enabled = l.Enabled
	if !p.enabled {
		return nil
	}
	g := env.Grid
	p.grid = g
	p.sun = newSunSource(env.Model)

	radius := 0.0
	if planet := env.Model.Planet(); planet.ID != model.Earth.ID {
		radius = planet.MeanRadiusMeters()
	}
	p.normals = lighting.NewNormalCalculator(func(lat, lon float64) float64 {
		return g.Elevation(lat, lon, false)
	}, g.LatitudeResolution(), g.LongitudeResolution(), radius)

	if l.RayTraceShadows {
		p.tracer = newTracer(env)
	}

	p.spot = l.SpotExponent
	p.shading = lighting.Shading{
		LightIntensity:  l.LightIntensity,
		DarkIntensity:   l.DarkIntensity,
		ShadowIntensity: l.ShadowIntensity,
		SpotExponent:    l.SpotExponent,
		LightZenith:     l.LightZenith,
		DarkZenith:      l.DarkZenith,
	}
	p.advanced = l.AdvancedLightingControl
	p.calculator = lighting.Calculator{
		Emissive:               l.Emissive,
		Ambient:                l.Ambient,
		Diffuse:                l.Diffuse,
		Specular:               l.Specular,
		ShadowIntensity:        l.ShadowIntensity,
		UseDistanceAttenuation: l.UseDistanceAttenuation,
		AttenuationRadius:      l.AttenuationRadius,
		Eye:                    eye(env.Model.Options),
	}
	p.attenuation = l.UseDistanceAttenuation
	p.centreLat, p.centreLon = centre(env.Model)
	return nil
}

func (p *Hillshade) OnModelPoint(lat, lon float64) error {
	if !p.enabled {
		return nil
	}
	elevation := p.grid.Elevation(lat, lon, false)
	if elevation == dataset.NoData {
		return p.grid.Err()
	}

	sun := p.sun.at(lat, lon)
	var rgba [4]uint8
	p.grid.Rgba(lat, lon, &rgba)
	normal := p.normals.Normal(lat, lon)

	block := 0.0
	if p.tracer != nil {
		var err error
		block, err = p.tracer.Blocked(sun.Azimuth, sun.Elevation, lat, lon, elevation)
		if err != nil {
			return err
		}
	}

	if p.advanced {
		distance := 0.0
		if p.attenuation {
			geodesic.WGS84.Inverse(p.centreLat, p.centreLon, lat, lon, &distance, nil, nil)
		}
		p.calculator.Apply(&rgba, normal, sun.Vector(), p.spot, block, distance)
	} else {
		dot := p.shading.Dot(normal, sun.Vector(), sun.Zenith().Degrees(), block)
		lighting.AdjustBrightness(&rgba, dot)
	}

	p.grid.SetRgba(lat, lon, rgba)
	return p.grid.Err()
}
