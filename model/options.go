package model

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// NotSet marks a limit that falls back to the extent of the raster data.
const NotSet = math.MaxFloat64

// View identifiers accepted in Options.RenderProjection.
const (
	ViewFlat  = "flat"
	View3D    = "3d"
	ViewGlobe = "globe"
)

// Light source types accepted in Lighting.SourceType.
const (
	LightByAzimuthAndElevation = "azimuth-elevation"
	LightByDateAndTime         = "date-time"
)

// Options is the configuration snapshot of one render. It is captured by
// value when a model is prepared and never changes during the run.
type Options struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	LimitCoordinates bool    `yaml:"limitCoordinates"`
	NorthLimit       float64 `yaml:"northLimit"`
	SouthLimit       float64 `yaml:"southLimit"`
	EastLimit        float64 `yaml:"eastLimit"`
	WestLimit        float64 `yaml:"westLimit"`

	ElevationScale    string  `yaml:"elevationScale"`
	ElevationMultiple float64 `yaml:"elevationMultiple"`
	RenderProjection  string  `yaml:"renderProjection"`
	MapProjection     string  `yaml:"mapProjection"`
	Planet            string  `yaml:"planet"`
	Coloring          string  `yaml:"coloring"`

	NumberOfThreads  int    `yaml:"numberOfThreads"`
	PrecacheStrategy string `yaml:"precacheStrategy"`
	TileSize         int    `yaml:"tileSize"`
	MaxTextureCells  int    `yaml:"maxTextureCells"`

	UseScripting           bool `yaml:"useScripting"`
	AverageOverlappedData  bool `yaml:"averageOverlappedData"`
	InterpolateData        bool `yaml:"interpolateData"`
	UseDiskCachedModelGrid bool `yaml:"useDiskCachedModelGrid"`
	DisposeGridOnComplete  bool `yaml:"disposeGridOnComplete"`
	EstimateElevationRange bool `yaml:"estimateElevationRange"`

	BackgroundColor [4]uint8 `yaml:"backgroundColor,flow"`
	Antialias       int      `yaml:"antialias"`

	ViewAngle ViewPerspective `yaml:"viewAngle"`
	Lighting  Lighting        `yaml:"lighting"`
	Shapes    []ShapeLayer    `yaml:"shapes"`
}

// Lighting holds the hillshading options.
type Lighting struct {
	Enabled bool `yaml:"enabled"`

	SourceType              string    `yaml:"sourceType"`
	Azimuth                 float64   `yaml:"azimuth"`
	Elevation               float64   `yaml:"elevation"`
	SunlightTime            time.Time `yaml:"sunlightTime"`
	RecalcLightForEachPoint bool      `yaml:"recalcLightForEachPoint"`

	LightIntensity float64 `yaml:"lightIntensity"`
	DarkIntensity  float64 `yaml:"darkIntensity"`
	SpotExponent   int     `yaml:"spotExponent"`

	// Solar zenith angles in degrees between which the light fades out.
	LightZenith float64 `yaml:"lightZenith"`
	DarkZenith  float64 `yaml:"darkZenith"`

	RayTraceShadows bool    `yaml:"rayTraceShadows"`
	ShadowIntensity float64 `yaml:"shadowIntensity"`

	AdvancedLightingControl bool    `yaml:"advancedLightingControl"`
	Emissive                float64 `yaml:"emissive"`
	Ambient                 float64 `yaml:"ambient"`
	Diffuse                 float64 `yaml:"diffuse"`
	Specular                float64 `yaml:"specular"`
	UseDistanceAttenuation  bool    `yaml:"useDistanceAttenuation"`
	AttenuationRadius       float64 `yaml:"attenuationRadius"`
}

// DefaultOptions returns the options used when nothing else is configured.
func DefaultOptions() Options {
	return Options{
		NorthLimit:        NotSet,
		SouthLimit:        NotSet,
		EastLimit:         NotSet,
		WestLimit:         NotSet,
		ElevationScale:    "none",
		ElevationMultiple: 1,
		RenderProjection:  ViewFlat,
		MapProjection:     "equirectangular",
		Planet:            "earth",
		Coloring:          "hypsometric-natural",
		NumberOfThreads:   runtime.NumCPU(),
		PrecacheStrategy:  "tiled",
		TileSize:          256,
		MaxTextureCells:   4096 * 4096,
		InterpolateData:   true,
		Antialias:         1,
		ViewAngle: ViewPerspective{
			RotateX: 30,
			Zoom:    1,
		},
		Lighting: DefaultLighting(),
	}
}

// DefaultLighting returns a north-west light 45 degrees above the horizon.
func DefaultLighting() Lighting {
	return Lighting{
		Enabled:           true,
		SourceType:        LightByAzimuthAndElevation,
		Azimuth:           315,
		Elevation:         45,
		SunlightTime:      time.Date(2020, time.June, 21, 12, 0, 0, 0, time.UTC),
		LightIntensity:    0.75,
		DarkIntensity:     1.0,
		SpotExponent:      1,
		LightZenith:       87.5,
		DarkZenith:        105,
		ShadowIntensity:   0.5,
		Emissive:          0,
		Ambient:           0.3,
		Diffuse:           1.0,
		Specular:          0.25,
		AttenuationRadius: 500000,
	}
}

// ViewPerspective is the 3D view transform. Angles are in degrees.
type ViewPerspective struct {
	RotateX float64 `yaml:"rotateX"`
	RotateY float64 `yaml:"rotateY"`
	RotateZ float64 `yaml:"rotateZ"`
	ShiftX  float64 `yaml:"shiftX"`
	ShiftY  float64 `yaml:"shiftY"`
	ShiftZ  float64 `yaml:"shiftZ"`
	Zoom    float64 `yaml:"zoom"`

	// EyeDistance is the distance from the eye to the projection plane in
	// pixels. Zero selects twice the larger output dimension.
	EyeDistance float64 `yaml:"eyeDistance"`
}

var (
	axisX = r3.Vec{X: 1}
	axisY = r3.Vec{Y: 1}
	axisZ = r3.Vec{Z: 1}
)

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// Rotate applies the view rotation to v: Y first, then X, then Z. Views and
// the lighting eye vector both go through this method.
func (vp ViewPerspective) Rotate(v r3.Vec) r3.Vec {
	if vp.RotateY != 0 {
		v = r3.NewRotation(rad(vp.RotateY), axisY).Rotate(v)
	}
	if vp.RotateX != 0 {
		v = r3.NewRotation(rad(vp.RotateX), axisX).Rotate(v)
	}
	if vp.RotateZ != 0 {
		v = r3.NewRotation(rad(vp.RotateZ), axisZ).Rotate(v)
	}
	return v
}

// Unrotate is the inverse of Rotate.
func (vp ViewPerspective) Unrotate(v r3.Vec) r3.Vec {
	if vp.RotateZ != 0 {
		v = r3.NewRotation(-rad(vp.RotateZ), axisZ).Rotate(v)
	}
	if vp.RotateX != 0 {
		v = r3.NewRotation(-rad(vp.RotateX), axisX).Rotate(v)
	}
	if vp.RotateY != 0 {
		v = r3.NewRotation(-rad(vp.RotateY), axisY).Rotate(v)
	}
	return v
}

// Transform maps a local east-north-up vector into view space, where X
// points right, Y down the screen and Z towards the viewer.
func (vp ViewPerspective) Transform(v r3.Vec) r3.Vec {
	return vp.Rotate(r3.Vec{X: v.X, Y: -v.Y, Z: v.Z})
}

// Eye returns the direction towards the viewer in the local east-north-up
// frame.
func (vp ViewPerspective) Eye() r3.Vec {
	e := vp.Unrotate(r3.Vec{Z: 1})
	e.Y = -e.Y
	return e
}

// Shift returns the view translation.
func (vp ViewPerspective) Shift() r3.Vec {
	return r3.Vec{X: vp.ShiftX, Y: vp.ShiftY, Z: vp.ShiftZ}
}

func (vp ViewPerspective) String() string {
	return fmt.Sprintf("%v;%v;%v;%v;%v;%v;%v", vp.RotateX, vp.RotateY, vp.RotateZ, vp.ShiftX, vp.ShiftY, vp.ShiftZ, vp.Zoom)
}

// ParseViewPerspective parses the format written by String.
func ParseViewPerspective(s string) (ViewPerspective, error) {
	parts := strings.Split(s, ";")
	if len(parts) != 7 {
		return ViewPerspective{}, fmt.Errorf("view perspective %q: expected 7 values, got %d", s, len(parts))
	}
	var f [7]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return ViewPerspective{}, fmt.Errorf("view perspective %q: %w", s, err)
		}
		f[i] = v
	}
	return ViewPerspective{
		RotateX: f[0], RotateY: f[1], RotateZ: f[2],
		ShiftX: f[3], ShiftY: f[4], ShiftZ: f[5],
		Zoom: f[6],
	}, nil
}
