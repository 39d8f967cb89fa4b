package model

import (
	"fmt"
	"sort"
	"strconv"
)

const (
	globalPrefix = "us.wthr.jdem846.model.GlobalOptionModel."
	renderPrefix = "us.wthr.jdem846.model.ModelRenderOptionModel."
)

// Option ids used outside the registry.
const (
	OptionMapProjection = renderPrefix + "mapProjection"
	OptionViewAngle     = renderPrefix + "viewAngle"
)

// OptionAccessor reads and writes one field of Options as text.
type OptionAccessor struct {
	ID   string
	Name string
	Get  func(o *Options) string
	Set  func(o *Options, value string) error
}

// OptionRegistry maps option ids and names to accessors.
type OptionRegistry struct {
	byID   map[string]*OptionAccessor
	byName map[string]*OptionAccessor
}

func floatOption(prefix, name string, field func(o *Options) *float64) *OptionAccessor {
	return &OptionAccessor{
		ID:   prefix + name,
		Name: name,
		Get: func(o *Options) string {
			return strconv.FormatFloat(*field(o), 'g', -1, 64)
		},
		Set: func(o *Options, value string) error {
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return err
			}
			*field(o) = v
			return nil
		},
	}
}

func intOption(prefix, name string, field func(o *Options) *int) *OptionAccessor {
	return &OptionAccessor{
		ID:   prefix + name,
		Name: name,
		Get: func(o *Options) string {
			return strconv.Itoa(*field(o))
		},
		Set: func(o *Options, value string) error {
			v, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*field(o) = v
			return nil
		},
	}
}

func boolOption(prefix, name string, field func(o *Options) *bool) *OptionAccessor {
	return &OptionAccessor{
		ID:   prefix + name,
		Name: name,
		Get: func(o *Options) string {
			return strconv.FormatBool(*field(o))
		},
		Set: func(o *Options, value string) error {
			v, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*field(o) = v
			return nil
		},
	}
}

func stringOption(prefix, name string, field func(o *Options) *string) *OptionAccessor {
	return &OptionAccessor{
		ID:   prefix + name,
		Name: name,
		Get: func(o *Options) string {
			return *field(o)
		},
		Set: func(o *Options, value string) error {
			*field(o) = value
			return nil
		},
	}
}

// NewOptionRegistry returns the registry of every configurable option.
func NewOptionRegistry() *OptionRegistry {
	accessors := []*OptionAccessor{
		intOption(globalPrefix, "width", func(o *Options) *int { return &o.Width }),
		intOption(globalPrefix, "height", func(o *Options) *int { return &o.Height }),
		boolOption(globalPrefix, "limitCoordinates", func(o *Options) *bool { return &o.LimitCoordinates }),
		floatOption(globalPrefix, "northLimit", func(o *Options) *float64 { return &o.NorthLimit }),
		floatOption(globalPrefix, "southLimit", func(o *Options) *float64 { return &o.SouthLimit }),
		floatOption(globalPrefix, "eastLimit", func(o *Options) *float64 { return &o.EastLimit }),
		floatOption(globalPrefix, "westLimit", func(o *Options) *float64 { return &o.WestLimit }),
		stringOption(globalPrefix, "elevationScale", func(o *Options) *string { return &o.ElevationScale }),
		floatOption(globalPrefix, "elevationMultiple", func(o *Options) *float64 { return &o.ElevationMultiple }),
		stringOption(globalPrefix, "renderProjection", func(o *Options) *string { return &o.RenderProjection }),
		stringOption(globalPrefix, "planet", func(o *Options) *string { return &o.Planet }),
		intOption(globalPrefix, "numberOfThreads", func(o *Options) *int { return &o.NumberOfThreads }),
		stringOption(globalPrefix, "precacheStrategy", func(o *Options) *string { return &o.PrecacheStrategy }),
		intOption(globalPrefix, "tileSize", func(o *Options) *int { return &o.TileSize }),
		intOption(globalPrefix, "maxTextureCells", func(o *Options) *int { return &o.MaxTextureCells }),
		boolOption(globalPrefix, "useScripting", func(o *Options) *bool { return &o.UseScripting }),
		boolOption(globalPrefix, "averageOverlappedData", func(o *Options) *bool { return &o.AverageOverlappedData }),
		boolOption(globalPrefix, "interpolateData", func(o *Options) *bool { return &o.InterpolateData }),
		boolOption(globalPrefix, "useDiskCachedModelGrid", func(o *Options) *bool { return &o.UseDiskCachedModelGrid }),
		boolOption(globalPrefix, "disposeGridOnComplete", func(o *Options) *bool { return &o.DisposeGridOnComplete }),
		boolOption(globalPrefix, "estimateElevationRange", func(o *Options) *bool { return &o.EstimateElevationRange }),
		intOption(globalPrefix, "antialias", func(o *Options) *int { return &o.Antialias }),
		stringOption(renderPrefix, "mapProjection", func(o *Options) *string { return &o.MapProjection }),
		stringOption(renderPrefix, "coloringType", func(o *Options) *string { return &o.Coloring }),
		boolOption(renderPrefix, "lightingEnabled", func(o *Options) *bool { return &o.Lighting.Enabled }),
		stringOption(renderPrefix, "lightSourceType", func(o *Options) *string { return &o.Lighting.SourceType }),
		floatOption(renderPrefix, "lightingAzimuth", func(o *Options) *float64 { return &o.Lighting.Azimuth }),
		floatOption(renderPrefix, "lightingElevation", func(o *Options) *float64 { return &o.Lighting.Elevation }),
		floatOption(renderPrefix, "lightIntensity", func(o *Options) *float64 { return &o.Lighting.LightIntensity }),
		floatOption(renderPrefix, "darkIntensity", func(o *Options) *float64 { return &o.Lighting.DarkIntensity }),
		intOption(renderPrefix, "spotExponent", func(o *Options) *int { return &o.Lighting.SpotExponent }),
		boolOption(renderPrefix, "rayTraceShadows", func(o *Options) *bool { return &o.Lighting.RayTraceShadows }),
		floatOption(renderPrefix, "shadowIntensity", func(o *Options) *float64 { return &o.Lighting.ShadowIntensity }),
		boolOption(renderPrefix, "advancedLightingControl", func(o *Options) *bool { return &o.Lighting.AdvancedLightingControl }),
		{
			ID:   OptionViewAngle,
			Name: "viewAngle",
			Get:  func(o *Options) string { return o.ViewAngle.String() },
			Set: func(o *Options, value string) error {
				vp, err := ParseViewPerspective(value)
				if err != nil {
					return err
				}
				vp.EyeDistance = o.ViewAngle.EyeDistance
				o.ViewAngle = vp
				return nil
			},
		},
	}

	r := &OptionRegistry{
		byID:   make(map[string]*OptionAccessor, len(accessors)),
		byName: make(map[string]*OptionAccessor, len(accessors)),
	}
	for _, a := range accessors {
		r.byID[a.ID] = a
		r.byName[a.Name] = a
	}
	return r
}

// Lookup finds an accessor by id or short name.
func (r *OptionRegistry) Lookup(key string) (*OptionAccessor, bool) {
	if a, ok := r.byID[key]; ok {
		return a, true
	}
	a, ok := r.byName[key]
	return a, ok
}

// Get returns the text value of the option key.
func (r *OptionRegistry) Get(o *Options, key string) (string, error) {
	a, ok := r.Lookup(key)
	if !ok {
		return "", fmt.Errorf("unknown option %q", key)
	}
	return a.Get(o), nil
}

// Set parses value into the option key.
func (r *OptionRegistry) Set(o *Options, key, value string) error {
	a, ok := r.Lookup(key)
	if !ok {
		return fmt.Errorf("unknown option %q", key)
	}
	if err := a.Set(o, value); err != nil {
		return fmt.Errorf("option %s: %w", a.Name, err)
	}
	return nil
}

// IDs returns every option id in sorted order.
func (r *OptionRegistry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
