package model

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ShapeLayer configures one vector overlay file.
type ShapeLayer struct {
	File  string   `yaml:"file"`
	Color [4]uint8 `yaml:"color,flow"`
}

// Shapes is a loaded vector overlay.
type Shapes struct {
	Color    [4]uint8
	Features *geojson.FeatureCollection
}

// LoadShapes reads a GeoJSON feature collection.
func LoadShapes(layer ShapeLayer) (*Shapes, error) {
	data, err := os.ReadFile(layer.File)
	if err != nil {
		return nil, fmt.Errorf("failed to read shapes: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", layer.File, err)
	}
	return &Shapes{Color: layer.Color, Features: fc}, nil
}

// Copy returns a deep copy of s.
func (s *Shapes) Copy() *Shapes {
	fc := geojson.NewFeatureCollection()
	for _, f := range s.Features.Features {
		nf := geojson.NewFeature(orb.Clone(f.Geometry))
		nf.ID = f.ID
		nf.Properties = f.Properties.Clone()
		fc.Append(nf)
	}
	return &Shapes{Color: s.Color, Features: fc}
}
