package process

import (
	"fmt"
	"sort"
)

// Processor ids.
const (
	LoadID      = "us.wthr.jdem846.model.processing.dataload.GridLoadProcessor"
	ColorID     = "us.wthr.jdem846.model.processing.coloring.HypsometricColorProcessor"
	HillshadeID = "us.wthr.jdem846.model.processing.coloring.HillshadingProcessor"
	ShadowID    = "us.wthr.jdem846.model.processing.shading.RayTraceShadowProcessor"
	ShapesID    = "us.wthr.jdem846.model.processing.shapes.ShapeOverlayProcessor"
)

// Registration describes a processor that can be put in a Stack.
type Registration struct {
	ID   string
	Name string
	New  func() GridProcessor
}

// Registry maps processor ids to registrations. It is not modified after
// construction.
type Registry struct {
	byID map[string]Registration
}

// NewRegistry returns a registry holding regs. Ids must be unique.
func NewRegistry(regs ...Registration) (*Registry, error) {
	r := &Registry{byID: make(map[string]Registration, len(regs))}
	for _, reg := range regs {
		if reg.ID == "" || reg.New == nil {
			return nil, fmt.Errorf("incomplete processor registration %q", reg.Name)
		}
		if _, ok := r.byID[reg.ID]; ok {
			return nil, fmt.Errorf("processor %s registered twice", reg.ID)
		}
		r.byID[reg.ID] = reg
	}
	return r, nil
}

// DefaultRegistry returns a registry of the builtin processors.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Registration{ID: LoadID, Name: "Grid Load", New: func() GridProcessor { return &Load{} }},
		Registration{ID: ColorID, Name: "Hypsometric Color", New: func() GridProcessor { return &Color{} }},
		Registration{ID: HillshadeID, Name: "Hillshading", New: func() GridProcessor { return &Hillshade{} }},
		Registration{ID: ShadowID, Name: "Ray Traced Shadows", New: func() GridProcessor { return &Shadow{} }},
		Registration{ID: ShapesID, Name: "Shape Overlay", New: func() GridProcessor { return &ShapeOverlay{} }},
	)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(id string) (Registration, bool) {
	reg, ok := r.byID[id]
	return reg, ok
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Manifest is the ordered list of processors of a run.
type Manifest struct {
	Processors []string `yaml:"processors"`
}

// DefaultManifest loads, colors and hillshades the grid, and draws the shape
// overlays when there are any.
func DefaultManifest(shapes bool) Manifest {
	m := Manifest{Processors: []string{LoadID, ColorID, HillshadeID}}
	if shapes {
		m.Processors = append(m.Processors, ShapesID)
	}
	return m
}

// NewStack creates a fresh instance of every processor in m.
func (r *Registry) NewStack(m Manifest) (*Stack, error) {
	s := &Stack{}
	for _, id := range m.Processors {
		reg, ok := r.byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown processor %s", id)
		}
		s.ids = append(s.ids, id)
		s.processors = append(s.processors, reg.New())
	}
	return s, nil
}
