package model

import "sort"

// Planet is a body the model can be rendered on.
type Planet struct {
	ID   string
	Name string
	// MeanRadius in kilometers.
	MeanRadius float64
}

// MeanRadiusMeters returns the mean radius in meters.
func (p Planet) MeanRadiusMeters() float64 {
	return p.MeanRadius * 1000
}

// Earth is used when a planet id is unknown.
var Earth = Planet{ID: "earth", Name: "Earth", MeanRadius: 6371.0}

// PlanetRegistry is an immutable set of planets keyed by id.
type PlanetRegistry struct {
	planets map[string]Planet
}

// NewPlanetRegistry returns the registry of the known planets and moons.
func NewPlanetRegistry() *PlanetRegistry {
	r := &PlanetRegistry{planets: make(map[string]Planet)}
	for _, p := range []Planet{
		{ID: "mercury", Name: "Mercury", MeanRadius: 2439.7},
		{ID: "venus", Name: "Venus", MeanRadius: 6051.8},
		Earth,
		{ID: "moon", Name: "Moon", MeanRadius: 1737.1},
		{ID: "mars", Name: "Mars", MeanRadius: 3389.5},
		{ID: "jupiter", Name: "Jupiter", MeanRadius: 69911},
		{ID: "saturn", Name: "Saturn", MeanRadius: 58232},
		{ID: "uranus", Name: "Uranus", MeanRadius: 25362},
		{ID: "neptune", Name: "Neptune", MeanRadius: 24622},
	} {
		r.planets[p.ID] = p
	}
	return r
}

// Lookup returns the planet registered under id.
func (r *PlanetRegistry) Lookup(id string) (Planet, bool) {
	p, ok := r.planets[id]
	return p, ok
}

// Get returns the planet registered under id, or Earth.
func (r *PlanetRegistry) Get(id string) Planet {
	if p, ok := r.Lookup(id); ok {
		return p
	}
	return Earth
}

// IDs returns the registered ids in sorted order.
func (r *PlanetRegistry) IDs() []string {
	ids := make([]string, 0, len(r.planets))
	for id := range r.planets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
