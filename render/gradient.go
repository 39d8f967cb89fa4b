package render

import (
	"fmt"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mazznoer/colorgrad"
)

// Coloring ids.
const (
	HypsometricNatural = "hypsometric-natural"
	Grey               = "grey"
	HclAtlas           = "hcl-atlas"
	ColorgradTerrain   = "colorgrad-terrain"
)

// Coloring maps an elevation to a color given the elevation range of the
// model.
type Coloring interface {
	Color(elevation, minimum, maximum float64) [4]uint8
}

// gradient is a list of evenly spaced color stops.
type gradient struct {
	stops []rgb
}

func intAndFraction(value float64, max float64, length int) (int, float64) {

	if value <= 0 {
		return 0, 0
	}

	if value >= max {
		return length - 2, 1
	}

	r := float64(length-1) * value / max
	i := min(int(r), length-2)
	return i, r - float64(i)
}

func (g gradient) at(value, max float64) rgb {
	i, f := intAndFraction(value, max, len(g.stops))
	return g.stops[i].scale(1 - f).add(g.stops[i+1].scale(f))
}

func (g gradient) Color(elevation, minimum, maximum float64) [4]uint8 {
	return g.at(elevation-minimum, maximum-minimum).rgba()
}

// hypsometric colors land by a gradient from the lowest land elevation and
// water by depth.
type hypsometric struct {
	land gradient
	sea  rgb
}

func (h hypsometric) Color(elevation, minimum, maximum float64) [4]uint8 {
	if elevation < 0 && minimum < 0 {
		depth := elevation / minimum
		return h.sea.scale(1 - depth/2).add(black.scale(depth / 2)).rgba()
	}
	low := max(minimum, 0)
	return h.land.Color(elevation, low, maximum)
}

func hcl1(h, c, l float64) rgb {
	return fromColorful(colorful.Hcl(h, c, l))
}

func hex(s string) rgb {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return fromColorful(c)
}

func hclAtlas() gradient {
	var g gradient
	for i := 0; i < 12; i++ {
		f := float64(i) / 11
		g.stops = append(g.stops, hcl1(140-110*f, 0.45-0.3*f, 0.55+0.45*f))
	}
	return g
}

type colorgradColoring struct {
	g colorgrad.Gradient
}

func (c colorgradColoring) Color(elevation, minimum, maximum float64) [4]uint8 {
	t := 0.0
	if maximum > minimum {
		t = (elevation - minimum) / (maximum - minimum)
	}
	t = max(0, min(1, t))
	r, g, b := c.g.At(t).Clamped().RGB255()
	return [4]uint8{r, g, b, 255}
}

// ColoringRegistry holds the colorings by id. It is not modified after
// construction.
type ColoringRegistry struct {
	colorings map[string]Coloring
}

// NewColoringRegistry returns a registry with the builtin colorings.
func NewColoringRegistry() (*ColoringRegistry, error) {
	terrain, err := colorgrad.NewGradient().
		HtmlColors("#0f5b28", "#4f9a3a", "#c8c27a", "#a0784a", "#7a5c50", "#f4f4f4").
		Domain(0, 1).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build terrain gradient: %w", err)
	}

	return &ColoringRegistry{
		colorings: map[string]Coloring{
			HypsometricNatural: hypsometric{
				land: gradient{stops: []rgb{green, hex("#8cbf5a"), hex("#e3d68c"), hex("#b98d5b"), hex("#8a6a55"), hex("#f2f2f2")}},
				sea:  blue,
			},
			Grey:             gradient{stops: []rgb{hex("#202020"), hex("#f0f0f0")}},
			HclAtlas:         hclAtlas(),
			ColorgradTerrain: colorgradColoring{g: terrain},
		},
	}, nil
}

func (r *ColoringRegistry) Lookup(id string) (Coloring, bool) {
	c, ok := r.colorings[id]
	return c, ok
}

// IDs returns the registered ids in sorted order.
func (r *ColoringRegistry) IDs() []string {
	ids := make([]string, 0, len(r.colorings))
	for id := range r.colorings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
