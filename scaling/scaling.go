// Package scaling maps raw elevation values into the range used for rendering.
//
// A Scaler is built from the global elevation range of the raster data and an
// elevation multiple. Every scaler has an inverse so a rendered value can be
// traced back to the raw elevation.
package scaling

import (
	"fmt"
	"math"
)

// Identifiers accepted by New. The strings are persisted in model metadata.
const (
	None        = "none"
	Linear      = "linear"
	Percent     = "percent"
	Exponential = "exponential"
	Logarithmic = "logarithmic"
)

// Scaler converts between raw and scaled elevations.
type Scaler interface {
	ID() string
	Scale(elevation float64) float64
	Unscale(scaled float64) float64
}

// Range is the raw elevation range the scaler is fitted to.
type Range struct {
	Min float64
	Max float64
}

func (r Range) span() float64 {
	return r.Max - r.Min
}

// ratio returns the position of v inside the range, 0 when the range is empty.
func (r Range) ratio(v float64) float64 {
	s := r.span()
	if s == 0 {
		return 0
	}
	return (v - r.Min) / s
}

// New returns the scaler registered under id.
func New(id string, multiple float64, r Range) (Scaler, error) {
	if id == "" {
		id = None
	}
	if multiple == 0 && id != None {
		return nil, fmt.Errorf("elevation multiple must not be zero for scaler %q", id)
	}
	switch id {
	case None:
		return noneScaler{}, nil
	case Linear:
		return linearScaler{r: r, multiple: multiple}, nil
	case Percent:
		return percentScaler{r: r, multiple: multiple}, nil
	case Exponential:
		return exponentialScaler{r: r, multiple: multiple}, nil
	case Logarithmic:
		return logarithmicScaler{r: r, multiple: multiple}, nil
	}
	return nil, fmt.Errorf("unknown elevation scaler %q", id)
}

// IDs lists the known scaler identifiers.
func IDs() []string {
	return []string{None, Linear, Percent, Exponential, Logarithmic}
}

type noneScaler struct{}

func (noneScaler) ID() string                { return None }
func (noneScaler) Scale(v float64) float64   { return v }
func (noneScaler) Unscale(v float64) float64 { return v }

// linearScaler stretches the distance from the minimum by the multiple.
type linearScaler struct {
	r        Range
	multiple float64
}

func (s linearScaler) ID() string { return Linear }

func (s linearScaler) Scale(v float64) float64 {
	return s.r.Min + (v-s.r.Min)*s.multiple
}

func (s linearScaler) Unscale(v float64) float64 {
	return s.r.Min + (v-s.r.Min)/s.multiple
}

// percentScaler expresses the elevation as a percentage of the data range.
type percentScaler struct {
	r        Range
	multiple float64
}

func (s percentScaler) ID() string { return Percent }

func (s percentScaler) Scale(v float64) float64 {
	return s.r.ratio(v) * 100 * s.multiple
}

func (s percentScaler) Unscale(v float64) float64 {
	return s.r.Min + v/(100*s.multiple)*s.r.span()
}

// exponentialScaler exaggerates high ground more than low ground.
type exponentialScaler struct {
	r        Range
	multiple float64
}

func (s exponentialScaler) ID() string { return Exponential }

func (s exponentialScaler) Scale(v float64) float64 {
	t := s.r.ratio(v)
	return s.r.Min + math.Copysign(t*t, t)*s.r.span()*s.multiple
}

func (s exponentialScaler) Unscale(v float64) float64 {
	d := s.r.span() * s.multiple
	if d == 0 {
		return s.r.Min
	}
	t := (v - s.r.Min) / d
	return s.r.Min + math.Copysign(math.Sqrt(math.Abs(t)), t)*s.r.span()
}

// logarithmicScaler exaggerates low ground more than high ground.
type logarithmicScaler struct {
	r        Range
	multiple float64
}

func (s logarithmicScaler) ID() string { return Logarithmic }

func (s logarithmicScaler) Scale(v float64) float64 {
	t := s.r.ratio(v)
	l := math.Copysign(math.Log1p(math.Abs(t)*(math.E-1)), t)
	return s.r.Min + l*s.r.span()*s.multiple
}

func (s logarithmicScaler) Unscale(v float64) float64 {
	d := s.r.span() * s.multiple
	if d == 0 {
		return s.r.Min
	}
	l := (v - s.r.Min) / d
	t := math.Copysign(math.Expm1(math.Abs(l))/(math.E-1), l)
	return s.r.Min + t*s.r.span()
}
