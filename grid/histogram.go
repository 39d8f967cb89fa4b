package grid

import (
	"math"

	"github.com/larschri/skyggekart/dataset"
)

// Histogram is the distribution of the valid elevations of a grid.
type Histogram struct {
	Min    float64 `msgpack:"min" json:"min"`
	Max    float64 `msgpack:"max" json:"max"`
	Counts []int   `msgpack:"counts" json:"counts"`
}

// histogramOf spreads the values produced by each over bins equal buckets.
// each is called twice.
func histogramOf(bins int, each func(yield func(v float64))) Histogram {
	if bins <= 0 {
		bins = 1
	}
	h := Histogram{Counts: make([]int, bins)}

	lo, hi := math.MaxFloat64, -math.MaxFloat64
	each(func(v float64) {
		if v == dataset.NoData || math.IsNaN(v) {
			return
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	})
	if lo > hi {
		return h
	}
	h.Min, h.Max = lo, hi

	span := hi - lo
	each(func(v float64) {
		if v == dataset.NoData || math.IsNaN(v) {
			return
		}
		i := 0
		if span > 0 {
			i = min(int((v-lo)/span*float64(bins)), bins-1)
		}
		h.Counts[i]++
	})
	return h
}

// Total returns the number of values in h.
func (h Histogram) Total() int {
	n := 0
	for _, c := range h.Counts {
		n += c
	}
	return n
}
