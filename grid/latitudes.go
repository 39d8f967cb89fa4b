package grid

import (
	"math"
	"sync/atomic"
)

// LatitudeProcessedList records which rows of a pass are done. A row stays
// processed until Reset.
type LatitudeProcessedList struct {
	north  float64
	latRes float64
	rows   []atomic.Bool
}

func NewLatitudeProcessedList(north, latRes float64, rows int) *LatitudeProcessedList {
	return &LatitudeProcessedList{
		north:  north,
		latRes: latRes,
		rows:   make([]atomic.Bool, max(rows, 0)),
	}
}

func (l *LatitudeProcessedList) row(lat float64) int {
	return int(math.Floor((l.north-lat)/l.latRes + indexEpsilon))
}

// Claim marks the row of lat as processed. It reports false when the row was
// already claimed or lies outside the list.
func (l *LatitudeProcessedList) Claim(lat float64) bool {
	r := l.row(lat)
	if r < 0 || r >= len(l.rows) {
		return false
	}
	return l.rows[r].CompareAndSwap(false, true)
}

// IsProcessed reports whether the row of lat was claimed.
func (l *LatitudeProcessedList) IsProcessed(lat float64) bool {
	r := l.row(lat)
	if r < 0 || r >= len(l.rows) {
		return false
	}
	return l.rows[r].Load()
}

// Len returns the number of rows.
func (l *LatitudeProcessedList) Len() int { return len(l.rows) }

// Reset marks every row unprocessed.
func (l *LatitudeProcessedList) Reset() {
	for i := range l.rows {
		l.rows[i].Store(false)
	}
}
