package raytrace

import (
	"errors"
	"testing"

	"github.com/golang/geo/s1"
	"github.com/larschri/skyggekart/dataset"
)

// wall returns a field that is flat at 0 except for a 2000m wall east of
// longitude 0.5.
func wall(lat, lon float64) (float64, error) {
	if lon > 0.5 && lon < 0.6 {
		return 2000, nil
	}
	return 0, nil
}

func newTracer(fn ElevationFunc) *Tracer {
	return &Tracer{
		LatitudeResolution: 0.001,
		Radius:             6371000,
		Bounds:             dataset.Bounds{North: 1, South: 0, East: 1, West: 0},
		MaxElevation:       2000,
		Elevation:          fn,
	}
}

func TestBlocked(t *testing.T) {
	tr := newTracer(wall)
	tests := []struct {
		name      string
		azimuth   float64
		elevation float64
		want      float64
	}{
		{"low sun behind wall", 90, 5, 1},
		{"sun on the other side", 270, 5, 0},
		{"sun above wall", 90, 60, 0},
		{"sun below horizon", 90, -10, 1},
	}
	for _, tc := range tests {
		got, err := tr.Blocked(s1.Angle(tc.azimuth)*s1.Degree, s1.Angle(tc.elevation)*s1.Degree, 0.5, 0.45, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestBlockedRange(t *testing.T) {
	tr := newTracer(wall)
	for el := 0.0; el < 90; el += 0.5 {
		got, err := tr.Blocked(90*s1.Degree, s1.Angle(el)*s1.Degree, 0.5, 0.3, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got < 0 || got > 1 {
			t.Fatalf("elevation %v: fraction %v out of range", el, got)
		}
	}
}

func TestBlockedNoData(t *testing.T) {
	tr := newTracer(func(lat, lon float64) (float64, error) { return dataset.NoData, nil })
	got, err := tr.Blocked(90*s1.Degree, 5*s1.Degree, 0.5, 0.45, 0)
	if err != nil || got != 0 {
		t.Errorf("expected 0, nil, got %v, %v", got, err)
	}

	got, err = newTracer(wall).Blocked(90*s1.Degree, 5*s1.Degree, 0.5, 0.45, dataset.NoData)
	if err != nil || got != 0 {
		t.Errorf("expected NoData point to be unshadowed, got %v, %v", got, err)
	}
}

func TestBlockedError(t *testing.T) {
	boom := errors.New("boom")
	tr := newTracer(func(lat, lon float64) (float64, error) { return 0, boom })
	_, err := tr.Blocked(90*s1.Degree, 5*s1.Degree, 0.5, 0.45, 0)
	var rtErr *Error
	if !errors.As(err, &rtErr) || !errors.Is(err, boom) {
		t.Errorf("expected wrapped ray trace error, got %v", err)
	}

	tr = newTracer(wall)
	tr.LatitudeResolution = 0
	if _, err := tr.Blocked(90*s1.Degree, 5*s1.Degree, 0.5, 0.45, 0); !errors.As(err, &rtErr) {
		t.Errorf("expected error for zero step, got %v", err)
	}
}
