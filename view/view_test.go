package view

import (
	"errors"
	"math"
	"testing"

	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/model"
	"gonum.org/v1/gonum/spatial/r3"
)

const radius = 6371000

var box = dataset.Bounds{North: 61, South: 59, East: 11, West: 9}

func nearlyEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

func mustProject(t *testing.T, v View, lat, lon, elevation float64) (float64, float64, float64) {
	t.Helper()
	x, y, z, ok := v.Project(lat, lon, elevation)
	if !ok {
		t.Fatalf("%v,%v not visible", lat, lon)
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsNaN(z) {
		t.Fatalf("%v,%v projected to NaN", lat, lon)
	}
	return x, y, z
}

func TestFlatEquirectangular(t *testing.T) {
	f, err := NewFlat(box, 200, 100, Equirectangular)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		lat, lon float64
		x, y     float64
	}{
		{61, 9, 0, 0},
		{59, 11, 200, 100},
		{60, 10, 100, 50},
		{60.5, 9.5, 50, 25},
	}
	for _, tc := range tests {
		x, y, _ := mustProject(t, f, tc.lat, tc.lon, 0)
		if !nearlyEqual(x, tc.x, 1e-9) || !nearlyEqual(y, tc.y, 1e-9) {
			t.Errorf("%v,%v: expected %v,%v got %v,%v", tc.lat, tc.lon, tc.x, tc.y, x, y)
		}
	}
}

func TestFlatMercator(t *testing.T) {
	f, err := NewFlat(dataset.Bounds{North: 60, South: -60, East: 10, West: -10}, 100, 100, Mercator)
	if err != nil {
		t.Fatal(err)
	}
	_, y, _ := mustProject(t, f, 0, 0, 0)
	if !nearlyEqual(y, 50, 1e-9) {
		t.Errorf("equator should be in the middle, got %v", y)
	}
	_, y30, _ := mustProject(t, f, 30, 0, 0)
	if y30 <= 25 {
		t.Errorf("mercator stretches high latitudes, expected 30N below y=25, got %v", y30)
	}
}

func TestFlatSinusoidal(t *testing.T) {
	b := dataset.Bounds{North: 60, South: 0, East: 20, West: -20}
	f, err := NewFlat(b, 100, 100, Sinusoidal)
	if err != nil {
		t.Fatal(err)
	}
	// The widest row is the southern edge, which spans the whole image.
	x0, _, _ := mustProject(t, f, 0, -20, 0)
	x1, _, _ := mustProject(t, f, 0, 20, 0)
	if !nearlyEqual(x0, 0, 1e-9) || !nearlyEqual(x1, 100, 1e-9) {
		t.Errorf("expected southern edge to span the image, got %v..%v", x0, x1)
	}
	x0, _, _ = mustProject(t, f, 60, -20, 0)
	if !nearlyEqual(x0, 25, 1e-9) {
		t.Errorf("expected north-west corner at x=25, got %v", x0)
	}
}

func TestMapProjectionErrors(t *testing.T) {
	var mpErr *MapProjectionError
	if _, err := NewFlat(dataset.Bounds{North: 1, South: 1, East: 1, West: 0}, 10, 10, Equirectangular); !errors.As(err, &mpErr) {
		t.Errorf("expected MapProjectionError for empty box, got %v", err)
	}
	if _, err := NewFlat(box, 10, 10, "gnomonic"); !errors.As(err, &mpErr) {
		t.Errorf("expected MapProjectionError for unknown projection, got %v", err)
	}
}

func TestNew(t *testing.T) {
	o := model.DefaultOptions()
	for _, id := range []string{model.ViewFlat, model.View3D, model.ViewGlobe} {
		o.RenderProjection = id
		if _, err := New(o, box, 100, 100, radius); err != nil {
			t.Errorf("%s: %v", id, err)
		}
	}
	o.RenderProjection = "cylinder"
	if _, err := New(o, box, 100, 100, radius); err == nil {
		t.Error("expected error for unknown view")
	}
}

func TestNoDataIsZero(t *testing.T) {
	o := model.DefaultOptions()
	for _, id := range []string{model.ViewFlat, model.View3D, model.ViewGlobe} {
		o.RenderProjection = id
		v, err := New(o, box, 100, 100, radius)
		if err != nil {
			t.Fatal(err)
		}
		x0, y0, z0 := mustProject(t, v, 60.2, 10.1, 0)
		x1, y1, z1 := mustProject(t, v, 60.2, 10.1, dataset.NoData)
		if x0 != x1 || y0 != y1 || z0 != z1 {
			t.Errorf("%s: NoData should project like 0", id)
		}
	}
}

func TestPerspective(t *testing.T) {
	p := NewPerspective(box, 100, 100, model.ViewPerspective{Zoom: 1}, radius)
	x, y, _ := mustProject(t, p, 60, 10, 0)
	if !nearlyEqual(x, 50, 1e-9) || !nearlyEqual(y, 50, 1e-9) {
		t.Errorf("centre should project to the image centre, got %v,%v", x, y)
	}
	_, yn, _ := mustProject(t, p, 60.5, 10, 0)
	if yn >= y {
		t.Errorf("north should be up, got y %v for centre %v", yn, y)
	}
	_, _, z0 := mustProject(t, p, 60, 10, 0)
	_, _, z1 := mustProject(t, p, 60, 10, 2000)
	if z1 <= z0 {
		t.Errorf("higher points should be nearer the viewer: %v <= %v", z1, z0)
	}

	tilted := NewPerspective(box, 100, 100, model.DefaultOptions().ViewAngle, radius)
	_, ylow, _ := mustProject(t, tilted, 60, 10, 0)
	_, yhigh, _ := mustProject(t, tilted, 60, 10, 2000)
	if yhigh >= ylow {
		t.Errorf("tilted view should draw elevation upwards: %v >= %v", yhigh, ylow)
	}
}

// A point displaced from the centre towards the eye stays on the centre
// pixel, so the lighting eye vector and the projection agree.
func TestPerspectiveEye(t *testing.T) {
	vp := model.ViewPerspective{RotateX: 35, RotateY: -20, RotateZ: 15, Zoom: 1}
	p := NewPerspective(box, 100, 100, vp, radius)
	e := r3.Scale(20, vp.Eye())
	lat := p.centreLat + e.Y/p.pxLat
	lon := p.centreLon + e.X/p.pxLon
	x, y, _ := mustProject(t, p, lat, lon, e.Z/p.pxZ)
	if !nearlyEqual(x, 50, 1e-6) || !nearlyEqual(y, 50, 1e-6) {
		t.Errorf("expected the image centre, got %v,%v", x, y)
	}
}

func TestGlobe(t *testing.T) {
	g := NewGlobe(box, 100, 100, model.ViewPerspective{Zoom: 1}, radius)
	x, y, z := mustProject(t, g, 60, 10, 0)
	if !nearlyEqual(x, 50, 1e-9) || !nearlyEqual(y, 50, 1e-9) {
		t.Errorf("centre should face the viewer, got %v,%v", x, y)
	}
	if !nearlyEqual(z, g.radius, 1e-9) {
		t.Errorf("expected depth %v, got %v", g.radius, z)
	}
	_, yn, _ := mustProject(t, g, 70, 10, 0)
	if yn >= y {
		t.Errorf("north should be up, got %v", yn)
	}
	if _, _, _, ok := g.Project(-60, -170, 0); ok {
		t.Error("antipode should be hidden")
	}
	_, _, zHigh := mustProject(t, g, 60, 10, 8000)
	if zHigh <= z {
		t.Error("elevation should raise the surface towards the viewer")
	}
}
