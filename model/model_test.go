package model

import (
	"math"
	"testing"

	"github.com/larschri/skyggekart/dataset"
	"gonum.org/v1/gonum/spatial/r3"
)

func nearlyEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestDimensionsTiling(t *testing.T) {
	tests := []struct {
		north, south, east, west float64
		res                      float64
		width, height            int
		maxCells                 int
	}{
		{1, 0, 1, 0, 0.1, 0, 0, 0},
		{45.3, 44.71, -120.02, -121.7, 1.0 / 3600, 0, 0, 0},
		{45.3, 44.71, -120.02, -121.7, 1.0 / 3600, 800, 600, 0},
		{45.3, 44.71, -120.02, -121.7, 1.0 / 3600, 800, 600, 10000},
		{10, -10, 33.33, 0.01, 0.007, 333, 1001, 5000},
	}

	for _, tc := range tests {
		d, err := ComputeDimensions(tc.north, tc.south, tc.east, tc.west, tc.res, tc.res, tc.width, tc.height, ViewFlat, 1, tc.maxCells)
		if err != nil {
			t.Fatal(err)
		}
		lat := tc.north - tc.south
		lon := tc.east - tc.west

		check := func(name string, rows, cols int, latRes, lonRes float64) {
			if !nearlyEqual(float64(rows)*latRes, lat, 1e-12) || !nearlyEqual(float64(cols)*lonRes, lon, 1e-12) {
				t.Errorf("%v %s: %dx%d at %v/%v does not cover %v/%v", tc, name, rows, cols, latRes, lonRes, lat, lon)
			}
		}
		check("model", d.ModelRows, d.ModelColumns, d.ModelLatitudeResolution, d.ModelLongitudeResolution)
		check("texture", d.TextureRows, d.TextureColumns, d.TextureLatitudeResolution, d.TextureLongitudeResolution)

		if tc.maxCells > 0 && d.TextureRows*d.TextureColumns > tc.maxCells {
			t.Errorf("%v: texture grid %dx%d exceeds %d cells", tc, d.TextureRows, d.TextureColumns, tc.maxCells)
		}
		if d.TextureLatitudeResolution < d.DataLatitudeResolution*(1-1e-9) {
			t.Errorf("%v: texture resolution finer than data", tc)
		}
	}
}

func TestDimensionsDefaultToData(t *testing.T) {
	d, err := ComputeDimensions(1, 0, 1, 0, 0.1, 0.1, 0, 0, ViewFlat, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d.OutputWidth != 10 || d.OutputHeight != 10 || d.ModelRows != 10 || d.TextureColumns != 10 {
		t.Errorf("unexpected dimensions %+v", d)
	}
}

func TestDimensionsInvalid(t *testing.T) {
	if _, err := ComputeDimensions(0, 1, 1, 0, 0.1, 0.1, 0, 0, ViewFlat, 1, 0); err == nil {
		t.Error("expected error for south > north")
	}
}

func TestGlobalFallback(t *testing.T) {
	c, err := NewContext(nil, DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.North() != 90 || c.South() != -90 || c.East() != 180 || c.West() != -180 {
		t.Errorf("expected global limits, got %v %v %v %v", c.North(), c.South(), c.East(), c.West())
	}
}

func newRaster(t *testing.T) *dataset.Context {
	t.Helper()
	buf := make([][]float32, 10)
	for i := range buf {
		buf[i] = make([]float32, 20)
	}
	em, err := dataset.NewElevationMap(buf, 50, 10, 0.1, 0.1, -1)
	if err != nil {
		t.Fatal(err)
	}
	raster := dataset.NewContext()
	raster.Add(em)
	return raster
}

func TestLimits(t *testing.T) {
	o := DefaultOptions()
	o.LimitCoordinates = true
	o.NorthLimit = 49.5
	c, err := NewContext(newRaster(t), o, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.North() != 49.5 || c.South() != 49 || c.West() != 10 || c.East() != 12 {
		t.Errorf("unexpected limits %v %v %v %v", c.North(), c.South(), c.East(), c.West())
	}
	if d := c.Dimensions(); d.ModelRows != 5 || d.ModelColumns != 20 {
		t.Errorf("unexpected model grid %dx%d", d.ModelRows, d.ModelColumns)
	}
}

func TestCopy(t *testing.T) {
	c, err := NewContext(newRaster(t), DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	cp := c.Copy()
	if cp.ID() == c.ID() {
		t.Error("copy must get a new id")
	}
	cp.Options.Width = 7
	if c.Options.Width == 7 {
		t.Error("copy shares options")
	}
	if cp.Raster == c.Raster {
		t.Error("copy shares raster context")
	}
}

func TestRotateInverse(t *testing.T) {
	vp := ViewPerspective{RotateX: 30, RotateY: -45, RotateZ: 10}
	v := r3.Vec{X: 1, Y: 2, Z: 3}
	got := vp.Unrotate(vp.Rotate(v))
	if r3.Norm(r3.Sub(got, v)) > 1e-12 {
		t.Errorf("expected %v, got %v", v, got)
	}
}

func TestRotateOrder(t *testing.T) {
	vp := ViewPerspective{RotateX: 90, RotateY: 90}
	// Y first takes +X to -Z, then X takes -Z to +Y.
	got := vp.Rotate(r3.Vec{X: 1})
	if r3.Norm(r3.Sub(got, r3.Vec{Y: 1})) > 1e-12 {
		t.Errorf("expected +Y, got %v", got)
	}
}

func TestTransform(t *testing.T) {
	vp := DefaultOptions().ViewAngle
	if got := vp.Transform(vp.Eye()); r3.Norm(r3.Sub(got, r3.Vec{Z: 1})) > 1e-12 {
		t.Errorf("eye should face the viewer, got %v", got)
	}
	if up := vp.Transform(r3.Vec{Z: 1}); up.Y >= 0 {
		t.Errorf("elevation should point up the screen, got %v", up)
	}
	if north := vp.Transform(r3.Vec{Y: 1}); north.Z >= 0 {
		t.Errorf("north should tilt away from the viewer, got %v", north)
	}
}

func TestOptionRegistry(t *testing.T) {
	r := NewOptionRegistry()
	o := DefaultOptions()

	if err := r.Set(&o, "width", "640"); err != nil {
		t.Fatal(err)
	}
	if o.Width != 640 {
		t.Errorf("expected width 640, got %d", o.Width)
	}
	if err := r.Set(&o, "us.wthr.jdem846.model.GlobalOptionModel.interpolateData", "false"); err != nil {
		t.Fatal(err)
	}
	if o.InterpolateData {
		t.Error("interpolateData not cleared")
	}

	o.ViewAngle = ViewPerspective{RotateX: 10, RotateY: 20, Zoom: 1.5}
	s, err := r.Get(&o, OptionViewAngle)
	if err != nil {
		t.Fatal(err)
	}
	o.ViewAngle = ViewPerspective{}
	if err := r.Set(&o, OptionViewAngle, s); err != nil {
		t.Fatal(err)
	}
	if o.ViewAngle.RotateY != 20 || o.ViewAngle.Zoom != 1.5 {
		t.Errorf("view angle not restored from %q: %+v", s, o.ViewAngle)
	}

	if err := r.Set(&o, "width", "wide"); err == nil {
		t.Error("expected parse error")
	}
	if _, err := r.Get(&o, "colour"); err == nil {
		t.Error("expected unknown option error")
	}
}

func TestPlanets(t *testing.T) {
	r := NewPlanetRegistry()
	if p := r.Get("mars"); p.MeanRadius != 3389.5 {
		t.Errorf("unexpected mars %+v", p)
	}
	if p := r.Get("vulcan"); p.ID != "earth" {
		t.Errorf("unknown planet should fall back to earth, got %+v", p)
	}
}
