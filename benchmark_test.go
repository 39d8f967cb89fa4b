package main

import (
	"context"
	"math"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/model"
)

var addr net.Addr

func synthetic() *dataset.Context {
	buf := make([][]float32, 300)
	for r := range buf {
		buf[r] = make([]float32, 300)
		for c := range buf[r] {
			buf[r][c] = float32(1000 + 800*math.Sin(float64(r)/20)*math.Cos(float64(c)/30))
		}
	}
	em, err := dataset.NewElevationMap(buf, 61.6, 8.2, 0.001, 0.001, -1)
	if err != nil {
		panic(err)
	}
	raster := dataset.NewContext()
	raster.Add(em)
	if err := raster.CalculateMinMax(); err != nil {
		panic(err)
	}
	return raster
}

func TestMain(m *testing.M) {
	cfg := defaultConfig()
	cfg.Options.Width, cfg.Options.Height = 400, 400
	s, err := newServer(synthetic(), nil, cfg, "127.0.0.1:0")
	if err != nil {
		panic(err)
	}

	addr = s.Listener.Addr()

	go func() {
		if err = s.Serve(context.Background()); err != nil {
			panic(err)
		}
	}()

	os.Exit(m.Run())
}

func TestLoadConfig(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(fname, []byte(`
options:
  width: 640
  renderProjection: globe
  backgroundColor: [1, 2, 3, 255]
  lighting:
    azimuth: 200
    rayTraceShadows: true
provenance:
  author: Kari Nordmann
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(fname)
	if err != nil {
		t.Fatal(err)
	}
	o := cfg.Options
	if o.Width != 640 || o.RenderProjection != model.ViewGlobe {
		t.Errorf("unexpected options %+v", o)
	}
	if o.BackgroundColor != [4]uint8{1, 2, 3, 255} {
		t.Errorf("unexpected background %v", o.BackgroundColor)
	}
	if o.Lighting.Azimuth != 200 || !o.Lighting.RayTraceShadows {
		t.Errorf("unexpected lighting %+v", o.Lighting)
	}
	if o.Lighting.Elevation != model.DefaultLighting().Elevation {
		t.Errorf("default light elevation lost, got %v", o.Lighting.Elevation)
	}
	if cfg.Provenance.Author != "Kari Nordmann" || cfg.Provenance.Subject != "Shaded relief" {
		t.Errorf("unexpected provenance %+v", cfg.Provenance)
	}
}

func TestSettings(t *testing.T) {
	var s settings
	if err := s.Set("width"); err == nil {
		t.Error("expected error without value")
	}
	for _, kv := range []string{"width=300", "coloringType=grey", "viewAngle=10;20;0;0;0;0;1"} {
		if err := s.Set(kv); err != nil {
			t.Fatal(err)
		}
	}
	o := model.DefaultOptions()
	if err := s.apply(model.NewOptionRegistry(), &o); err != nil {
		t.Fatal(err)
	}
	if o.Width != 300 || o.Coloring != "grey" || o.ViewAngle.RotateX != 10 {
		t.Errorf("unexpected options %+v", o)
	}

	bad := settings{"nope=1"}
	if err := bad.apply(model.NewOptionRegistry(), &o); err == nil {
		t.Error("expected error for unknown option")
	}
}

func TestRenderOnce(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.Options.Width, cfg.Options.Height = 50, 50
	out, artifact := filepath.Join(dir, "model.png"), filepath.Join(dir, "model.art")
	if err := renderOnce(context.Background(), synthetic(), nil, cfg, out, artifact); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{out, artifact} {
		if fi, err := os.Stat(f); err != nil || fi.Size() == 0 {
			t.Errorf("%s not written: %v", f, err)
		}
	}
}

func BenchmarkJotunheimen(b *testing.B) {
	for i := 0; i < b.N; i++ {
		resp, err := http.Get("http://" + addr.String() + "/render?renderProjection=3d&rayTraceShadows=true")
		if err != nil {
			b.Fatal(err)
		}
		resp.Body.Close()

		if resp.StatusCode != 200 {
			b.Fatal(resp.Status)
		}
	}
}
