package server

import (
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/model"
	"github.com/larschri/skyggekart/process"
	"github.com/larschri/skyggekart/render"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	buf := make([][]float32, 10)
	for r := range buf {
		buf[r] = make([]float32, 10)
		for c := range buf[r] {
			buf[r][c] = float32(100 + 10*r + c)
		}
	}
	em, err := dataset.NewElevationMap(buf, 1, 0, 0.1, 0.1, -1)
	if err != nil {
		t.Fatal(err)
	}
	raster := dataset.NewContext()
	raster.Add(em)
	if err := raster.CalculateMinMax(); err != nil {
		t.Fatal(err)
	}
	colorings, err := render.NewColoringRegistry()
	if err != nil {
		t.Fatal(err)
	}
	o := model.DefaultOptions()
	o.NumberOfThreads = 2
	return &Server{
		Raster:    raster,
		Options:   o,
		Processes: process.DefaultRegistry(),
		Colorings: colorings,
		Registry:  model.NewOptionRegistry(),
	}
}

func get(t *testing.T, h http.Handler, url string) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", url, nil))
	return rec.Result()
}

func TestRender(t *testing.T) {
	resp := get(t, newServer(t).Handler(), "/render?width=20&height=30")
	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s: %s", resp.Status, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("unexpected content type %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if size := img.Bounds().Size(); size.X != 20 || size.Y != 30 {
		t.Errorf("expected 20x30 image, got %v", size)
	}
}

func TestProperties(t *testing.T) {
	resp := get(t, newServer(t).Handler(), "/properties?north=0.5&west=0.2")
	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s: %s", resp.Status, body)
	}
	var result struct {
		Properties map[string]string `json:"properties"`
		Partial    bool              `json:"partial"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if got := result.Properties["max-model-latitude"]; got != "0.5" {
		t.Errorf("expected north 0.5, got %q", got)
	}
	if got := result.Properties["min-model-longitude"]; got != "0.2" {
		t.Errorf("expected west 0.2, got %q", got)
	}
	if got := result.Properties["max-data-latitude"]; got != "1" {
		t.Errorf("expected data north 1, got %q", got)
	}
}

func TestOptions(t *testing.T) {
	resp := get(t, newServer(t).Handler(), "/options?mapProjection=mercator")
	if resp.StatusCode != 200 {
		t.Fatal(resp.Status)
	}
	var values map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&values); err != nil {
		t.Fatal(err)
	}
	if got := values[model.OptionMapProjection]; got != "mercator" {
		t.Errorf("expected mercator, got %q", got)
	}
}

func TestBadRequest(t *testing.T) {
	h := newServer(t).Handler()
	for _, url := range []string{
		"/render?north=x",
		"/render?nope=1",
		"/render?width=wide",
		"/properties?coloringType=nope",
		"/options?numberOfThreads=many",
	} {
		if resp := get(t, h, url); resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %s", url, resp.Status)
		}
	}
}

func TestServe(t *testing.T) {
	srv := newServer(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv.Listener = l

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- srv.Serve(ctx) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/options")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Error(resp.Status)
	}

	cancel()
	if err := <-done; err != nil {
		t.Error(err)
	}
}
