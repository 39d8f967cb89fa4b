package grid

import (
	"errors"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/larschri/skyggekart/dataset"
)

var testBounds = dataset.Bounds{North: 1, South: 0, East: 2, West: 0}

func latLon(r, c int) (float64, float64) {
	return 1 - float64(r)*0.1, float64(c) * 0.1
}

func exercise(t *testing.T, g Grid) {
	t.Helper()
	if g.Rows() != 10 || g.Columns() != 20 {
		t.Fatalf("unexpected size %d x %d", g.Rows(), g.Columns())
	}

	for r := 0; r < 10; r++ {
		for c := 0; c < 20; c++ {
			lat, lon := latLon(r, c)
			g.SetElevation(lat, lon, float64(r*100+c))
			g.SetRgba(lat, lon, [4]uint8{uint8(r), uint8(c), 7, 255})
		}
	}

	var rgba [4]uint8
	for r := 0; r < 10; r++ {
		for c := 0; c < 20; c++ {
			lat, lon := latLon(r, c)
			if got := g.Elevation(lat, lon, false); got != float64(r*100+c) {
				t.Fatalf("(%d,%d): expected %d, got %v", r, c, r*100+c, got)
			}
			g.Rgba(lat, lon, &rgba)
			if rgba != [4]uint8{uint8(r), uint8(c), 7, 255} {
				t.Fatalf("(%d,%d): unexpected color %v", r, c, rgba)
			}
		}
	}

	if got := g.Elevation(0.95, 0.05, true); math.Abs(got-50.5) > 1e-9 {
		t.Errorf("expected interpolated 50.5, got %v", got)
	}

	for _, p := range [][2]float64{{1.5, 0.5}, {0, 0.5}, {0.5, -0.01}, {0.5, 2}} {
		if got := g.Elevation(p[0], p[1], true); got != dataset.NoData {
			t.Errorf("%v: expected NoData, got %v", p, got)
		}
		g.Rgba(p[0], p[1], &rgba)
		if rgba != [4]uint8{} {
			t.Errorf("%v: expected empty color, got %v", p, rgba)
		}
		g.SetElevation(p[0], p[1], 1)
	}

	h := g.Histogram(10)
	if h.Total() != 200 || h.Min != 0 || h.Max != 919 {
		t.Errorf("unexpected histogram %+v", h)
	}

	g.Reset()
	if got := g.Elevation(0.5, 0.5, false); got != dataset.NoData {
		t.Errorf("expected NoData after reset, got %v", got)
	}
	if h := g.Histogram(10); h.Total() != 0 {
		t.Errorf("expected empty histogram after reset, got %d", h.Total())
	}

	if err := g.Dispose(); err != nil {
		t.Fatal(err)
	}
	if got := g.Elevation(0.5, 0.5, false); got != dataset.NoData {
		t.Errorf("expected NoData after dispose, got %v", got)
	}
}

func TestBuffered(t *testing.T) {
	g, err := NewBuffered(testBounds, 0.1, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	exercise(t, g)
}

func TestDiskCached(t *testing.T) {
	g, err := NewDiskCached(testBounds, 0.1, 0.1, t.TempDir(), 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	exercise(t, g)
	if err := g.Err(); err != nil {
		t.Fatal(err)
	}
}

func TestInvalidGrid(t *testing.T) {
	var dsErr *dataset.DataSourceError
	if _, err := NewBuffered(dataset.Bounds{North: 0, South: 1, East: 1}, 0.1, 0.1); !errors.As(err, &dsErr) {
		t.Errorf("expected DataSourceError, got %v", err)
	}
	if _, err := NewBuffered(testBounds, 0, 0.1); !errors.As(err, &dsErr) {
		t.Errorf("expected DataSourceError, got %v", err)
	}
	if _, err := NewDiskCached(testBounds, 0.1, 0.1, "/nonexistent/dir", 0, 0); !errors.As(err, &dsErr) {
		t.Errorf("expected DataSourceError, got %v", err)
	}
}

func newRaster(t *testing.T) *dataset.Context {
	t.Helper()
	buf := make([][]float32, 10)
	for r := range buf {
		buf[r] = make([]float32, 20)
		for c := range buf[r] {
			buf[r][c] = float32(r*100 + c)
		}
	}
	buf[4][4] = -1
	em, err := dataset.NewElevationMap(buf, 1, 0, 0.1, 0.1, -1)
	if err != nil {
		t.Fatal(err)
	}
	raster := dataset.NewContext()
	raster.Add(em)
	return raster
}

func TestFillControlled(t *testing.T) {
	backing, err := NewBuffered(testBounds, 0.1, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	raster := newRaster(t)
	root := NewFillControlled(backing, raster, FillOptions{Interpolate: true})
	dep := root.NewDependent(raster.Copy())
	dep.SetFilters(FilterFunc(func(lat, lon, elevation float64) (float64, error) {
		if elevation == dataset.NoData {
			return elevation, nil
		}
		return elevation + 1, nil
	}))

	lat, lon := latLon(2, 3)
	if got := dep.Elevation(lat, lon, false); got != 204 {
		t.Errorf("expected filtered 204, got %v", got)
	}
	if got := root.Elevation(lat, lon, false); got != 203 {
		t.Errorf("root has no filters, expected 203, got %v", got)
	}
	lat, lon = latLon(4, 4)
	if got := dep.Elevation(lat, lon, false); got != dataset.NoData {
		t.Errorf("expected NoData, got %v", got)
	}

	for r := 0; r < 10; r++ {
		for c := 0; c < 20; c++ {
			lat, lon := latLon(r, c)
			dep.SetElevation(lat, lon, dep.Elevation(lat, lon, false))
		}
	}
	if backing.Elevation(0.8, 0.3, false) != 204 {
		t.Error("load pass did not reach the backing grid")
	}

	dep.MarkFilled()
	if !root.Filled() {
		t.Error("fill state must be shared")
	}
	if got := root.Elevation(0.8, 0.3, false); got != 204 {
		t.Errorf("expected stored 204, got %v", got)
	}

	if err := root.Dispose(); err != nil {
		t.Fatal(err)
	}
	if got := dep.Elevation(0.8, 0.3, false); got != dataset.NoData {
		t.Errorf("dependent must be invalid after dispose, got %v", got)
	}
	if !errors.Is(dep.Err(), ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", dep.Err())
	}
}

func TestFilterError(t *testing.T) {
	backing, err := NewBuffered(testBounds, 0.1, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	g := NewFillControlled(backing, newRaster(t), FillOptions{})
	g.SetFilters(FilterFunc(func(lat, lon, elevation float64) (float64, error) {
		return 0, boom
	}))
	if got := g.Elevation(0.5, 0.5, false); got != dataset.NoData {
		t.Errorf("expected NoData, got %v", got)
	}
	if !errors.Is(g.Err(), boom) {
		t.Errorf("expected filter error, got %v", g.Err())
	}
}

func TestLatitudeProcessedList(t *testing.T) {
	l := NewLatitudeProcessedList(1, 0.1, 10)

	var claimed atomic.Int32
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < 10; r++ {
				if l.Claim(1 - float64(r)*0.1) {
					claimed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if claimed.Load() != 10 {
		t.Errorf("expected every row claimed once, got %d claims", claimed.Load())
	}
	if !l.IsProcessed(0.3) || l.Claim(0.3) {
		t.Error("claimed row must stay processed")
	}
	if l.Claim(1.5) || l.Claim(0) {
		t.Error("rows outside the list cannot be claimed")
	}

	l.Reset()
	if l.IsProcessed(0.3) || !l.Claim(0.3) {
		t.Error("reset must clear every row")
	}
}

func TestDiskCachedErrorReachesFillControlled(t *testing.T) {
	backing, err := NewDiskCached(testBounds, 0.1, 0.1, t.TempDir(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer backing.Dispose()
	g := NewFillControlled(backing, newRaster(t), FillOptions{})

	lat, lon := latLon(0, 0)
	g.SetElevation(lat, lon, 10)
	if err := g.Err(); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(backing.dir); err != nil {
		t.Fatal(err)
	}

	lat, lon = latLon(1, 0)
	g.SetElevation(lat, lon, 20)

	var dsErr *dataset.DataSourceError
	if !errors.As(g.Err(), &dsErr) {
		t.Fatalf("expected DataSourceError from the page cache, got %v", g.Err())
	}
	if !errors.Is(g.NewDependent(newRaster(t)).Err(), dsErr) {
		t.Error("dependents must see the page cache error")
	}
}
