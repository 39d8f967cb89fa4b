package grid

import (
	"container/list"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/larschri/skyggekart/dataset"
)

// Default paging parameters of NewDiskCached.
const (
	DefaultPageRows = 64
	DefaultMaxPages = 32
)

type page struct {
	index     int
	elevation []float32
	rgba      []uint8
	dirty     bool
}

// DiskCached is a Grid whose cells are stored as zstd compressed pages of
// rows in a temporary directory. A bounded number of decoded pages is kept in
// memory and written back when evicted. All access is serialized by a mutex.
type DiskCached struct {
	geometry
	dir      string
	pageRows int
	maxPages int

	mu       sync.Mutex
	pages    map[int]*list.Element
	lru      *list.List
	enc      *zstd.Encoder
	dec      *zstd.Decoder
	err      error
	disposed bool
}

// NewDiskCached creates a grid covering b with pages under a new directory
// in parent. An empty parent selects os.TempDir.
func NewDiskCached(b dataset.Bounds, latRes, lonRes float64, parent string, pageRows, maxPages int) (*DiskCached, error) {
	geo, err := newGeometry(b, latRes, lonRes)
	if err != nil {
		return nil, err
	}
	if pageRows <= 0 {
		pageRows = DefaultPageRows
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	dir, err := os.MkdirTemp(parent, "modelgrid-")
	if err != nil {
		return nil, &dataset.DataSourceError{Op: "create grid cache", Err: err}
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		os.RemoveAll(dir)
		return nil, &dataset.DataSourceError{Op: "create grid cache", Err: err}
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		os.RemoveAll(dir)
		return nil, &dataset.DataSourceError{Op: "create grid cache", Err: err}
	}

	log.Printf("disk cached model grid %d x %d in %s", geo.rows, geo.cols, dir)
	return &DiskCached{
		geometry: geo,
		dir:      dir,
		pageRows: pageRows,
		maxPages: maxPages,
		pages:    make(map[int]*list.Element),
		lru:      list.New(),
		enc:      enc,
		dec:      dec,
	}, nil
}

// Err returns the first page I/O error. Reads after an error return NoData.
func (g *DiskCached) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

func (g *DiskCached) pageFile(index int) string {
	return filepath.Join(g.dir, fmt.Sprintf("page-%d.zst", index))
}

func (g *DiskCached) cellsInPage() int {
	return g.pageRows * g.cols
}

func (g *DiskCached) newPage(index int) *page {
	n := g.cellsInPage()
	p := &page{index: index, elevation: make([]float32, n), rgba: make([]uint8, 4*n)}
	for i := range p.elevation {
		p.elevation[i] = dataset.NoData
	}
	return p
}

func (g *DiskCached) readPage(index int) (*page, error) {
	data, err := os.ReadFile(g.pageFile(index))
	if errors.Is(err, fs.ErrNotExist) {
		return g.newPage(index), nil
	}
	if err != nil {
		return nil, err
	}
	raw, err := g.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	n := g.cellsInPage()
	if len(raw) != 8*n {
		return nil, fmt.Errorf("page %d has %d bytes, expected %d", index, len(raw), 8*n)
	}
	p := &page{index: index, elevation: make([]float32, n), rgba: make([]uint8, 4*n)}
	for i := range p.elevation {
		p.elevation[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	copy(p.rgba, raw[4*n:])
	return p, nil
}

func (g *DiskCached) writePage(p *page) error {
	n := g.cellsInPage()
	raw := make([]byte, 8*n)
	for i, v := range p.elevation {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	copy(raw[4*n:], p.rgba)
	if err := os.WriteFile(g.pageFile(p.index), g.enc.EncodeAll(raw, nil), 0o600); err != nil {
		return err
	}
	p.dirty = false
	return nil
}

// page returns the page holding row r. Must be called with mu held.
func (g *DiskCached) page(r int) *page {
	index := r / g.pageRows
	if e, ok := g.pages[index]; ok {
		g.lru.MoveToFront(e)
		return e.Value.(*page)
	}

	p, err := g.readPage(index)
	if err != nil {
		g.fail(err)
		return nil
	}
	g.pages[index] = g.lru.PushFront(p)

	for g.lru.Len() > g.maxPages {
		e := g.lru.Back()
		old := e.Value.(*page)
		if old.dirty {
			if err := g.writePage(old); err != nil {
				g.fail(err)
			}
		}
		g.lru.Remove(e)
		delete(g.pages, old.index)
	}
	return p
}

func (g *DiskCached) fail(err error) {
	if g.err == nil {
		g.err = &dataset.DataSourceError{Op: "grid cache page", Err: err}
		log.Printf("%v", g.err)
	}
}

func (g *DiskCached) offset(r, c int) int {
	return (r%g.pageRows)*g.cols + c
}

func (g *DiskCached) cell(r, c int) float64 {
	p := g.page(r)
	if p == nil {
		return dataset.NoData
	}
	return toFloat(p.elevation[g.offset(r, c)])
}

func (g *DiskCached) Elevation(lat, lon float64, interpolate bool) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return dataset.NoData
	}
	return g.interpolate(lat, lon, interpolate, g.cell)
}

func (g *DiskCached) SetElevation(lat, lon, elevation float64) {
	r, c, ok := g.index(lat, lon)
	if !ok {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return
	}
	if p := g.page(r); p != nil {
		p.elevation[g.offset(r, c)] = float32(elevation)
		p.dirty = true
	}
}

func (g *DiskCached) Rgba(lat, lon float64, rgba *[4]uint8) {
	*rgba = [4]uint8{}
	r, c, ok := g.index(lat, lon)
	if !ok {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return
	}
	if p := g.page(r); p != nil {
		i := 4 * g.offset(r, c)
		copy(rgba[:], p.rgba[i:i+4])
	}
}

func (g *DiskCached) SetRgba(lat, lon float64, rgba [4]uint8) {
	r, c, ok := g.index(lat, lon)
	if !ok {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return
	}
	if p := g.page(r); p != nil {
		i := 4 * g.offset(r, c)
		copy(p.rgba[i:i+4], rgba[:])
		p.dirty = true
	}
}

// Reset drops every page. Missing pages read as NoData.
func (g *DiskCached) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pages = make(map[int]*list.Element)
	g.lru.Init()
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		os.Remove(filepath.Join(g.dir, e.Name()))
	}
}

// Dispose removes the page directory.
func (g *DiskCached) Dispose() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return nil
	}
	g.disposed = true
	g.pages = nil
	g.lru.Init()
	g.enc.Close()
	g.dec.Close()
	return os.RemoveAll(g.dir)
}

func (g *DiskCached) Histogram(bins int) Histogram {
	g.mu.Lock()
	defer g.mu.Unlock()
	return histogramOf(bins, func(yield func(float64)) {
		if g.disposed {
			return
		}
		for r := 0; r < g.rows; r += g.pageRows {
			p := g.page(r)
			if p == nil {
				return
			}
			rows := min(g.pageRows, g.rows-r)
			for _, v := range p.elevation[:rows*g.cols] {
				yield(toFloat(v))
			}
		}
	})
}
