// Package builder runs the processors of a model over its grid and renders
// the result.
//
// The data pass splits the texture rows into one band per program and runs
// the bands concurrently. The render pass then walks the model north to
// south on a single goroutine and draws it into a frame buffer.
package builder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"
	"time"

	"github.com/larschri/skyggekart/dataset"
	"github.com/larschri/skyggekart/framebuffer"
	"github.com/larschri/skyggekart/grid"
	"github.com/larschri/skyggekart/model"
	"github.com/larschri/skyggekart/process"
	"github.com/larschri/skyggekart/render"
	"github.com/larschri/skyggekart/scaling"
	"github.com/larschri/skyggekart/view"
	"github.com/nfnt/resize"
	"golang.org/x/sync/errgroup"
)

// histogramBins is the resolution of the elevation histogram of a model.
const histogramBins = 256

// estimateSamples is the number of rows and columns sampled per source when
// the elevation range is estimated.
const estimateSamples = 256

// State is the lifecycle state of a Builder.
type State int

const (
	Unprepared State = iota
	Prepared
	Processing
	Done
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Unprepared:
		return "unprepared"
	case Prepared:
		return "prepared"
	case Processing:
		return "processing"
	case Done:
		return "done"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Program is the processor stack of one goroutine with its own model copy
// and dependent grid.
type Program struct {
	Model *model.Context
	Grid  *grid.FillControlled
	Stack *process.Stack
}

// Builder builds one model. Prepare and Process are called once each.
type Builder struct {
	Provenance Provenance

	processes   *process.Registry
	colorings   *render.ColoringRegistry
	options     *model.OptionRegistry
	interrupter Interrupter
	listeners   []TileCompletionListener
	now         func() time.Time

	mu    sync.Mutex
	state State

	model     *model.Context
	script    model.ScriptProxy
	root      *grid.FillControlled
	programs  []*Program
	latitudes *grid.LatitudeProcessedList
}

// New returns a builder using the given registries. A nil option registry
// is replaced by the default one.
func New(processes *process.Registry, colorings *render.ColoringRegistry, options *model.OptionRegistry) *Builder {
	if options == nil {
		options = model.NewOptionRegistry()
	}
	return &Builder{
		Provenance: Provenance{Subject: "Shaded relief"},
		processes:  processes,
		colorings:  colorings,
		options:    options,
		now:        time.Now,
	}
}

// Interrupter returns the interrupter checked by the running build.
func (b *Builder) Interrupter() *Interrupter {
	return &b.interrupter
}

// AddTileCompletionListener registers l for render progress. It must be
// called before Process.
func (b *Builder) AddTileCompletionListener(l TileCompletionListener) {
	b.listeners = append(b.listeners, l)
}

func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Builder) setState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
}

// Grid returns the model grid. It is nil before Prepare and after the grid
// was disposed.
func (b *Builder) Grid() *grid.FillControlled {
	return b.root
}

func scriptOf(mc *model.Context) model.ScriptProxy {
	if !mc.Options.UseScripting {
		return nil
	}
	return mc.Script
}

func filtersOf(script model.ScriptProxy) []grid.Filter {
	if ps, ok := script.(model.PointScript); ok {
		return []grid.Filter{grid.ScriptFilter(ps)}
	}
	return nil
}

// Prepare fixes the geometry of the model, allocates the grid and prepares
// one program per thread.
func (b *Builder) Prepare(mc *model.Context, manifest process.Manifest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Unprepared {
		return fmt.Errorf("model builder is %s", b.state)
	}

	o := mc.Options
	raster := mc.Raster
	if o.EstimateElevationRange && raster.Len() > 0 {
		if err := raster.EstimateMinMax(estimateSamples); err != nil {
			return err
		}
	}
	scaler, err := scaling.New(o.ElevationScale, o.ElevationMultiple, scaling.Range{
		Min: raster.DataMinimumValue(),
		Max: raster.DataMaximumValueTrue(),
	})
	if err != nil {
		return err
	}
	raster.SetElevationScaler(scaler)
	if err := raster.SetPrecache(o.PrecacheStrategy, o.TileSize); err != nil {
		return err
	}
	if err := mc.Update(); err != nil {
		return err
	}

	dims := mc.Dimensions()
	bounds := dataset.Bounds{North: mc.North(), South: mc.South(), East: mc.East(), West: mc.West()}
	var backing grid.Grid
	if o.UseDiskCachedModelGrid {
		backing, err = grid.NewDiskCached(bounds, dims.TextureLatitudeResolution, dims.TextureLongitudeResolution, "", 0, 0)
	} else {
		backing, err = grid.NewBuffered(bounds, dims.TextureLatitudeResolution, dims.TextureLongitudeResolution)
	}
	if err != nil {
		return err
	}

	script := scriptOf(mc)
	filters := filtersOf(script)
	root := grid.NewFillControlled(backing, raster, grid.FillOptions{
		AverageOverlap: o.AverageOverlappedData,
		Interpolate:    o.InterpolateData,
	})
	root.SetFilters(filters...)

	threads := max(1, min(o.NumberOfThreads, root.Rows()))
	programs := make([]*Program, 0, threads)
	fail := func(err error) error {
		for _, p := range programs {
			p.Stack.Dispose()
			p.Grid.Dispose()
		}
		root.Dispose()
		return err
	}
	for i := 0; i < threads; i++ {
		pc := mc.Copy()
		g := root.NewDependent(pc.Raster)
		g.SetFilters(filters...)
		stack, err := b.processes.NewStack(manifest)
		if err != nil {
			return fail(err)
		}
		programs = append(programs, &Program{Model: pc, Grid: g, Stack: stack})
		if err := stack.Prepare(&process.Env{Model: pc, Grid: g, Colorings: b.colorings}); err != nil {
			return fail(&RenderEngineError{Method: "prepare", Err: err})
		}
	}

	if script != nil {
		props := []struct {
			name  string
			value any
		}{
			{"modelContext", mc},
			{"modelGrid", root},
			{"globalOptionModel", o},
			{"modelDimensions", dims},
		}
		for _, p := range props {
			if err := script.SetProperty(p.name, p.value); err != nil {
				return fail(&RenderEngineError{Method: "setProperty", Err: err})
			}
		}
		if err := script.Initialize(); err != nil {
			return fail(&RenderEngineError{Method: "initialize", Err: err})
		}
	}

	b.model = mc
	b.script = script
	b.root = root
	b.programs = programs
	b.latitudes = grid.NewLatitudeProcessedList(bounds.North, root.LatitudeResolution(), root.Rows())
	b.state = Prepared
	log.Printf("%s: prepared %d programs for %d x %d texture cells", mc.ID(), threads, root.Rows(), root.Columns())
	return nil
}

// Process runs the data pass and the render pass. A model without raster
// data yields a nil model. Cancelling during the data pass yields a nil
// model and a nil error, cancelling during the render pass a partial model.
func (b *Builder) Process(ctx context.Context) (*ElevationModel, error) {
	b.mu.Lock()
	switch b.state {
	case Prepared:
	case Unprepared:
		b.mu.Unlock()
		return nil, ErrNotPrepared
	default:
		s := b.state
		b.mu.Unlock()
		return nil, fmt.Errorf("model builder is %s", s)
	}
	b.state = Processing
	b.mu.Unlock()

	m, state, err := b.process(ctx)
	b.setState(state)
	return m, err
}

func (b *Builder) process(ctx context.Context) (*ElevationModel, State, error) {
	defer b.disposePrograms()
	mc := b.model

	if mc.Raster.Len() == 0 {
		log.Printf("%s: Model contains no data", mc.ID())
		b.disposeGrid()
		return nil, Done, nil
	}

	start := time.Now()
	if err := b.onProcessBefore(); err != nil {
		b.disposeGrid()
		return nil, Failed, err
	}

	if err := b.dataPass(ctx); err != nil {
		b.disposeGrid()
		if errors.Is(err, ErrCancelled) {
			log.Printf("%s: cancelled during data pass", mc.ID())
			return nil, Cancelled, nil
		}
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil, Cancelled, err
		}
		return nil, Failed, err
	}
	log.Printf("%s: data pass done in %v", mc.ID(), time.Since(start))

	if err := b.onProcessAfter(); err != nil {
		b.disposeGrid()
		return nil, Failed, err
	}

	b.latitudes.Reset()
	b.root.MarkFilled()

	img, partial, err := b.renderPass(ctx)
	if err != nil {
		b.disposeGrid()
		return nil, Failed, err
	}
	log.Printf("%s: render pass done in %v", mc.ID(), time.Since(start))

	m := &ElevationModel{
		Image:      img,
		Properties: properties(mc, b.Provenance, b.options, b.now().UTC().Format(time.RFC3339)),
		Histogram:  b.root.Histogram(histogramBins),
		Partial:    partial,
	}

	if b.script != nil {
		if err := b.script.Destroy(); err != nil {
			b.disposeGrid()
			return nil, Failed, &RenderEngineError{Method: "destroy", Err: err}
		}
	}
	if mc.Options.DisposeGridOnComplete {
		b.disposeGrid()
	}

	if partial {
		return m, Cancelled, nil
	}
	return m, Done, nil
}

func (b *Builder) onProcessBefore() error {
	for _, p := range b.programs {
		if err := p.Stack.OnProcessBefore(); err != nil {
			return &RenderEngineError{Method: "onProcessBefore", Err: err}
		}
	}
	if b.script != nil {
		if err := b.script.OnProcessBefore(); err != nil {
			return &RenderEngineError{Method: "onProcessBefore", Err: err}
		}
	}
	return nil
}

func (b *Builder) onProcessAfter() error {
	for _, p := range b.programs {
		if err := p.Stack.OnProcessAfter(); err != nil {
			return &RenderEngineError{Method: "onProcessAfter", Err: err}
		}
	}
	if b.script != nil {
		if err := b.script.OnProcessAfter(); err != nil {
			return &RenderEngineError{Method: "onProcessAfter", Err: err}
		}
	}
	return nil
}

// dataPass runs every program over its band of rows.
func (b *Builder) dataPass(ctx context.Context) error {
	rows := b.root.Rows()
	if len(b.programs) == 1 {
		return b.processBand(ctx, b.programs[0], 0, rows)
	}

	perBand := (rows + len(b.programs) - 1) / len(b.programs)
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range b.programs {
		first := i * perBand
		last := min(rows, first+perBand)
		if first >= last {
			continue
		}
		g.Go(func() error {
			return b.processBand(gctx, p, first, last)
		})
	}
	return g.Wait()
}

// processBand runs p over the rows [first, last).
func (b *Builder) processBand(ctx context.Context, p *Program, first, last int) error {
	g := p.Grid
	bounds := g.Bounds()
	latRes, lonRes := g.LatitudeResolution(), g.LongitudeResolution()
	north := bounds.North - float64(first)*latRes
	south := bounds.North - float64(last)*latRes

	raster := p.Model.Raster
	if err := raster.FillBuffers(north+latRes, south-latRes, bounds.East+lonRes, bounds.West-lonRes); err != nil {
		return &RenderEngineError{Method: "fillBuffers", Err: err}
	}
	defer raster.ClearBuffers()

	for r := first; r < last; r++ {
		if err := b.interrupter.check(ctx); err != nil {
			return err
		}
		lat := bounds.North - float64(r)*latRes
		if !b.latitudes.Claim(lat) {
			continue
		}
		if err := p.Stack.OnLatitudeStart(lat); err != nil {
			return &RenderEngineError{Method: "onLatitudeStart", Err: err}
		}
		for c := 0; c < g.Columns(); c++ {
			if err := p.Stack.OnModelPoint(lat, bounds.West+float64(c)*lonRes); err != nil {
				return &RenderEngineError{Method: "onModelPoint", Err: err}
			}
		}
		if err := p.Stack.OnLatitudeEnd(lat); err != nil {
			return &RenderEngineError{Method: "onLatitudeEnd", Err: err}
		}
	}
	return nil
}

// renderPass draws the filled grid. It stops early when cancelled and
// reports the image as partial.
func (b *Builder) renderPass(ctx context.Context) (*image.RGBA, bool, error) {
	mc := b.model
	o := mc.Options
	dims := mc.Dimensions()
	aa := max(1, o.Antialias)
	width, height := dims.OutputWidth*aa, dims.OutputHeight*aa
	bounds := b.root.Bounds()

	v, err := view.New(o, bounds, width, height, mc.Planet().MeanRadiusMeters())
	if err != nil {
		return nil, false, err
	}
	fb := framebuffer.New(width, height, len(b.programs), o.BackgroundColor)
	r := &render.ModelRenderer{
		Grid:                b.root,
		View:                v,
		Target:              fb,
		Bounds:              bounds,
		LatitudeResolution:  dims.ModelLatitudeResolution / float64(aa),
		LongitudeResolution: dims.ModelLongitudeResolution / float64(aa),
		Rows:                dims.ModelRows * aa,
		Columns:             dims.ModelColumns * aa,
	}

	partial := false
	for row := 0; row < r.Rows; row++ {
		if err := b.interrupter.check(ctx); err != nil {
			log.Printf("%s: render pass stopped at row %d: %v", mc.ID(), row, err)
			partial = true
			break
		}
		r.RenderRow(row)
		for _, l := range b.listeners {
			l.OnTileCompleted(row, r.Rows)
		}
	}

	img := fb.Capture()
	if aa > 1 {
		img = downsample(img, dims.OutputWidth, dims.OutputHeight)
	}
	return img, partial, nil
}

func downsample(img *image.RGBA, width, height int) *image.RGBA {
	small := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), small, small.Bounds().Min, draw.Src)
	return out
}

func (b *Builder) disposePrograms() {
	for _, p := range b.programs {
		if err := p.Stack.Dispose(); err != nil {
			log.Printf("%s: %v", b.model.ID(), err)
		}
		if err := p.Grid.Dispose(); err != nil {
			log.Printf("%s: %v", b.model.ID(), err)
		}
	}
	b.programs = nil
}

func (b *Builder) disposeGrid() {
	if b.root == nil {
		return
	}
	if err := b.root.Dispose(); err != nil {
		log.Printf("%s: failed to dispose model grid: %v", b.model.ID(), err)
	}
	b.root = nil
}

// Dispose releases the model grid if it is still held.
func (b *Builder) Dispose() {
	b.disposeGrid()
}
