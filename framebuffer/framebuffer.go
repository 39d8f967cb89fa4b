// Package framebuffer collects depth tested pixel writes into an image.
//
// Image rows are divided between a number of partial buffers. Each partial
// buffer is owned by one goroutine, which applies the writes routed to it.
// Finish drains the goroutines and merges the partial buffers into the
// final image.
package framebuffer

import (
	"image"
	"image/color"
	"math"
	"sync"
)

// batchSize is the number of writes sent to a partial buffer at once.
const batchSize = 1024

type pixel struct {
	x, y int
	z    float64
	rgba [4]uint8
}

// partial holds every n-th row of the image, starting at row offset.
type partial struct {
	width  int
	offset int
	n      int
	depth  []float64
	rgba   []uint8
	writes chan []pixel
}

func newPartial(width, height, offset, n int) *partial {
	rows := 0
	if offset < height {
		rows = (height-offset+n-1)/n
	}
	p := &partial{
		width:  width,
		offset: offset,
		n:      n,
		depth:  make([]float64, width*rows),
		rgba:   make([]uint8, 4*width*rows),
		writes: make(chan []pixel, 4),
	}
	for i := range p.depth {
		p.depth[i] = math.Inf(-1)
	}
	return p
}

func (p *partial) index(x, y int) int {
	return (y-p.offset)/p.n*p.width + x
}

// run applies writes until the channel is closed.
func (p *partial) run() {
	for batch := range p.writes {
		for _, px := range batch {
			i := p.index(px.x, px.y)
			if px.z <= p.depth[i] {
				continue
			}
			p.depth[i] = px.z
			copy(p.rgba[4*i:4*i+4], px.rgba[:])
		}
	}
}

// Controller routes pixel writes to the partial buffers. Set and Finish must
// be called from one goroutine.
type Controller struct {
	width      int
	height     int
	background [4]uint8
	partials   []*partial
	pending    [][]pixel
	wg         sync.WaitGroup
	finished   bool
	img        *image.RGBA
}

// New starts a controller for a width x height image with n partial
// buffers.
func New(width, height, n int, background [4]uint8) *Controller {
	n = max(1, min(n, height))
	c := &Controller{
		width:      width,
		height:     height,
		background: background,
		pending:    make([][]pixel, n),
	}
	for i := 0; i < n; i++ {
		p := newPartial(width, height, i, n)
		c.partials = append(c.partials, p)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			p.run()
		}()
	}
	return c
}

func (c *Controller) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.width, c.height)
}

// Set writes rgba at x, y unless a pixel with a larger depth z is already
// there. Writes outside the image and writes after Finish are dropped.
func (c *Controller) Set(x, y int, z float64, rgba [4]uint8) {
	if c.finished || x < 0 || y < 0 || x >= c.width || y >= c.height || math.IsNaN(z) {
		return
	}
	i := y % len(c.partials)
	c.pending[i] = append(c.pending[i], pixel{x: x, y: y, z: z, rgba: rgba})
	if len(c.pending[i]) >= batchSize {
		c.flush(i)
	}
}

func (c *Controller) flush(i int) {
	if len(c.pending[i]) == 0 {
		return
	}
	c.partials[i].writes <- c.pending[i]
	c.pending[i] = nil
}

// Flush sends every pending write to its partial buffer.
func (c *Controller) Flush() {
	if c.finished {
		return
	}
	for i := range c.pending {
		c.flush(i)
	}
}

// Finish waits for every partial buffer and merges them into the final
// image. Pixels without a write get the background color.
func (c *Controller) Finish() {
	if c.finished {
		return
	}
	c.Flush()
	c.finished = true
	for _, p := range c.partials {
		close(p.writes)
	}
	c.wg.Wait()

	img := image.NewRGBA(c.Bounds())
	depth := make([]float64, c.width*c.height)
	bg := color.RGBA{c.background[0], c.background[1], c.background[2], c.background[3]}
	for i := range depth {
		depth[i] = math.Inf(-1)
	}
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			img.SetRGBA(x, y, bg)
		}
	}
	for _, p := range c.partials {
		for y := p.offset; y < c.height; y += p.n {
			for x := 0; x < c.width; x++ {
				i := p.index(x, y)
				if p.depth[i] <= depth[y*c.width+x] {
					continue
				}
				depth[y*c.width+x] = p.depth[i]
				img.SetRGBA(x, y, color.RGBA{p.rgba[4*i], p.rgba[4*i+1], p.rgba[4*i+2], p.rgba[4*i+3]})
			}
		}
	}
	c.partials = nil
	c.img = img
}

// Capture returns the final image, finishing the controller first.
func (c *Controller) Capture() *image.RGBA {
	c.Finish()
	return c.img
}
