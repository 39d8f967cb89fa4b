package render

import (
	"image"
	"math"
)

// Target receives rasterized pixels.
type Target interface {
	Bounds() image.Rectangle
	Set(x, y int, z float64, rgba [4]uint8)
}

type vertex struct {
	x, y, z float64
}

func edgeFn(p, q vertex, x, y float64) float64 {
	return (q.x-p.x)*(y-p.y) - (q.y-p.y)*(x-p.x)
}

// edge evaluates the edge p-q at x, y. The two directions of an edge give
// exactly opposite values.
func edge(p, q vertex, x, y float64) float64 {
	if p.x > q.x || (p.x == q.x && p.y > q.y) {
		return -edgeFn(q, p, x, y)
	}
	return edgeFn(p, q, x, y)
}

// owns reports whether pixels lying exactly on the edge p-q are drawn. Of
// the two triangles sharing an edge exactly one owns it.
func owns(p, q vertex) bool {
	dy := q.y - p.y
	return dy < 0 || (dy == 0 && q.x > p.x)
}

func inside(w float64, p, q vertex) bool {
	return w > 0 || (w == 0 && owns(p, q))
}

// fillTriangle draws the pixels whose centres are inside the triangle with
// depth interpolated between the vertices.
func fillTriangle(t Target, a, b, c vertex, rgba [4]uint8) {
	area := edge(a, b, c.x, c.y)
	if area == 0 || math.IsNaN(area) {
		return
	}
	if area < 0 {
		b, c = c, b
		area = -area
	}

	r := t.Bounds()
	minX := max(r.Min.X, int(math.Floor(min(a.x, b.x, c.x))))
	maxX := min(r.Max.X-1, int(math.Ceil(max(a.x, b.x, c.x))))
	minY := max(r.Min.Y, int(math.Floor(min(a.y, b.y, c.y))))
	maxY := min(r.Max.Y-1, int(math.Ceil(max(a.y, b.y, c.y))))

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(b, c, px, py)
			w1 := edge(c, a, px, py)
			w2 := edge(a, b, px, py)
			if !inside(w0, b, c) || !inside(w1, c, a) || !inside(w2, a, b) {
				continue
			}
			z := (w0*a.z + w1*b.z + w2*c.z) / area
			t.Set(x, y, z, rgba)
		}
	}
}
