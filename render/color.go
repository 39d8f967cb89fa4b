package render

import "github.com/lucasb-eyer/go-colorful"

// rgb is a weighted color. Colors are mixed by adding scaled values and
// dividing by the summed weight.
type rgb struct {
	r float64
	g float64
	b float64
	a float64
	w float64
}

func (c rgb) scale(s float64) rgb {
	return rgb{
		r: c.r * s,
		g: c.g * s,
		b: c.b * s,
		a: c.a * s,
		w: c.w * s,
	}
}

func (c rgb) add(c2 rgb) rgb {
	return rgb{
		r: c.r + c2.r,
		g: c.g + c2.g,
		b: c.b + c2.b,
		a: c.a + c2.a,
		w: c.w + c2.w,
	}
}

func (c rgb) normalize() rgb {
	if c.w == 0 {
		return rgb{}
	}
	return rgb{
		c.r / c.w,
		c.g / c.w,
		c.b / c.w,
		c.a / c.w,
		1,
	}
}

func channel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func (c rgb) rgba() [4]uint8 {
	n := c.normalize()
	return [4]uint8{channel(n.r), channel(n.g), channel(n.b), channel(n.a)}
}

func fromColorful(c colorful.Color) rgb {
	c = c.Clamped()
	return rgb{255 * c.R, 255 * c.G, 255 * c.B, 255, 1}
}

func fromRgba(c [4]uint8) rgb {
	return rgb{float64(c[0]), float64(c[1]), float64(c[2]), float64(c[3]), 1}
}

var (
	green = rgb{24, 161, 61, 255, 1}
	blue  = rgb{76, 150, 224, 255, 1}
	black = rgb{0, 0, 0, 255, 1}
)
