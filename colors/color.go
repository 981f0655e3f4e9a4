package colors

import "image/color"

// Color4 is a linear RGBA color with float64 components, nominally in [0,1].
// Intermediate results may leave that range; conversions clamp.
type Color4 struct {
	R, G, B, A float64
}

func New(r, g, b, a float64) Color4 {
	return Color4{R: r, G: g, B: b, A: a}
}

func Black() Color4 {
	return Color4{R: 0, G: 0, B: 0, A: 1}
}

// RGBA implements color.Color with alpha-premultiplied 16-bit channels.
func (c Color4) RGBA() (r, g, b, a uint32) {
	af := clamp01(c.A)
	return uint32(clamp01(c.R) * af * 65535),
		uint32(clamp01(c.G) * af * 65535),
		uint32(clamp01(c.B) * af * 65535),
		uint32(af * 65535)
}

func FromStandardColor(c color.Color) Color4 {
	if c4, ok := c.(Color4); ok {
		return c4
	}

	r16, g16, b16, a16 := c.RGBA()
	if a16 == 0 {
		return Color4{}
	}

	// de-premultiply
	inv := 1.0 / float64(a16)
	return Color4{
		R: float64(r16) * inv,
		G: float64(g16) * inv,
		B: float64(b16) * inv,
		A: float64(a16) / 65535.0,
	}
}

func From8BitRgb(r, g, b, a byte) Color4 {
	return Color4{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
		A: float64(a) / 255.0,
	}
}

// Add returns c + o (component-wise).
func (c Color4) Add(o Color4) Color4 {
	return Color4{c.R + o.R, c.G + o.G, c.B + o.B, c.A + o.A}
}

// Mul returns c * o (component-wise).
func (c Color4) Mul(o Color4) Color4 {
	return Color4{c.R * o.R, c.G * o.G, c.B * o.B, c.A * o.A}
}

// Scale returns c * s (scalar).
func (c Color4) Scale(s float64) Color4 {
	return Color4{c.R * s, c.G * s, c.B * s, c.A * s}
}

// Mix returns lerp(c, o, t) = c*(1-t) + o*t.
func (c Color4) Mix(o Color4, t float64) Color4 {
	return Color4{
		R: c.R*(1-t) + o.R*t,
		G: c.G*(1-t) + o.G*t,
		B: c.B*(1-t) + o.B*t,
		A: c.A*(1-t) + o.A*t,
	}
}

func (c Color4) WithAlpha(a float64) Color4 {
	c.A = a
	return c
}

// BoostSaturation pushes RGB away from their mean by factor.
func (c Color4) BoostSaturation(factor float64) Color4 {
	avg := (c.R + c.G + c.B) / 3
	return Color4{
		R: avg + (c.R-avg)*factor,
		G: avg + (c.G-avg)*factor,
		B: avg + (c.B-avg)*factor,
		A: c.A,
	}
}

func (c Color4) CompositeOverBlack() Color4 {
	return Color4{c.R * c.A, c.G * c.A, c.B * c.A, 1.0}
}

// ToNRGBA converts to 8-bit channels, clamping and truncating.
func (c Color4) ToNRGBA() color.NRGBA {
	return color.NRGBA{
		R: to8bit(c.R),
		G: to8bit(c.G),
		B: to8bit(c.B),
		A: to8bit(c.A),
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func to8bit(x float64) uint8 {
	return uint8(255.0 * clamp01(x))
}
