package bloom

import (
	"image/color"

	"github.com/chewxy/math32"
)

// RGBA represents a color with red, green, blue and alpha components.
// Each component is in the range [0, 1].
type RGBA struct {
	R, G, B, A float32
}

// RGB creates an opaque color from RGB components.
func RGB(r, g, b float32) RGBA {
	return RGBA{R: r, G: g, B: b, A: 1}
}

// Color converts RGBA to the standard color.Color interface.
func (c RGBA) Color() color.Color {
	return color.NRGBA{R: To8(c.R), G: To8(c.G), B: To8(c.B), A: To8(c.A)}
}

// FromBytes converts an 8-bit RGBA texel to RGBA.
func FromBytes(r, g, b, a uint8) RGBA {
	return RGBA{R: float32(r) / 255, G: float32(g) / 255, B: float32(b) / 255, A: float32(a) / 255}
}

// To8 converts a normalized component to an 8-bit value, clamping and
// rounding the way an RGBA8 color attachment stores it.
func To8(x float32) uint8 {
	return uint8(Clamp01(x)*255 + 0.5)
}

// Clamp01 restricts x to [0, 1].
func Clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Add returns the componentwise sum.
func (c RGBA) Add(o RGBA) RGBA {
	return RGBA{R: c.R + o.R, G: c.G + o.G, B: c.B + o.B, A: c.A + o.A}
}

// Scale multiplies every component, alpha included, by s.
func (c RGBA) Scale(s float32) RGBA {
	return RGBA{R: c.R * s, G: c.G * s, B: c.B * s, A: c.A * s}
}

// Lerp performs linear interpolation between two colors.
func (c RGBA) Lerp(other RGBA, t float32) RGBA {
	return RGBA{
		R: c.R + (other.R-c.R)*t,
		G: c.G + (other.G-c.G)*t,
		B: c.B + (other.B-c.B)*t,
		A: c.A + (other.A-c.A)*t,
	}
}

// Lightness returns the HSL lightness (min+max)/2 of the RGB channels.
func (c RGBA) Lightness() float32 {
	lo := math32.Min(c.R, math32.Min(c.G, c.B))
	hi := math32.Max(c.R, math32.Max(c.G, c.B))
	return (lo + hi) / 2
}

// Threshold edges of the bright-pass gate.
const (
	ThresholdLow  float32 = 0.5
	ThresholdHigh float32 = 0.7
)

// Smoothstep is the GLSL smoothstep: 0 below e0, 1 above e1 and a cubic
// Hermite ramp in between.
func Smoothstep(e0, e1, x float32) float32 {
	t := Clamp01((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}

// Threshold keeps the bright part of c: RGB is scaled by
// smoothstep(0.5, 0.7, lightness) and alpha is left untouched.
func Threshold(c RGBA) RGBA {
	k := Smoothstep(ThresholdLow, ThresholdHigh, c.Lightness())
	return RGBA{R: c.R * k, G: c.G * k, B: c.B * k, A: c.A}
}

// QuantizeLevels is the number of color steps produced by the scene program.
const QuantizeLevels = 8

// Quantize rounds every component, alpha included, up to the next multiple
// of 1/levels.
func Quantize(c RGBA, levels int) RGBA {
	n := float32(levels)
	q := func(x float32) float32 { return math32.Ceil(x*n) / n }
	return RGBA{R: q(c.R), G: q(c.G), B: q(c.B), A: q(c.A)}
}

// ScreenBlend composites b over a with 1-(1-a)(1-b) per RGB channel. The
// result is always opaque.
func ScreenBlend(a, b RGBA) RGBA {
	s := func(x, y float32) float32 { return 1 - (1-x)*(1-y) }
	return RGBA{R: s(a.R, b.R), G: s(a.G, b.G), B: s(a.B, b.B), A: 1}
}

// Common colors.
var (
	Black = RGB(0, 0, 0)
	White = RGB(1, 1, 1)
	Red   = RGB(1, 0, 0)
	Green = RGB(0, 1, 0)
	Blue  = RGB(0, 0, 1)
)

// ClearColor is the color every pass clears its target to.
var ClearColor = Black
