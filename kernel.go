package bloom

// BlurTaps is the number of samples of the separable Gaussian blur.
const BlurTaps = 9

// BlurWeights are the 9-tap Gaussian weights, center at index 4.
var BlurWeights = [BlurTaps]float32{
	0.0162162162,
	0.0540540541,
	0.1216216216,
	0.1945945946,
	0.2270270270,
	0.1945945946,
	0.1216216216,
	0.0540540541,
	0.0162162162,
}

// BlurStep is the distance between taps in texels.
const BlurStep = 2

// BlurOffset returns the texture-space offset of tap i (0..8) for a texture
// dimension of size texels.
func BlurOffset(i, size int) float32 {
	return float32(i-BlurTaps/2) * BlurStep / float32(size)
}

// Axis selects the direction of a blur pass.
type Axis uint8

const (
	// Horizontal blurs along u.
	Horizontal Axis = iota
	// Vertical blurs along v.
	Vertical
)

// String returns the axis name.
func (a Axis) String() string {
	if a == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Blur applies the 9-tap kernel to sample around (u, v). size is the
// texture dimension along the blur axis.
func Blur(sample func(u, v float32) RGBA, u, v float32, size int, axis Axis) RGBA {
	var out RGBA
	for i, w := range BlurWeights {
		off := BlurOffset(i, size)
		var c RGBA
		if axis == Horizontal {
			c = sample(u+off, v)
		} else {
			c = sample(u, v+off)
		}
		out = out.Add(c.Scale(w))
	}
	return out
}
