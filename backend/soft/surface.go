package soft

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/bloom"
)

// surface is an RGBA8 color buffer with a float depth buffer. Row 0 is the
// bottom row, as in GL.
type surface struct {
	width, height int
	color         []uint8
	depth         []float32
}

func newSurface(width, height int) *surface {
	return &surface{
		width:  width,
		height: height,
		color:  make([]uint8, width*height*4),
		depth:  make([]float32, width*height),
	}
}

// Size implements Texture.
func (s *surface) Size() (int, int) {
	return s.width, s.height
}

func (s *surface) clear(c [4]float32, depth float32) {
	px := [4]uint8{bloom.To8(c[0]), bloom.To8(c[1]), bloom.To8(c[2]), bloom.To8(c[3])}
	for i := 0; i < len(s.color); i += 4 {
		copy(s.color[i:i+4], px[:])
	}
	for i := range s.depth {
		s.depth[i] = depth
	}
}

func (s *surface) set(x, y int, c bloom.RGBA) {
	i := (y*s.width + x) * 4
	s.color[i] = bloom.To8(c.R)
	s.color[i+1] = bloom.To8(c.G)
	s.color[i+2] = bloom.To8(c.B)
	s.color[i+3] = bloom.To8(c.A)
}

// texel reads a pixel with clamp-to-edge addressing.
func (s *surface) texel(x, y int) bloom.RGBA {
	x = min(max(x, 0), s.width-1)
	y = min(max(y, 0), s.height-1)
	i := (y*s.width + x) * 4
	return bloom.FromBytes(s.color[i], s.color[i+1], s.color[i+2], s.color[i+3])
}

// Sample implements Texture with bilinear filtering and clamp-to-edge
// wrapping. v = 0 is the bottom row.
func (s *surface) Sample(u, v float32) bloom.RGBA {
	if s.width == 0 || s.height == 0 {
		return bloom.Black
	}
	x := u*float32(s.width) - 0.5
	y := v*float32(s.height) - 0.5
	x0, y0 := math32.Floor(x), math32.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)
	bottom := s.texel(ix, iy).Lerp(s.texel(ix+1, iy), fx)
	top := s.texel(ix, iy+1).Lerp(s.texel(ix+1, iy+1), fx)
	return bottom.Lerp(top, fy)
}
