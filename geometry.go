package bloom

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// Geometry errors.
var (
	// ErrTooFewSegments is returned when a circle has fewer than 3 segments.
	ErrTooFewSegments = errors.New("bloom: circle needs at least 3 segments")

	// ErrInvalidGeometry is returned by GeometryData.Validate.
	ErrInvalidGeometry = errors.New("bloom: invalid geometry")
)

// Default circle parameters.
const (
	DefaultRadius   float32 = 1
	DefaultSegments         = 60
)

// GeometryData holds the vertex arrays of one shape.
//
// Positions are xy pairs. Colors (RGBA) and TexCoords (uv) are optional and,
// when present, describe the same vertices. Indices form a triangle list;
// without them the shape is drawn as a triangle strip.
type GeometryData struct {
	Positions []float32
	Colors    []float32
	TexCoords []float32
	Indices   []uint16
}

// NumVertices returns the number of vertices described by Positions.
func (g GeometryData) NumVertices() int {
	return len(g.Positions) / 2
}

// VertexCount returns the number of elements a draw call consumes: the
// index count for indexed geometry, the vertex count otherwise.
func (g GeometryData) VertexCount() int {
	if g.Indices != nil {
		return len(g.Indices)
	}
	return g.NumVertices()
}

// Validate checks array lengths and index bounds.
func (g GeometryData) Validate() error {
	if len(g.Positions) == 0 || len(g.Positions)%2 != 0 {
		return fmt.Errorf("%w: %d position floats", ErrInvalidGeometry, len(g.Positions))
	}
	n := g.NumVertices()
	if g.Colors != nil && len(g.Colors) != n*4 {
		return fmt.Errorf("%w: %d color floats for %d vertices", ErrInvalidGeometry, len(g.Colors), n)
	}
	if g.TexCoords != nil && len(g.TexCoords) != n*2 {
		return fmt.Errorf("%w: %d texcoord floats for %d vertices", ErrInvalidGeometry, len(g.TexCoords), n)
	}
	if len(g.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a triangle list", ErrInvalidGeometry, len(g.Indices))
	}
	for i, idx := range g.Indices {
		if int(idx) >= n {
			return fmt.Errorf("%w: index %d at %d out of range [0,%d)", ErrInvalidGeometry, idx, i, n)
		}
	}
	return nil
}

// Circle approximates a circle with a triangle fan of n segments.
//
// Perimeter vertex i sits at angle i*2pi/n measured from +y towards +x. The
// center vertex is appended last (index n) and every triangle is
// (n, i, (i+1) mod n).
func Circle(radius float32, n int, offX, offY float32) (GeometryData, error) {
	if n < 3 {
		return GeometryData{}, fmt.Errorf("%w: got %d", ErrTooFewSegments, n)
	}
	if n+1 > 1<<16 {
		return GeometryData{}, fmt.Errorf("%w: %d segments overflow 16-bit indices", ErrInvalidGeometry, n)
	}

	g := GeometryData{
		Positions: make([]float32, 0, (n+1)*2),
		Colors:    make([]float32, 0, (n+1)*4),
		TexCoords: make([]float32, 0, (n+1)*2),
		Indices:   make([]uint16, 0, n*3),
	}
	for i := range n {
		angle := float32(i) * 2 * math32.Pi / float32(n)
		dx, dy := math32.Sin(angle), math32.Cos(angle)
		u, v := (dx+1)/2, (dy+1)/2
		g.Positions = append(g.Positions, offX+dx*radius, offY+dy*radius)
		g.TexCoords = append(g.TexCoords, u, v)
		g.Colors = append(g.Colors, u, v, 1, 1)
	}

	g.Positions = append(g.Positions, offX, offY)
	g.Colors = append(g.Colors, 1, 1, 1, 1)
	g.TexCoords = append(g.TexCoords, 0.5, 0.5)

	center := uint16(n)
	for i := range n {
		g.Indices = append(g.Indices, center, uint16(i), uint16((i+1)%n))
	}
	return g, nil
}

// DefaultCircle returns a unit circle with 60 segments centered at the origin.
func DefaultCircle() GeometryData {
	g, _ := Circle(DefaultRadius, DefaultSegments, 0, 0)
	return g
}

// quadPositions are the corners in triangle strip order.
var quadPositions = []float32{
	-1, 1,
	1, 1,
	-1, -1,
	1, -1,
}

// Quad returns the color quad: white, red, green and blue corners drawn as
// a 4-vertex triangle strip.
func Quad() GeometryData {
	return GeometryData{
		Positions: append([]float32(nil), quadPositions...),
		Colors: []float32{
			1, 1, 1, 1,
			1, 0, 0, 1,
			0, 1, 0, 1,
			0, 0, 1, 1,
		},
	}
}

// ScreenQuad returns the surface-filling quad used by full-screen passes.
// Texture (0,0) maps to the bottom-left corner.
func ScreenQuad() GeometryData {
	return GeometryData{
		Positions: append([]float32(nil), quadPositions...),
		TexCoords: []float32{
			0, 1,
			1, 1,
			0, 0,
			1, 0,
		},
	}
}

// ScreenQuadIndexed is ScreenQuad drawn as two indexed triangles. The
// triangles share the top-right to bottom-left diagonal, same as the strip.
func ScreenQuadIndexed() GeometryData {
	g := ScreenQuad()
	g.Indices = []uint16{0, 1, 2, 2, 1, 3}
	return g
}
