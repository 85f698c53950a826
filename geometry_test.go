package bloom

import (
	"errors"
	"math"
	"testing"
)

func TestCircle_Counts(t *testing.T) {
	for _, n := range []int{3, 4, 7, 60, 360} {
		g, err := Circle(1, n, 0, 0)
		if err != nil {
			t.Fatalf("Circle(1, %d) error = %v", n, err)
		}
		if got := g.NumVertices(); got != n+1 {
			t.Errorf("n=%d: NumVertices() = %d, want %d", n, got, n+1)
		}
		if got := len(g.Indices); got != 3*n {
			t.Errorf("n=%d: len(Indices) = %d, want %d", n, got, 3*n)
		}
		if got := g.VertexCount(); got != 3*n {
			t.Errorf("n=%d: VertexCount() = %d, want %d", n, got, 3*n)
		}
		for i := range n {
			tri := g.Indices[3*i : 3*i+3]
			want := [3]uint16{uint16(n), uint16(i), uint16((i + 1) % n)}
			if [3]uint16(tri) != want {
				t.Errorf("n=%d: triangle %d = %v, want %v", n, i, tri, want)
			}
		}
		if err := g.Validate(); err != nil {
			t.Errorf("n=%d: Validate() = %v", n, err)
		}
	}
}

func TestCircle_Vertices(t *testing.T) {
	g, err := Circle(2, 4, 0.5, -0.5)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{
		0.5, 1.5, // angle 0 points up
		2.5, -0.5,
		0.5, -2.5,
		-1.5, -0.5,
		0.5, -0.5, // center
	}
	for i := range want {
		if math.Abs(float64(g.Positions[i]-want[i])) > 1e-5 {
			t.Errorf("Positions[%d] = %v, want %v", i, g.Positions[i], want[i])
		}
	}
	center := g.Colors[len(g.Colors)-4:]
	for i, c := range center {
		if c != 1 {
			t.Errorf("center color[%d] = %v, want 1", i, c)
		}
	}
	if tc := g.TexCoords[len(g.TexCoords)-2:]; tc[0] != 0.5 || tc[1] != 0.5 {
		t.Errorf("center texcoord = %v, want [0.5 0.5]", tc)
	}
}

func TestCircle_TexCoordsInUnitSquare(t *testing.T) {
	g := DefaultCircle()
	for i := 0; i < len(g.TexCoords); i += 2 {
		u, v := g.TexCoords[i], g.TexCoords[i+1]
		if u < 0 || u > 1 || v < 0 || v > 1 {
			t.Fatalf("texcoord %d = (%v, %v), outside [0,1]^2", i/2, u, v)
		}
		if i/2 < DefaultSegments {
			// Perimeter colors reuse the texture mapping.
			c := g.Colors[i*2 : i*2+4]
			if c[0] != u || c[1] != v || c[2] != 1 || c[3] != 1 {
				t.Fatalf("color %d = %v, want (%v, %v, 1, 1)", i/2, c, u, v)
			}
		}
	}
}

func TestCircle_TooFewSegments(t *testing.T) {
	for _, n := range []int{-1, 0, 1, 2} {
		if _, err := Circle(1, n, 0, 0); !errors.Is(err, ErrTooFewSegments) {
			t.Errorf("Circle(1, %d) error = %v, want ErrTooFewSegments", n, err)
		}
	}
}

func TestQuads(t *testing.T) {
	q := Quad()
	if q.VertexCount() != 4 || q.Indices != nil {
		t.Errorf("Quad: VertexCount() = %d, indexed = %v; want 4 vertices as a strip", q.VertexCount(), q.Indices != nil)
	}
	if err := q.Validate(); err != nil {
		t.Errorf("Quad.Validate() = %v", err)
	}

	s := ScreenQuad()
	if s.Colors != nil {
		t.Error("ScreenQuad should carry no colors")
	}
	// Bottom-left corner samples texture origin.
	if s.Positions[4] != -1 || s.Positions[5] != -1 || s.TexCoords[4] != 0 || s.TexCoords[5] != 0 {
		t.Errorf("bottom-left vertex = (%v,%v) uv (%v,%v), want (-1,-1) uv (0,0)",
			s.Positions[4], s.Positions[5], s.TexCoords[4], s.TexCoords[5])
	}

	si := ScreenQuadIndexed()
	if si.VertexCount() != 6 {
		t.Errorf("ScreenQuadIndexed VertexCount() = %d, want 6", si.VertexCount())
	}
	if err := si.Validate(); err != nil {
		t.Errorf("ScreenQuadIndexed.Validate() = %v", err)
	}
}

func TestGeometryData_Validate(t *testing.T) {
	tests := []struct {
		name string
		g    GeometryData
	}{
		{"empty", GeometryData{}},
		{"odd positions", GeometryData{Positions: []float32{0, 0, 1}}},
		{"short colors", GeometryData{Positions: []float32{0, 0, 1, 1}, Colors: []float32{1, 1, 1, 1}}},
		{"long texcoords", GeometryData{Positions: []float32{0, 0}, TexCoords: []float32{0, 0, 1, 1}}},
		{"partial triangle", GeometryData{Positions: []float32{0, 0, 1, 1, 1, 0}, Indices: []uint16{0, 1}}},
		{"index out of range", GeometryData{Positions: []float32{0, 0, 1, 1, 1, 0}, Indices: []uint16{0, 1, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.g.Validate(); !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("Validate() = %v, want ErrInvalidGeometry", err)
			}
		})
	}
}
