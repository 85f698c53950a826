package soft

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/bloom/gpucore"
)

// minW rejects triangles that touch or cross the camera plane. The scene
// never does, so there is no clipper.
const minW = 1e-6

type clipVertex struct {
	pos mgl32.Vec4
	v   Varyings
}

type screenVertex struct {
	x, y, z float32
	invW    float32
}

func edge(a, b screenVertex, cx, cy float32) float32 {
	return (cx-a.x)*(b.y-a.y) - (cy-a.y)*(b.x-a.x)
}

func depthPasses(fn gpucore.CompareFunc, d, stored float32) bool {
	switch fn {
	case gpucore.CompareLess:
		return d < stored
	case gpucore.CompareAlways:
		return true
	default:
		return d <= stored
	}
}

// rasterizer shades the triangles of one draw call into a surface.
type rasterizer struct {
	target   *surface
	state    gpucore.PassState
	fragment FragmentKernel
	samplers Samplers
	inputs   int

	fragments int
}

func (r *rasterizer) toScreen(c clipVertex) screenVertex {
	inv := 1 / c.pos[3]
	return screenVertex{
		x:    (c.pos[0]*inv + 1) * 0.5 * float32(r.target.width),
		y:    (c.pos[1]*inv + 1) * 0.5 * float32(r.target.height),
		z:    (c.pos[2]*inv + 1) * 0.5,
		invW: inv,
	}
}

// triangle fills pixels whose centers lie inside or on the edges of the
// triangle, either winding.
func (r *rasterizer) triangle(tri [3]clipVertex) bool {
	for _, c := range tri {
		if c.pos[3] <= minW {
			return false
		}
	}
	p0, p1, p2 := r.toScreen(tri[0]), r.toScreen(tri[1]), r.toScreen(tri[2])
	area := edge(p0, p1, p2.x, p2.y)
	if area == 0 {
		return false
	}

	t := r.target
	minX := max(0, int(math32.Floor(min(p0.x, p1.x, p2.x))))
	maxX := min(t.width-1, int(math32.Ceil(max(p0.x, p1.x, p2.x))))
	minY := max(0, int(math32.Floor(min(p0.y, p1.y, p2.y))))
	maxY := min(t.height-1, int(math32.Ceil(max(p0.y, p1.y, p2.y))))

	var v Varyings
	for py := minY; py <= maxY; py++ {
		cy := float32(py) + 0.5
		for px := minX; px <= maxX; px++ {
			cx := float32(px) + 0.5
			w0 := edge(p1, p2, cx, cy)
			w1 := edge(p2, p0, cx, cy)
			w2 := edge(p0, p1, cx, cy)
			if area > 0 && (w0 < 0 || w1 < 0 || w2 < 0) {
				continue
			}
			if area < 0 && (w0 > 0 || w1 > 0 || w2 > 0) {
				continue
			}
			b0, b1, b2 := w0/area, w1/area, w2/area

			depth := b0*p0.z + b1*p1.z + b2*p2.z
			if depth < 0 || depth > 1 {
				continue
			}
			di := py*t.width + px
			if r.state.DepthTest && !depthPasses(r.state.DepthFunc, depth, t.depth[di]) {
				continue
			}

			// Perspective-correct weights.
			q0, q1, q2 := b0*p0.invW, b1*p1.invW, b2*p2.invW
			norm := 1 / (q0 + q1 + q2)
			q0, q1, q2 = q0*norm, q1*norm, q2*norm
			for i := 0; i < r.inputs; i++ {
				v[i] = q0*tri[0].v[i] + q1*tri[1].v[i] + q2*tri[2].v[i]
			}

			t.set(px, py, r.fragment.Run(&v, r.samplers))
			if r.state.DepthTest {
				t.depth[di] = depth
			}
			r.fragments++
		}
	}
	return true
}

// assemble walks the vertex stream as triangles of the given topology.
func assemble(topology gpucore.Topology, n int, emit func(a, b, c int)) {
	switch topology {
	case gpucore.TriangleStrip:
		for i := 0; i+2 < n; i++ {
			emit(i, i+1, i+2)
		}
	default:
		for i := 0; i+2 < n; i += 3 {
			emit(i, i+1, i+2)
		}
	}
}
