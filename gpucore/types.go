package gpucore

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Resource IDs
//
// These opaque IDs represent device resources. Each Device implementation
// maintains a mapping between IDs and actual backend resources.
// IDs are uint64 to accommodate various backend handle sizes.

// BufferID is an opaque handle to a vertex or index buffer.
type BufferID uint64

// TextureID is an opaque handle to a texture.
type TextureID uint64

// FramebufferID is an opaque handle to a framebuffer.
type FramebufferID uint64

// ShaderID is an opaque handle to a compiled shader stage.
type ShaderID uint64

// ProgramID is an opaque handle to a linked program.
type ProgramID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// ScreenFramebuffer is the framebuffer of the visible surface. Like the
// OpenGL default framebuffer it always exists and is never destroyed.
const ScreenFramebuffer FramebufferID = 0

// BufferUsage specifies how a buffer will be bound.
type BufferUsage uint32

// Buffer usages.
const (
	// BufferUsageVertex marks a buffer holding float32 vertex attributes.
	BufferUsageVertex BufferUsage = 1 << iota

	// BufferUsageIndex marks a buffer holding uint16 triangle indices.
	BufferUsageIndex
)

// String returns the usage name.
func (u BufferUsage) String() string {
	switch u {
	case BufferUsageVertex:
		return "vertex"
	case BufferUsageIndex:
		return "index"
	default:
		return fmt.Sprintf("BufferUsage(%d)", uint32(u))
	}
}

// Location is a resolved attribute or uniform location that may be absent.
// The zero value is absent.
type Location struct {
	index int32
	ok    bool
}

// NoLocation is the absent location.
var NoLocation = Location{}

// At returns a present location. Negative indices are absent, matching the
// -1 that OpenGL returns for unknown names.
func At(index int32) Location {
	if index < 0 {
		return NoLocation
	}
	return Location{index: index, ok: true}
}

// Get returns the index and whether the location is present.
func (l Location) Get() (int32, bool) {
	return l.index, l.ok
}

// Present reports whether the location resolved.
func (l Location) Present() bool {
	return l.ok
}

// Index returns the location index, or -1 if absent.
func (l Location) Index() int32 {
	if !l.ok {
		return -1
	}
	return l.index
}

// String returns the index or "none".
func (l Location) String() string {
	if !l.ok {
		return "none"
	}
	return fmt.Sprintf("%d", l.index)
}

// Stage identifies a shader stage.
type Stage uint8

// Shader stages.
const (
	StageVertex Stage = iota
	StageFragment
)

// String returns the stage name.
func (s Stage) String() string {
	if s == StageFragment {
		return "fragment"
	}
	return "vertex"
}

// ShaderSource is one shader stage in every dialect a backend may consume.
// Name identifies the stage; the CPU device uses it to select a kernel.
type ShaderSource struct {
	Name string
	GLSL string
	WGSL string
}

// Topology selects how vertices form triangles.
type Topology uint8

// Topologies.
const (
	// TriangleList consumes indices three at a time.
	TriangleList Topology = iota
	// TriangleStrip forms a triangle from every three consecutive vertices.
	TriangleStrip
)

// String returns the topology name.
func (t Topology) String() string {
	if t == TriangleStrip {
		return "triangle-strip"
	}
	return "triangle-list"
}

// CompareFunc is a depth comparison.
type CompareFunc uint8

// Depth comparisons.
const (
	CompareLessEqual CompareFunc = iota
	CompareLess
	CompareAlways
)

// VertexAttrib binds a float32 buffer to an attribute location.
type VertexAttrib struct {
	Location   Location
	Buffer     BufferID
	Components int
}

// MatrixUniform sets a mat4 uniform.
type MatrixUniform struct {
	Location Location
	Value    mgl32.Mat4
}

// SamplerBinding binds a texture to a unit and points a sampler uniform at it.
type SamplerBinding struct {
	Unit     int
	Location Location
	Texture  TextureID
}

// DrawCall is one draw with all of its state. Devices must not retain the
// slices after Draw returns.
type DrawCall struct {
	Program     ProgramID
	Attributes  []VertexAttrib
	IndexBuffer BufferID
	Topology    Topology
	Count       int
	Uniforms    []MatrixUniform
	Samplers    []SamplerBinding
}

// Indexed reports whether the call reads an index buffer.
func (c *DrawCall) Indexed() bool {
	return c.IndexBuffer != InvalidID
}

// PassState describes how a pass prepares its framebuffer.
type PassState struct {
	Framebuffer FramebufferID
	ClearColor  [4]float32
	ClearDepth  float32
	DepthTest   bool
	DepthFunc   CompareFunc
}

// DefaultPassState clears fb to opaque black and depth 1 and enables the
// LEQUAL depth test.
func DefaultPassState(fb FramebufferID) PassState {
	return PassState{
		Framebuffer: fb,
		ClearColor:  [4]float32{0, 0, 0, 1},
		ClearDepth:  1,
		DepthTest:   true,
		DepthFunc:   CompareLessEqual,
	}
}
