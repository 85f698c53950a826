package soft

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/gpucore"
)

// Name is the backend name of the CPU device.
const Name = "soft"

// Stats counts the work a Device has done.
type Stats struct {
	Passes    int
	Draws     int
	Triangles int
	Fragments int
	Presents  int
}

type buffer struct {
	usage gpucore.BufferUsage
	data  []byte
}

type shaderObject struct {
	stage    gpucore.Stage
	name     string
	vertex   VertexKernel
	fragment FragmentKernel
}

type program struct {
	vertex   VertexKernel
	fragment FragmentKernel
	attribs  map[string]int32
	uniforms []string
}

// Device is a gpucore.Device that rasterizes on the CPU. Shader stages
// compile by name to kernels registered with RegisterVertex and
// RegisterFragment; the sources themselves are not parsed.
type Device struct {
	screen       *surface
	buffers      map[gpucore.BufferID]*buffer
	shaders      map[gpucore.ShaderID]*shaderObject
	programs     map[gpucore.ProgramID]*program
	textures     map[gpucore.TextureID]*surface
	framebuffers map[gpucore.FramebufferID]gpucore.TextureID
	next         uint64

	pass  *gpucore.PassState
	stats Stats
}

var _ gpucore.Device = (*Device)(nil)

// New creates a CPU device whose visible surface is width x height.
func New(width, height int) *Device {
	return &Device{
		screen:       newSurface(width, height),
		buffers:      make(map[gpucore.BufferID]*buffer),
		shaders:      make(map[gpucore.ShaderID]*shaderObject),
		programs:     make(map[gpucore.ProgramID]*program),
		textures:     make(map[gpucore.TextureID]*surface),
		framebuffers: make(map[gpucore.FramebufferID]gpucore.TextureID),
	}
}

func (d *Device) id() uint64 {
	d.next++
	return d.next
}

// Name implements gpucore.Device.
func (d *Device) Name() string { return Name }

// SurfaceSize implements gpucore.Device.
func (d *Device) SurfaceSize() (int, int) {
	return d.screen.width, d.screen.height
}

// Resize replaces the visible surface, as a window resize would.
func (d *Device) Resize(width, height int) {
	d.screen = newSurface(width, height)
}

// Stats returns the work counters.
func (d *Device) Stats() Stats { return d.stats }

// Live reports the number of buffers, programs and textures still allocated.
func (d *Device) Live() (buffers, programs, textures int) {
	return len(d.buffers), len(d.programs), len(d.textures)
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(usage gpucore.BufferUsage, data []byte) (gpucore.BufferID, error) {
	id := gpucore.BufferID(d.id())
	d.buffers[id] = &buffer{usage: usage, data: append([]byte(nil), data...)}
	return id, nil
}

// ReadBuffer implements gpucore.Device.
func (d *Device) ReadBuffer(id gpucore.BufferID, dst []byte) error {
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("soft: buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	copy(dst, b.data)
	return nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	delete(d.buffers, id)
}

// CompileShader implements gpucore.Device. src.Name selects the kernel.
func (d *Device) CompileShader(stage gpucore.Stage, src gpucore.ShaderSource) (gpucore.ShaderID, error) {
	if src.Name == "" {
		return gpucore.InvalidID, fmt.Errorf("ERROR: empty %s shader", stage)
	}
	obj := &shaderObject{stage: stage, name: src.Name}
	var err error
	if stage == gpucore.StageVertex {
		obj.vertex, err = lookupVertex(src.Name)
	} else {
		obj.fragment, err = lookupFragment(src.Name)
	}
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ShaderID(d.id())
	d.shaders[id] = obj
	return id, nil
}

// DestroyShader implements gpucore.Device.
func (d *Device) DestroyShader(id gpucore.ShaderID) {
	delete(d.shaders, id)
}

// LinkProgram implements gpucore.Device.
func (d *Device) LinkProgram(vertex, fragment gpucore.ShaderID) (gpucore.ProgramID, error) {
	vs, ok := d.shaders[vertex]
	if !ok || vs.stage != gpucore.StageVertex {
		return gpucore.InvalidID, fmt.Errorf("ERROR: %d is not a vertex shader", vertex)
	}
	fs, ok := d.shaders[fragment]
	if !ok || fs.stage != gpucore.StageFragment {
		return gpucore.InvalidID, fmt.Errorf("ERROR: %d is not a fragment shader", fragment)
	}
	if fs.fragment.Inputs > vs.vertex.Outputs {
		return gpucore.InvalidID, fmt.Errorf("ERROR: %s reads %d varyings but %s writes %d",
			fs.name, fs.fragment.Inputs, vs.name, vs.vertex.Outputs)
	}

	p := &program{
		vertex:   vs.vertex,
		fragment: fs.fragment,
		attribs:  make(map[string]int32, len(vs.vertex.Attributes)),
	}
	for i, name := range vs.vertex.Attributes {
		p.attribs[name] = int32(i)
	}
	seen := make(map[string]bool)
	for _, list := range [][]string{vs.vertex.Uniforms, fs.fragment.Uniforms} {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				p.uniforms = append(p.uniforms, name)
			}
		}
	}
	id := gpucore.ProgramID(d.id())
	d.programs[id] = p
	return id, nil
}

// AttribLocation implements gpucore.Device.
func (d *Device) AttribLocation(id gpucore.ProgramID, name string) gpucore.Location {
	p, ok := d.programs[id]
	if !ok {
		return gpucore.NoLocation
	}
	if i, ok := p.attribs[name]; ok {
		return gpucore.At(i)
	}
	return gpucore.NoLocation
}

// UniformLocation implements gpucore.Device.
func (d *Device) UniformLocation(id gpucore.ProgramID, name string) gpucore.Location {
	p, ok := d.programs[id]
	if !ok {
		return gpucore.NoLocation
	}
	for i, u := range p.uniforms {
		if u == name {
			return gpucore.At(int32(i))
		}
	}
	return gpucore.NoLocation
}

// DestroyProgram implements gpucore.Device.
func (d *Device) DestroyProgram(id gpucore.ProgramID) {
	delete(d.programs, id)
}

// CreateRenderTarget implements gpucore.Device.
func (d *Device) CreateRenderTarget(width, height int) (gpucore.TextureID, gpucore.FramebufferID, error) {
	if width <= 0 || height <= 0 {
		return gpucore.InvalidID, gpucore.InvalidID, fmt.Errorf("soft: invalid target size %dx%d", width, height)
	}
	tex := gpucore.TextureID(d.id())
	fb := gpucore.FramebufferID(d.id())
	d.textures[tex] = newSurface(width, height)
	d.framebuffers[fb] = tex
	return tex, fb, nil
}

// DestroyRenderTarget implements gpucore.Device.
func (d *Device) DestroyRenderTarget(tex gpucore.TextureID, fb gpucore.FramebufferID) {
	delete(d.textures, tex)
	delete(d.framebuffers, fb)
}

// TextureSize implements gpucore.Device.
func (d *Device) TextureSize(id gpucore.TextureID) (int, int) {
	if t, ok := d.textures[id]; ok {
		return t.width, t.height
	}
	return 0, 0
}

func (d *Device) framebuffer(fb gpucore.FramebufferID) (*surface, error) {
	if fb == gpucore.ScreenFramebuffer {
		return d.screen, nil
	}
	if tex, ok := d.framebuffers[fb]; ok {
		return d.textures[tex], nil
	}
	return nil, fmt.Errorf("soft: framebuffer %d: %w", fb, gpucore.ErrUnknownResource)
}

// BeginPass implements gpucore.Device.
func (d *Device) BeginPass(state gpucore.PassState) error {
	target, err := d.framebuffer(state.Framebuffer)
	if err != nil {
		return err
	}
	target.clear(state.ClearColor, state.ClearDepth)
	d.pass = &state
	d.stats.Passes++
	return nil
}

// EndPass implements gpucore.Device.
func (d *Device) EndPass() error {
	if d.pass == nil {
		return gpucore.ErrNoPass
	}
	d.pass = nil
	return nil
}

// Present implements gpucore.Device.
func (d *Device) Present() error {
	d.stats.Presents++
	return nil
}

// ReadPixels implements gpucore.Device.
func (d *Device) ReadPixels(fb gpucore.FramebufferID, dst []byte) error {
	s, err := d.framebuffer(fb)
	if err != nil {
		return err
	}
	if len(dst) < len(s.color) {
		return fmt.Errorf("soft: readback needs %d bytes, have %d", len(s.color), len(dst))
	}
	copy(dst, s.color)
	return nil
}

// Draw implements gpucore.Device.
func (d *Device) Draw(call *gpucore.DrawCall) error {
	if d.pass == nil {
		return gpucore.ErrNoPass
	}
	p, ok := d.programs[call.Program]
	if !ok {
		return fmt.Errorf("soft: program %d: %w", call.Program, gpucore.ErrUnknownResource)
	}
	target, err := d.framebuffer(d.pass.Framebuffer)
	if err != nil {
		return err
	}

	attribs := make([]vertexStream, len(p.vertex.Attributes))
	for _, a := range call.Attributes {
		loc, ok := a.Location.Get()
		if !ok || int(loc) >= len(attribs) {
			continue
		}
		b, ok := d.buffers[a.Buffer]
		if !ok {
			return fmt.Errorf("soft: attribute buffer %d: %w", a.Buffer, gpucore.ErrUnknownResource)
		}
		attribs[loc] = vertexStream{data: decodeFloats(b.data), components: a.Components}
	}

	uniforms := make(Uniforms, len(call.Uniforms))
	for _, u := range call.Uniforms {
		if name, ok := p.uniformName(u.Location); ok {
			uniforms[name] = u.Value
		}
	}
	samplers := make(Samplers, len(call.Samplers))
	for _, s := range call.Samplers {
		name, ok := p.uniformName(s.Location)
		if !ok {
			continue
		}
		if tex, ok := d.textures[s.Texture]; ok && tex != target {
			samplers[name] = tex
		}
	}

	indices := make([]int, call.Count)
	if call.Indexed() {
		b, ok := d.buffers[call.IndexBuffer]
		if !ok {
			return fmt.Errorf("soft: index buffer %d: %w", call.IndexBuffer, gpucore.ErrUnknownResource)
		}
		if len(b.data) < call.Count*2 {
			return fmt.Errorf("soft: index buffer holds %d indices, draw needs %d", len(b.data)/2, call.Count)
		}
		for i := range indices {
			indices[i] = int(binary.LittleEndian.Uint16(b.data[i*2:]))
		}
	} else {
		for i := range indices {
			indices[i] = i
		}
	}

	shaded := make(map[int]clipVertex, len(indices))
	in := make([]mgl32.Vec4, len(attribs))
	vertex := func(index int) clipVertex {
		if cv, ok := shaded[index]; ok {
			return cv
		}
		for i, s := range attribs {
			in[i] = s.fetch(index)
		}
		pos, out := p.vertex.Run(in, uniforms)
		cv := clipVertex{pos: pos, v: out}
		shaded[index] = cv
		return cv
	}

	r := &rasterizer{
		target:   target,
		state:    *d.pass,
		fragment: p.fragment,
		samplers: samplers,
		inputs:   p.fragment.Inputs,
	}
	assemble(call.Topology, len(indices), func(a, b, c int) {
		tri := [3]clipVertex{vertex(indices[a]), vertex(indices[b]), vertex(indices[c])}
		if r.triangle(tri) {
			d.stats.Triangles++
		}
	})
	d.stats.Draws++
	d.stats.Fragments += r.fragments
	bloom.Logger().Debug("soft: draw", "vertices", len(indices), "fragments", r.fragments)
	return nil
}

func (p *program) uniformName(l gpucore.Location) (string, bool) {
	i, ok := l.Get()
	if !ok || int(i) >= len(p.uniforms) {
		return "", false
	}
	return p.uniforms[i], true
}

// vertexStream reads one attribute. Disabled attributes read (0, 0, 0, 1).
type vertexStream struct {
	data       []float32
	components int
}

func (s vertexStream) fetch(i int) mgl32.Vec4 {
	v := mgl32.Vec4{0, 0, 0, 1}
	base := i * s.components
	if s.components == 0 || base+s.components > len(s.data) {
		return v
	}
	copy(v[:], s.data[base:base+min(s.components, 4)])
	return v
}

func decodeFloats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
