//go:build !nogpu && !cgo

package native

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/bloom/gpucore"
)

// maxAttributes bounds the vertex input locations of a program.
const maxAttributes = 8

// Entry points every stage uses.
const (
	vertexEntry   = "vs_main"
	fragmentEntry = "fs_main"
)

// Uniform slots. Matrices live in the uniform buffer at binding 0; each
// sampler slot owns a texture binding followed by its sampler binding.
const (
	slotProjection int32 = iota
	slotModelView
	slotSampler
	slotSampler2
)

var uniformSlots = map[string]int32{
	"uProjectionMatrix": slotProjection,
	"uModelViewMatrix":  slotModelView,
	"uSampler":          slotSampler,
	"uSampler2":         slotSampler2,
}

// bindGroupLayoutEntries is the one layout shared by all programs.
func bindGroupLayoutEntries() []gputypes.BindGroupLayoutEntry {
	entries := []gputypes.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform, MinBindingSize: uniformSize},
	}}
	for unit := range uint32(2) {
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    1 + 2*unit,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    2 + 2*unit,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}
	return entries
}

var locationPattern = regexp.MustCompile(`@location\((\d+)\)\s+(\w+)\s*:`)

// vertexInputs maps the names of @location declarations in a WGSL vertex
// stage to their locations. Outputs are included; lookups only ask for
// attribute names.
func declaredLocations(wgsl string) map[string]int32 {
	inputs := make(map[string]int32)
	for _, m := range locationPattern.FindAllStringSubmatch(wgsl, -1) {
		loc, err := strconv.Atoi(m[1])
		if err != nil || loc >= maxAttributes {
			continue
		}
		if _, dup := inputs[m[2]]; !dup {
			inputs[m[2]] = int32(loc)
		}
	}
	return inputs
}

// mentions reports whether name occurs as a whole word in src.
func mentions(src, name string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	return re.MatchString(src)
}

type pipelineKey struct {
	topology   gpucore.Topology
	depth      bool
	compare    gpucore.CompareFunc
	components [maxAttributes]uint8
}

type program struct {
	name     string
	vertex   hal.ShaderModule
	fragment hal.ShaderModule
	attribs  map[string]int32
	uniforms map[string]int32

	pipelines map[pipelineKey]hal.RenderPipeline
}

// LinkProgram implements gpucore.Device. WGSL has no link step, so this
// checks that the fragment inputs are produced by the vertex stage and
// records the locations both stages declare.
func (d *Device) LinkProgram(vertex, fragment gpucore.ShaderID) (gpucore.ProgramID, error) {
	vs, ok := d.shaders[vertex]
	if !ok || vs.stage != gpucore.StageVertex {
		return gpucore.InvalidID, fmt.Errorf("native: shader %d is not a vertex stage", vertex)
	}
	fs, ok := d.shaders[fragment]
	if !ok || fs.stage != gpucore.StageFragment {
		return gpucore.InvalidID, fmt.Errorf("native: shader %d is not a fragment stage", fragment)
	}

	outputs := declaredLocations(vs.wgsl)
	var produced []int32
	for name, loc := range outputs {
		if !isAttribute(name) {
			produced = append(produced, loc)
		}
	}
	for name, loc := range declaredLocations(fs.wgsl) {
		if !slices.Contains(produced, loc) {
			return gpucore.InvalidID, fmt.Errorf("%s: fragment input %s at location %d is not written by %s", fs.name, name, loc, vs.name)
		}
	}

	p := &program{
		name:      vs.name + "+" + fs.name,
		vertex:    vs.module,
		fragment:  fs.module,
		attribs:   outputs,
		uniforms:  make(map[string]int32),
		pipelines: make(map[pipelineKey]hal.RenderPipeline),
	}
	for name, slot := range uniformSlots {
		if mentions(vs.wgsl, name) || mentions(fs.wgsl, name) {
			p.uniforms[name] = slot
		}
	}
	id := gpucore.ProgramID(d.newID())
	d.programs[id] = p
	return id, nil
}

// AttribLocation implements gpucore.Device.
func (d *Device) AttribLocation(id gpucore.ProgramID, name string) gpucore.Location {
	p, ok := d.programs[id]
	if !ok {
		return gpucore.NoLocation
	}
	loc, ok := p.attribs[name]
	if !ok || !isAttribute(name) {
		return gpucore.NoLocation
	}
	return gpucore.At(loc)
}

// UniformLocation implements gpucore.Device.
func (d *Device) UniformLocation(id gpucore.ProgramID, name string) gpucore.Location {
	p, ok := d.programs[id]
	if !ok {
		return gpucore.NoLocation
	}
	slot, ok := p.uniforms[name]
	if !ok {
		return gpucore.NoLocation
	}
	return gpucore.At(slot)
}

// DestroyProgram implements gpucore.Device. Shader modules belong to
// their shader IDs and stay alive.
func (d *Device) DestroyProgram(id gpucore.ProgramID) {
	p, ok := d.programs[id]
	if !ok {
		return
	}
	for _, rp := range p.pipelines {
		d.device.DestroyRenderPipeline(rp)
	}
	delete(d.programs, id)
}

func vertexFormat(components uint8) gputypes.VertexFormat {
	switch components {
	case 1:
		return gputypes.VertexFormatFloat32
	case 2:
		return gputypes.VertexFormatFloat32x2
	case 3:
		return gputypes.VertexFormatFloat32x3
	default:
		return gputypes.VertexFormatFloat32x4
	}
}

// vertexLayouts gives every declared input its own buffer slot, in
// location order. Inputs without a bound buffer (zero components) read
// the constant default buffer with a zero stride.
func vertexLayouts(key pipelineKey, locations []int32) []gputypes.VertexBufferLayout {
	layouts := make([]gputypes.VertexBufferLayout, 0, len(locations))
	for _, loc := range locations {
		comps := key.components[loc]
		stride := uint64(comps) * 4
		if comps == 0 {
			comps, stride = 4, 0
		}
		layouts = append(layouts, gputypes.VertexBufferLayout{
			ArrayStride: stride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{{
				Format:         vertexFormat(comps),
				ShaderLocation: uint32(loc),
			}},
		})
	}
	return layouts
}

// inputLocations returns the program's attribute locations in order.
func (p *program) inputLocations() []int32 {
	locs := make([]int32, 0, len(p.attribs))
	for name, loc := range p.attribs {
		if isAttribute(name) {
			locs = append(locs, loc)
		}
	}
	slices.Sort(locs)
	return slices.Compact(locs)
}

// isAttribute tells vertex inputs from varyings by the naming convention
// of the shader catalog: attributes start with "a".
func isAttribute(name string) bool {
	return len(name) > 1 && name[0] == 'a' && name[1] >= 'A' && name[1] <= 'Z'
}

func compareFunction(f gpucore.CompareFunc) gputypes.CompareFunction {
	switch f {
	case gpucore.CompareLess:
		return gputypes.CompareFunctionLess
	case gpucore.CompareAlways:
		return gputypes.CompareFunctionAlways
	default:
		return gputypes.CompareFunctionLessEqual
	}
}

func (d *Device) pipeline(p *program, key pipelineKey) (hal.RenderPipeline, error) {
	if rp, ok := p.pipelines[key]; ok {
		return rp, nil
	}
	topology := gputypes.PrimitiveTopologyTriangleList
	if key.topology == gpucore.TriangleStrip {
		topology = gputypes.PrimitiveTopologyTriangleStrip
	}
	desc := &hal.RenderPipelineDescriptor{
		Label:  p.name,
		Layout: d.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.vertex,
			EntryPoint: vertexEntry,
			Buffers:    vertexLayouts(key, p.inputLocations()),
		},
		Fragment: &hal.FragmentState{
			Module:     p.fragment,
			EntryPoint: fragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    colorFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	}
	if key.depth {
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      compareFunction(key.compare),
		}
	}
	rp, err := d.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("native: create pipeline %s: %w", p.name, err)
	}
	p.pipelines[key] = rp
	return rp, nil
}
