//go:build !nogpu && !cgo

package native

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/gpucore"
)

// pass records draws into one render pass. Per-draw uniform buffers and
// bind groups live until the pass is submitted.
type pass struct {
	state   gpucore.PassState
	target  *target
	encoder hal.CommandEncoder
	rp      hal.RenderPassEncoder

	uniforms   []hal.Buffer
	bindGroups []hal.BindGroup
	draws      int
}

// BeginPass implements gpucore.Device. Only the screen gets a depth
// attachment; off-screen targets are color only.
func (d *Device) BeginPass(state gpucore.PassState) error {
	if d.pass != nil {
		return fmt.Errorf("native: pass already in progress")
	}
	t, err := d.framebuffer(state.Framebuffer)
	if err != nil {
		return err
	}

	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "bloom_pass"})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("bloom_pass"); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}
	transition(enc, t, gputypes.TextureUsageRenderAttachment)

	c := state.ClearColor
	desc := &hal.RenderPassDescriptor{
		Label: "bloom_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       t.view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])},
		}},
	}
	if t == d.screen && state.DepthTest {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            d.screenDepth.view,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpDiscard,
			DepthClearValue: state.ClearDepth,
		}
	}
	rp := enc.BeginRenderPass(desc)
	rp.SetViewport(0, 0, float32(t.width), float32(t.height), 0, 1)

	d.pass = &pass{state: state, target: t, encoder: enc, rp: rp}
	return nil
}

// Draw implements gpucore.Device.
func (d *Device) Draw(call *gpucore.DrawCall) error {
	ps := d.pass
	if ps == nil {
		return gpucore.ErrNoPass
	}
	p, ok := d.programs[call.Program]
	if !ok {
		return fmt.Errorf("native: program %d: %w", call.Program, gpucore.ErrUnknownResource)
	}

	key := pipelineKey{
		topology: call.Topology,
		depth:    ps.target == d.screen && ps.state.DepthTest,
		compare:  ps.state.DepthFunc,
	}
	bound := make(map[int32]hal.Buffer, len(call.Attributes))
	for _, a := range call.Attributes {
		loc, ok := a.Location.Get()
		if !ok || loc >= maxAttributes {
			continue
		}
		b, ok := d.buffers[a.Buffer]
		if !ok {
			return fmt.Errorf("native: attribute buffer %d: %w", a.Buffer, gpucore.ErrUnknownResource)
		}
		key.components[loc] = uint8(a.Components)
		bound[loc] = b.buf
	}
	pipe, err := d.pipeline(p, key)
	if err != nil {
		return err
	}

	group, err := d.bindGroup(ps, call)
	if err != nil {
		return err
	}

	ps.rp.SetPipeline(pipe)
	ps.rp.SetBindGroup(0, group, nil)
	for slot, loc := range p.inputLocations() {
		buf, ok := bound[loc]
		if !ok {
			buf = d.defaults
		}
		ps.rp.SetVertexBuffer(uint32(slot), buf, 0)
	}

	if call.Indexed() {
		ib, ok := d.buffers[call.IndexBuffer]
		if !ok {
			return fmt.Errorf("native: index buffer %d: %w", call.IndexBuffer, gpucore.ErrUnknownResource)
		}
		ps.rp.SetIndexBuffer(ib.buf, gputypes.IndexFormatUint16, 0)
		ps.rp.DrawIndexed(uint32(call.Count), 1, 0, 0, 0)
	} else {
		ps.rp.Draw(uint32(call.Count), 1, 0, 0)
	}
	ps.draws++
	return nil
}

// bindGroup builds the per-draw uniform buffer and bind group. Samplers
// that are absent, unknown, or name the target being drawn bind the dummy
// texture instead.
func (d *Device) bindGroup(ps *pass, call *gpucore.DrawCall) (hal.BindGroup, error) {
	var matrices [2]mgl32.Mat4
	for _, u := range call.Uniforms {
		if slot, ok := u.Location.Get(); ok && slot <= slotModelView {
			matrices[slot] = u.Value
		}
	}
	data := float32Bytes(append(matrices[0][:], matrices[1][:]...)...)
	ub, err := d.uploadBuffer("bloom_uniforms", data, gputypes.BufferUsageUniform)
	if err != nil {
		return nil, err
	}
	ps.uniforms = append(ps.uniforms, ub)

	views := [2]hal.TextureView{d.dummy.view, d.dummy.view}
	for _, s := range call.Samplers {
		if _, ok := s.Location.Get(); !ok || s.Unit < 0 || s.Unit >= len(views) {
			continue
		}
		t, ok := d.targets[s.Texture]
		if !ok || t == ps.target {
			continue
		}
		views[s.Unit] = t.view
	}

	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "bloom_bind_group",
		Layout: d.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Size: uniformSize}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: views[0].NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: d.sampler.NativeHandle()}},
			{Binding: 3, Resource: gputypes.TextureViewBinding{TextureView: views[1].NativeHandle()}},
			{Binding: 4, Resource: gputypes.SamplerBinding{Sampler: d.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create bind group: %w", err)
	}
	ps.bindGroups = append(ps.bindGroups, group)
	return group, nil
}

// EndPass implements gpucore.Device. The pass is submitted and waited on,
// so a later pass samples the finished texture.
func (d *Device) EndPass() error {
	ps := d.pass
	if ps == nil {
		return gpucore.ErrNoPass
	}
	d.pass = nil
	defer d.releasePass(ps)

	ps.rp.End()
	if ps.target != d.screen {
		transition(ps.encoder, ps.target, gputypes.TextureUsageTextureBinding)
	}
	cmd, err := ps.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmd)

	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("native: submit pass: %w", err)
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("native: wait pass: %w", err)
	}
	bloom.Logger().Debug("native: pass", "target", ps.target.label, "draws", ps.draws)
	return nil
}

func (d *Device) releasePass(ps *pass) {
	for _, g := range ps.bindGroups {
		d.device.DestroyBindGroup(g)
	}
	for _, b := range ps.uniforms {
		d.device.DestroyBuffer(b)
	}
}

// readback copies size bytes into a mappable staging buffer with copy,
// waits, and hands the mapped bytes to read.
func (d *Device) readback(label string, size uint64, record func(hal.CommandEncoder, hal.Buffer), read func([]byte)) error {
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("native: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	if err := d.submit(label, func(enc hal.CommandEncoder) { record(enc, staging) }); err != nil {
		return err
	}
	m, err := d.device.MapBuffer(staging, 0, size)
	if err != nil {
		return fmt.Errorf("native: map staging buffer: %w", err)
	}
	read(unsafe.Slice((*byte)(m.Ptr), size))
	return d.device.UnmapBuffer(staging)
}

// ReadPixels implements gpucore.Device. Texture rows are stored top-down
// and padded to the copy pitch; they are returned bottom-up and packed.
func (d *Device) ReadPixels(fb gpucore.FramebufferID, dst []byte) error {
	if d.pass != nil {
		return fmt.Errorf("native: readback during a pass")
	}
	t, err := d.framebuffer(fb)
	if err != nil {
		return err
	}
	w, h := t.width, t.height
	if len(dst) < w*h*4 {
		return fmt.Errorf("native: readback needs %d bytes, have %d", w*h*4, len(dst))
	}
	pitch := alignedPitch(w)
	after := t.usage
	return d.readback("pixel_readback", uint64(pitch)*uint64(h), func(enc hal.CommandEncoder, staging hal.Buffer) {
		transition(enc, t, gputypes.TextureUsageCopySrc)
		enc.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{BytesPerRow: uint32(pitch), RowsPerImage: uint32(h)},
			TextureBase:  hal.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
			Size:         hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		}})
		if after != 0 {
			transition(enc, t, after)
		}
	}, func(mapped []byte) {
		unpackRows(dst, mapped, w, h, pitch)
	})
}

// copyPitch is the row alignment of texture to buffer copies.
const copyPitch = 256

func alignedPitch(width int) int {
	return (width*4 + copyPitch - 1) / copyPitch * copyPitch
}

// unpackRows copies padded top-down rows into packed bottom-up rows.
func unpackRows(dst, src []byte, width, height, pitch int) {
	row := width * 4
	for y := range height {
		s := src[y*pitch : y*pitch+row]
		copy(dst[(height-1-y)*row:], s)
	}
}
