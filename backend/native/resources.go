//go:build !nogpu && !cgo

package native

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/gpucore"
)

type buffer struct {
	buf   hal.Buffer
	size  uint64
	usage gpucore.BufferUsage
}

type shaderModule struct {
	stage  gpucore.Stage
	name   string
	wgsl   string
	module hal.ShaderModule
}

type target struct {
	label         string
	tex           hal.Texture
	view          hal.TextureView
	width, height int
	format        gputypes.TextureFormat
	usage         gputypes.TextureUsage
}

// align4 rounds n up to a multiple of four, the copy alignment of buffers.
func align4(n uint64) uint64 {
	return (n + 3) &^ 3
}

func float32Bytes(v ...float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func (d *Device) uploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	size := align4(uint64(len(data)))
	if size == 0 {
		size = 4
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create %s: %w", label, err)
	}
	if len(data) > 0 {
		padded := data
		if uint64(len(data)) != size {
			padded = make([]byte, size)
			copy(padded, data)
		}
		if err := d.queue.WriteBuffer(buf, 0, padded); err != nil {
			d.device.DestroyBuffer(buf)
			return nil, fmt.Errorf("native: write %s: %w", label, err)
		}
	}
	return buf, nil
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(usage gpucore.BufferUsage, data []byte) (gpucore.BufferID, error) {
	halUsage := gputypes.BufferUsageVertex
	if usage&gpucore.BufferUsageIndex != 0 {
		halUsage = gputypes.BufferUsageIndex
	}
	buf, err := d.uploadBuffer(usage.String()+"_buffer", data, halUsage)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.BufferID(d.newID())
	d.buffers[id] = &buffer{buf: buf, size: uint64(len(data)), usage: usage}
	return id, nil
}

// ReadBuffer implements gpucore.Device by copying through a staging buffer.
func (d *Device) ReadBuffer(id gpucore.BufferID, dst []byte) error {
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("native: buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	n := min(uint64(len(dst)), b.size)
	if n == 0 {
		return nil
	}
	size := align4(n)
	return d.readback("buffer_readback", size, func(enc hal.CommandEncoder, staging hal.Buffer) {
		enc.CopyBufferToBuffer(b.buf, staging, []hal.BufferCopy{{Size: size}})
	}, func(mapped []byte) {
		copy(dst, mapped[:n])
	})
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	b, ok := d.buffers[id]
	if !ok {
		return
	}
	d.device.DestroyBuffer(b.buf)
	delete(d.buffers, id)
}

// CompileShader implements gpucore.Device with the WGSL source. naga
// validates the source first so compile errors carry its diagnostics on
// every HAL backend.
func (d *Device) CompileShader(stage gpucore.Stage, src gpucore.ShaderSource) (gpucore.ShaderID, error) {
	if strings.TrimSpace(src.WGSL) == "" {
		return gpucore.InvalidID, fmt.Errorf("%s: no WGSL source", src.Name)
	}
	spirv, err := naga.Compile(src.WGSL)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("%s: %w", src.Name, err)
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  src.Name,
		Source: hal.ShaderSource{WGSL: src.WGSL},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("%s: %w", src.Name, err)
	}
	bloom.Logger().Debug("native: shader compiled", "name", src.Name, "stage", stage, "spirv_bytes", len(spirv))

	id := gpucore.ShaderID(d.newID())
	d.shaders[id] = &shaderModule{stage: stage, name: src.Name, wgsl: src.WGSL, module: module}
	return id, nil
}

// DestroyShader implements gpucore.Device.
func (d *Device) DestroyShader(id gpucore.ShaderID) {
	s, ok := d.shaders[id]
	if !ok {
		return
	}
	d.device.DestroyShaderModule(s.module)
	delete(d.shaders, id)
}

func (d *Device) newTarget(label string, width, height int, format gputypes.TextureFormat) (*target, error) {
	usage := gputypes.TextureUsageRenderAttachment
	if format == colorFormat {
		usage |= gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create texture %s: %w", label, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           label + "_view",
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("native: create view %s: %w", label, err)
	}
	return &target{label: label, tex: tex, view: view, width: width, height: height, format: format}, nil
}

func (d *Device) destroyTarget(t *target) {
	if t == nil {
		return
	}
	d.device.DestroyTextureView(t.view)
	d.device.DestroyTexture(t.tex)
}

// CreateRenderTarget implements gpucore.Device. Framebuffer and texture
// share one HAL texture; the IDs differ so they cannot be confused.
func (d *Device) CreateRenderTarget(width, height int) (gpucore.TextureID, gpucore.FramebufferID, error) {
	if width <= 0 || height <= 0 {
		return gpucore.InvalidID, gpucore.InvalidID, fmt.Errorf("native: invalid target size %dx%d", width, height)
	}
	t, err := d.newTarget("bloom_target", width, height, colorFormat)
	if err != nil {
		return gpucore.InvalidID, gpucore.InvalidID, err
	}
	tex := gpucore.TextureID(d.newID())
	fb := gpucore.FramebufferID(d.newID())
	d.targets[tex] = t
	d.framebuffers[fb] = t
	return tex, fb, nil
}

// DestroyRenderTarget implements gpucore.Device.
func (d *Device) DestroyRenderTarget(tex gpucore.TextureID, fb gpucore.FramebufferID) {
	t, ok := d.targets[tex]
	if !ok {
		return
	}
	if d.framebuffers[fb] == t {
		delete(d.framebuffers, fb)
	}
	delete(d.targets, tex)
	d.destroyTarget(t)
}

// TextureSize implements gpucore.Device.
func (d *Device) TextureSize(id gpucore.TextureID) (int, int) {
	t, ok := d.targets[id]
	if !ok {
		return 0, 0
	}
	return t.width, t.height
}

func (d *Device) framebuffer(fb gpucore.FramebufferID) (*target, error) {
	if fb == gpucore.ScreenFramebuffer {
		return d.screen, nil
	}
	t, ok := d.framebuffers[fb]
	if !ok {
		return nil, fmt.Errorf("native: framebuffer %d: %w", fb, gpucore.ErrUnknownResource)
	}
	return t, nil
}

// transition records a usage change for t if it is not already in next.
func transition(enc hal.CommandEncoder, t *target, next gputypes.TextureUsage) {
	if t.usage == next {
		return
	}
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: t.usage,
			NewUsage: next,
		},
	}})
	t.usage = next
}
