// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"

	"github.com/gogpu/bloom/gpucore"
)

var errInjected = errors.New("injected failure")

// recordingDevice remembers what it was asked to do.
type recordingDevice struct {
	width, height int

	next      uint64
	buffers   map[gpucore.BufferID][]byte
	targets   map[gpucore.TextureID][2]int
	created   int
	destroyed []string
	passes    []gpucore.PassState
	draws     []gpucore.DrawCall

	failBufferAt int // CreateBuffer call number that fails, 1-based
	failTarget   bool
}

func newRecordingDevice(w, h int) *recordingDevice {
	return &recordingDevice{
		width:   w,
		height:  h,
		buffers: make(map[gpucore.BufferID][]byte),
		targets: make(map[gpucore.TextureID][2]int),
	}
}

func (r *recordingDevice) id() uint64 { r.next++; return r.next }

func (r *recordingDevice) Name() string            { return "recording" }
func (r *recordingDevice) SurfaceSize() (int, int) { return r.width, r.height }

func (r *recordingDevice) CreateBuffer(_ gpucore.BufferUsage, data []byte) (gpucore.BufferID, error) {
	r.created++
	if r.created == r.failBufferAt {
		return gpucore.InvalidID, errInjected
	}
	id := gpucore.BufferID(r.id())
	r.buffers[id] = append([]byte(nil), data...)
	return id, nil
}

func (r *recordingDevice) ReadBuffer(id gpucore.BufferID, dst []byte) error {
	b, ok := r.buffers[id]
	if !ok {
		return gpucore.ErrUnknownResource
	}
	copy(dst, b)
	return nil
}

func (r *recordingDevice) DestroyBuffer(id gpucore.BufferID) {
	delete(r.buffers, id)
	r.destroyed = append(r.destroyed, "buffer")
}

func (r *recordingDevice) CompileShader(gpucore.Stage, gpucore.ShaderSource) (gpucore.ShaderID, error) {
	return gpucore.ShaderID(r.id()), nil
}
func (r *recordingDevice) DestroyShader(gpucore.ShaderID) {}
func (r *recordingDevice) LinkProgram(_, _ gpucore.ShaderID) (gpucore.ProgramID, error) {
	return gpucore.ProgramID(r.id()), nil
}
func (r *recordingDevice) AttribLocation(gpucore.ProgramID, string) gpucore.Location {
	return gpucore.NoLocation
}
func (r *recordingDevice) UniformLocation(gpucore.ProgramID, string) gpucore.Location {
	return gpucore.NoLocation
}
func (r *recordingDevice) DestroyProgram(gpucore.ProgramID) {}

func (r *recordingDevice) CreateRenderTarget(w, h int) (gpucore.TextureID, gpucore.FramebufferID, error) {
	if r.failTarget {
		return gpucore.InvalidID, gpucore.InvalidID, errInjected
	}
	tex := gpucore.TextureID(r.id())
	r.targets[tex] = [2]int{w, h}
	return tex, gpucore.FramebufferID(r.id()), nil
}

func (r *recordingDevice) DestroyRenderTarget(tex gpucore.TextureID, _ gpucore.FramebufferID) {
	delete(r.targets, tex)
	r.destroyed = append(r.destroyed, "target")
}

func (r *recordingDevice) TextureSize(id gpucore.TextureID) (int, int) {
	s := r.targets[id]
	return s[0], s[1]
}

func (r *recordingDevice) BeginPass(s gpucore.PassState) error {
	r.passes = append(r.passes, s)
	return nil
}

func (r *recordingDevice) Draw(c *gpucore.DrawCall) error {
	cp := *c
	cp.Attributes = append([]gpucore.VertexAttrib(nil), c.Attributes...)
	cp.Uniforms = append([]gpucore.MatrixUniform(nil), c.Uniforms...)
	cp.Samplers = append([]gpucore.SamplerBinding(nil), c.Samplers...)
	r.draws = append(r.draws, cp)
	return nil
}

func (r *recordingDevice) EndPass() error { return nil }
func (r *recordingDevice) Present() error { return nil }

// ReadPixels fills row y with the value y so flips are visible.
func (r *recordingDevice) ReadPixels(_ gpucore.FramebufferID, dst []byte) error {
	row := r.width * 4
	for i := range dst {
		dst[i] = byte(i / row)
	}
	return nil
}
