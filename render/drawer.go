// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/gpucore"
	"github.com/gogpu/bloom/shader"
)

// ErrIncompleteObject is returned for objects without a program or buffers.
var ErrIncompleteObject = errors.New("render: object needs a program and buffers")

// Object is one draw: a program, its geometry, up to two source textures
// and the transforms.
type Object struct {
	Program    *shader.ProgramInfo
	Buffers    *BufferSet
	Textures   [2]gpucore.TextureID
	Projection mgl32.Mat4
	ModelView  mgl32.Mat4
}

// Drawer turns Objects into device draw calls.
type Drawer struct {
	dev  gpucore.Device
	call gpucore.DrawCall
}

// NewDrawer creates a drawer for dev.
func NewDrawer(dev gpucore.Device) *Drawer {
	return &Drawer{dev: dev}
}

// BeginPass binds fb and clears it to opaque black and depth 1 with the
// LEQUAL depth test enabled.
func (d *Drawer) BeginPass(fb gpucore.FramebufferID) error {
	return d.dev.BeginPass(gpucore.DefaultPassState(fb))
}

// EndPass finishes the current pass.
func (d *Drawer) EndPass() error {
	return d.dev.EndPass()
}

// Draw issues obj into the current pass.
//
// Attributes bind only when both the buffer and the program location are
// present. Samplers bind only when both the texture and the uniform are
// present: Textures[0] to unit 0 and uSampler, Textures[1] to unit 1 and
// uSampler2. Indexed shapes draw as a triangle list, others as a strip.
func (d *Drawer) Draw(obj Object) error {
	p, b := obj.Program, obj.Buffers
	if p == nil || b == nil {
		return ErrIncompleteObject
	}

	c := &d.call
	c.Program = p.ID
	c.Attributes = c.Attributes[:0]
	c.Uniforms = c.Uniforms[:0]
	c.Samplers = c.Samplers[:0]

	c.Attributes = appendAttrib(c.Attributes, p.Position, b.Position, PositionComponents)
	c.Attributes = appendAttrib(c.Attributes, p.Color, b.Color, ColorComponents)
	c.Attributes = appendAttrib(c.Attributes, p.TexCoord, b.TexCoord, TexCoordComponents)

	c.IndexBuffer = b.Index
	c.Count = b.VertexCount
	c.Topology = gpucore.TriangleStrip
	if b.Indexed() {
		c.Topology = gpucore.TriangleList
	}

	if p.Projection.Present() {
		c.Uniforms = append(c.Uniforms, gpucore.MatrixUniform{Location: p.Projection, Value: obj.Projection})
	}
	if p.ModelView.Present() {
		c.Uniforms = append(c.Uniforms, gpucore.MatrixUniform{Location: p.ModelView, Value: obj.ModelView})
	}

	for unit, loc := range []gpucore.Location{p.Sampler, p.Sampler2} {
		tex := obj.Textures[unit]
		if loc.Present() && tex != gpucore.InvalidID {
			c.Samplers = append(c.Samplers, gpucore.SamplerBinding{Unit: unit, Location: loc, Texture: tex})
		}
	}

	if err := d.dev.Draw(c); err != nil {
		return fmt.Errorf("render: draw %s: %w", p.Name, err)
	}
	return nil
}

// DrawFullScreen draws quad with an orthographic unit projection and an
// identity model-view, sampling tex0 and tex1.
func (d *Drawer) DrawFullScreen(p *shader.ProgramInfo, quad *BufferSet, tex0, tex1 gpucore.TextureID) error {
	return d.Draw(Object{
		Program:    p,
		Buffers:    quad,
		Textures:   [2]gpucore.TextureID{tex0, tex1},
		Projection: bloom.ScreenProjection(),
		ModelView:  bloom.ScreenModelView(),
	})
}

func appendAttrib(dst []gpucore.VertexAttrib, loc gpucore.Location, buf gpucore.BufferID, n int) []gpucore.VertexAttrib {
	if !loc.Present() || buf == gpucore.InvalidID {
		return dst
	}
	return append(dst, gpucore.VertexAttrib{Location: loc, Buffer: buf, Components: n})
}
