// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package render moves geometry and images between the pipeline and a
// gpucore.Device.
//
// # Key Principle
//
// render RECEIVES a device from the host, it does NOT create one. The same
// code drives the CPU reference device, OpenGL and the WebGPU HAL.
//
// # Core Types
//
//   - BufferSet: the static buffers of one uploaded shape (Upload)
//   - Target: an RGBA8 texture with its framebuffer (NewTarget)
//   - Targets: named targets with a ResizePolicy
//   - Drawer: binds an Object's buffers, matrices and textures and draws it
//
// # Usage
//
//	quad, err := render.Upload(dev, bloom.ScreenQuad())
//	if err != nil {
//		return err
//	}
//	defer quad.Release(dev)
//
//	d := render.NewDrawer(dev)
//	if err := d.BeginPass(gpucore.ScreenFramebuffer); err != nil {
//		return err
//	}
//	err = d.DrawFullScreen(blend, quad, scene.Texture, glow.Texture)
//
// Every pass clears to opaque black and depth 1 with the LEQUAL depth test.
package render
