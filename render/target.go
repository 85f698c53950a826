// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/gpucore"
)

// Screen names the visible surface in target lookups.
const Screen = "screen"

// ErrUnknownTarget is returned for target names the manager does not own.
var ErrUnknownTarget = errors.New("render: unknown target")

// Target is an off-screen RGBA8 texture attached to a framebuffer.
//
// The screen target returned by Targets.Get(Screen) has an InvalidID
// texture and the ScreenFramebuffer; it can be drawn into but not sampled.
type Target struct {
	Name        string
	Texture     gpucore.TextureID
	Framebuffer gpucore.FramebufferID
	Width       int
	Height      int
}

// NewTarget allocates a width x height target.
func NewTarget(dev gpucore.Device, width, height int) (*Target, error) {
	tex, fb, err := dev.CreateRenderTarget(width, height)
	if err != nil {
		return nil, fmt.Errorf("render: create %dx%d target: %w", width, height, err)
	}
	return &Target{Texture: tex, Framebuffer: fb, Width: width, Height: height}, nil
}

// Release destroys the texture and framebuffer.
func (t *Target) Release(dev gpucore.Device) {
	if t == nil || t.Texture == gpucore.InvalidID {
		return
	}
	dev.DestroyRenderTarget(t.Texture, t.Framebuffer)
	t.Texture, t.Framebuffer = gpucore.InvalidID, gpucore.InvalidID
}

// Sampleable reports whether the target has a texture.
func (t *Target) Sampleable() bool {
	return t.Texture != gpucore.InvalidID
}

// Image reads the target back, top row first.
func (t *Target) Image(dev gpucore.Device) (*image.NRGBA, error) {
	return ReadImage(dev, t.Framebuffer, t.Width, t.Height)
}

// ReadImage reads a framebuffer into an image, flipping the bottom-up
// device rows.
func ReadImage(dev gpucore.Device, fb gpucore.FramebufferID, width, height int) (*image.NRGBA, error) {
	buf := make([]byte, width*height*4)
	if err := dev.ReadPixels(fb, buf); err != nil {
		return nil, fmt.Errorf("render: read framebuffer %d: %w", fb, err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	row := width * 4
	for y := range height {
		src := buf[(height-1-y)*row : (height-y)*row]
		copy(img.Pix[y*img.Stride:y*img.Stride+row], src)
	}
	return img, nil
}

// ResizePolicy decides what happens to targets when the surface size
// changes.
type ResizePolicy uint8

const (
	// ResizeRecreate reallocates every target at the new surface size.
	ResizeRecreate ResizePolicy = iota
	// ResizeFixed keeps the creation-time resolution.
	ResizeFixed
)

// String returns the policy name used in configuration.
func (p ResizePolicy) String() string {
	if p == ResizeFixed {
		return "fixed"
	}
	return "recreate"
}

// ParseResizePolicy parses "recreate" or "fixed". An empty string selects
// ResizeRecreate.
func ParseResizePolicy(s string) (ResizePolicy, error) {
	switch s {
	case "", "recreate":
		return ResizeRecreate, nil
	case "fixed":
		return ResizeFixed, nil
	default:
		return 0, fmt.Errorf("render: unknown resize policy %q", s)
	}
}

// Targets owns the named off-screen targets of a pipeline. All of them
// share one size.
type Targets struct {
	dev    gpucore.Device
	policy ResizePolicy
	names  []string
	byName map[string]*Target
	width  int
	height int
	warned bool
}

// NewTargets creates one target per name at the current surface size.
func NewTargets(dev gpucore.Device, policy ResizePolicy, names []string) (*Targets, error) {
	w, h := dev.SurfaceSize()
	ts := &Targets{
		dev:    dev,
		policy: policy,
		byName: make(map[string]*Target, len(names)),
	}
	for _, name := range names {
		if name == Screen {
			return nil, fmt.Errorf("render: %q is reserved", Screen)
		}
		if _, dup := ts.byName[name]; dup {
			continue
		}
		ts.names = append(ts.names, name)
		ts.byName[name] = nil
	}
	if err := ts.allocate(w, h); err != nil {
		return nil, err
	}
	bloom.Logger().Info("render: targets created",
		"count", len(ts.names), "width", w, "height", h, "resize", policy.String())
	return ts, nil
}

func (ts *Targets) allocate(w, h int) error {
	for _, name := range ts.names {
		t, err := NewTarget(ts.dev, w, h)
		if err != nil {
			ts.Release()
			return fmt.Errorf("render: target %q: %w", name, err)
		}
		t.Name = name
		ts.byName[name] = t
	}
	ts.width, ts.height = w, h
	return nil
}

// Policy returns the resize policy.
func (ts *Targets) Policy() ResizePolicy { return ts.policy }

// Size returns the size of the off-screen targets.
func (ts *Targets) Size() (int, int) { return ts.width, ts.height }

// Names returns the target names in creation order.
func (ts *Targets) Names() []string {
	return append([]string(nil), ts.names...)
}

// Get returns a target by name. Screen resolves to the visible surface.
func (ts *Targets) Get(name string) (*Target, error) {
	if name == Screen {
		w, h := ts.dev.SurfaceSize()
		return &Target{Name: Screen, Framebuffer: gpucore.ScreenFramebuffer, Width: w, Height: h}, nil
	}
	t, ok := ts.byName[name]
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	return t, nil
}

// Sync applies the resize policy against the current surface size. It is
// called at the start of every frame and reports whether the targets were
// recreated.
func (ts *Targets) Sync() (bool, error) {
	w, h := ts.dev.SurfaceSize()
	if w == ts.width && h == ts.height {
		return false, nil
	}
	if w <= 0 || h <= 0 {
		// Minimized windows report a zero surface; keep the old targets.
		return false, nil
	}

	switch ts.policy {
	case ResizeFixed:
		if !ts.warned {
			bloom.Logger().Warn("render: surface size differs from fixed targets",
				"surface", fmt.Sprintf("%dx%d", w, h),
				"targets", fmt.Sprintf("%dx%d", ts.width, ts.height))
			ts.warned = true
		}
		return false, nil
	default:
		ts.release()
		if err := ts.allocate(w, h); err != nil {
			return false, err
		}
		bloom.Logger().Info("render: targets recreated", "width", w, "height", h)
		return true, nil
	}
}

func (ts *Targets) release() {
	for _, name := range ts.names {
		if t := ts.byName[name]; t != nil {
			t.Release(ts.dev)
			ts.byName[name] = nil
		}
	}
}

// Release destroys every target.
func (ts *Targets) Release() {
	if ts == nil {
		return
	}
	ts.release()
	ts.width, ts.height = 0, 0
}
