//go:build !nogpu && !cgo

package native

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/gpucore"
	"github.com/gogpu/bloom/render"
	"github.com/gogpu/bloom/shader"
)

// openNoop opens a device and queue on the noop HAL backend. Commands are
// accepted but nothing is rasterized.
func openNoop(t *testing.T) (hal.Instance, hal.Device, hal.Queue) {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	return instance, open.Device, open.Queue
}

func newNoopDevice(t *testing.T, width, height int) *Device {
	t.Helper()
	instance, device, queue := openNoop(t)
	d, err := newDevice(device, queue, width, height)
	if err != nil {
		instance.Destroy()
		t.Fatalf("newDevice failed: %v", err)
	}
	d.instance = instance
	t.Cleanup(d.Close)
	return d
}

// hostDevice counts Destroy calls on a device owned by the host.
type hostDevice struct {
	hal.Device
	destroyed int
}

func (h *hostDevice) Destroy() {
	h.destroyed++
	h.Device.Destroy()
}

// hostProvider is a gpucontext.DeviceProvider that also exposes its HAL
// handles, the way a gogpu application does.
type hostProvider struct {
	device hal.Device
	queue  hal.Queue
}

func (p *hostProvider) Device() gpucontext.Device   { return p.device }
func (p *hostProvider) Queue() gpucontext.Queue     { return p.queue }
func (p *hostProvider) Adapter() gpucontext.Adapter { return nil }
func (p *hostProvider) HalDevice() any              { return p.device }
func (p *hostProvider) HalQueue() any               { return p.queue }

func (p *hostProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

func (p *hostProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "noop", Type: gpucontext.AdapterTypeSoftware}
}

// plainProvider hides its HAL handles.
type plainProvider struct{ hostProvider }

func (p *plainProvider) HalDevice() {}

// opaqueProvider exposes handles of the wrong type.
type opaqueProvider struct{ hostProvider }

func (p *opaqueProvider) HalDevice() any { return "device" }

func TestDeclaredLocations(t *testing.T) {
	src := shader.Stage(shader.StageTransform).WGSL
	got := declaredLocations(src)
	want := map[string]int32{
		shader.AttribPosition: 0,
		shader.AttribColor:    1,
		shader.AttribTexCoord: 2,
		"vColor":              0,
		"vTextureCoord":       1,
	}
	for name, loc := range want {
		if got[name] != loc {
			t.Errorf("location of %s = %d, want %d", name, got[name], loc)
		}
	}
	if len(got) != len(want) {
		t.Errorf("declaredLocations() found %d names, want %d: %v", len(got), len(want), got)
	}
}

func TestMentions(t *testing.T) {
	src := "struct T { uProjectionMatrix: mat4x4<f32> }\nvar uSampler2: texture_2d<f32>;"
	tests := []struct {
		name string
		want bool
	}{
		{"uProjectionMatrix", true},
		{"uSampler2", true},
		{"uSampler", false},
		{"uModelViewMatrix", false},
	}
	for _, tt := range tests {
		if got := mentions(src, tt.name); got != tt.want {
			t.Errorf("mentions(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsAttribute(t *testing.T) {
	for name, want := range map[string]bool{
		"aVertexPosition": true,
		"aTextureCoord":   true,
		"vColor":          false,
		"a":               false,
		"alpha":           false,
	} {
		if got := isAttribute(name); got != want {
			t.Errorf("isAttribute(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestAlignedPitch(t *testing.T) {
	tests := []struct{ width, want int }{
		{1, 256},
		{64, 256},
		{65, 512},
		{100, 512},
		{640, 2560},
	}
	for _, tt := range tests {
		if got := alignedPitch(tt.width); got != tt.want {
			t.Errorf("alignedPitch(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestUnpackRows(t *testing.T) {
	const w, h, pitch = 2, 3, 256
	src := make([]byte, pitch*h)
	for y := range h {
		for i := range w * 4 {
			src[y*pitch+i] = byte(y + 1)
		}
	}
	dst := make([]byte, w*h*4)
	unpackRows(dst, src, w, h, pitch)
	for y := range h {
		// Row 0 of dst is the bottom row, the last row of src.
		if want := byte(h - y); dst[y*w*4] != want {
			t.Errorf("dst row %d = %d, want %d", y, dst[y*w*4], want)
		}
	}
}

func TestVertexLayouts(t *testing.T) {
	var key pipelineKey
	key.components[0] = 2
	layouts := vertexLayouts(key, []int32{0, 1})
	if len(layouts) != 2 {
		t.Fatalf("vertexLayouts() = %d layouts, want 2", len(layouts))
	}
	if layouts[0].ArrayStride != 8 || layouts[0].Attributes[0].Format != gputypes.VertexFormatFloat32x2 {
		t.Errorf("bound layout = %+v", layouts[0])
	}
	if layouts[1].ArrayStride != 0 || layouts[1].Attributes[0].Format != gputypes.VertexFormatFloat32x4 {
		t.Errorf("default layout = %+v", layouts[1])
	}
	if layouts[1].Attributes[0].ShaderLocation != 1 {
		t.Errorf("default layout location = %d, want 1", layouts[1].Attributes[0].ShaderLocation)
	}
}

func TestDeviceLifecycle(t *testing.T) {
	d := newNoopDevice(t, 32, 16)

	if w, h := d.SurfaceSize(); w != 32 || h != 16 {
		t.Errorf("SurfaceSize() = %dx%d, want 32x16", w, h)
	}
	if err := d.Resize(8, 8); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if w, h := d.SurfaceSize(); w != 8 || h != 8 {
		t.Errorf("SurfaceSize() after resize = %dx%d, want 8x8", w, h)
	}
	if err := d.Resize(0, 8); err == nil {
		t.Error("Resize(0, 8) succeeded")
	}

	buf, err := d.CreateBuffer(gpucore.BufferUsageVertex, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	if got := d.buffers[buf].size; got != 3 {
		t.Errorf("buffer size = %d, want 3", got)
	}
	if err := d.ReadBuffer(buf, make([]byte, 3)); err != nil {
		t.Errorf("ReadBuffer() error = %v", err)
	}
	d.DestroyBuffer(buf)
	d.DestroyBuffer(buf)
	if err := d.ReadBuffer(buf, make([]byte, 3)); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("ReadBuffer(destroyed) error = %v, want ErrUnknownResource", err)
	}

	tex, fb, err := d.CreateRenderTarget(4, 2)
	if err != nil {
		t.Fatalf("CreateRenderTarget() error = %v", err)
	}
	if w, h := d.TextureSize(tex); w != 4 || h != 2 {
		t.Errorf("TextureSize() = %dx%d, want 4x2", w, h)
	}
	if err := d.ReadPixels(fb, make([]byte, 4*2*4)); err != nil {
		t.Errorf("ReadPixels() error = %v", err)
	}
	if err := d.ReadPixels(fb, make([]byte, 4)); err == nil {
		t.Error("ReadPixels() with a short buffer succeeded")
	}
	d.DestroyRenderTarget(tex, fb)
	if w, h := d.TextureSize(tex); w != 0 || h != 0 {
		t.Errorf("TextureSize(destroyed) = %dx%d, want 0x0", w, h)
	}
}

func TestCompileRejectsInvalidWGSL(t *testing.T) {
	d := newNoopDevice(t, 4, 4)
	_, err := d.CompileShader(gpucore.StageFragment, gpucore.ShaderSource{Name: "broken.frag", WGSL: "fn fs_main( {"})
	if err == nil {
		t.Fatal("CompileShader() accepted invalid WGSL")
	}
	if _, err := d.CompileShader(gpucore.StageFragment, gpucore.ShaderSource{Name: "empty.frag"}); err == nil {
		t.Error("CompileShader() accepted an empty source")
	}
}

func TestCatalogOnNoop(t *testing.T) {
	d := newNoopDevice(t, 16, 16)

	var sources []shader.Source
	for _, name := range []string{shader.ProgramScene, shader.ProgramBlend} {
		src, err := shader.Lookup(name)
		if err != nil {
			t.Fatal(err)
		}
		sources = append(sources, src)
	}
	programs, err := shader.BuildAll(d, sources)
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
	defer programs.Release(d)

	scene, err := programs.Get(shader.ProgramScene)
	if err != nil {
		t.Fatal(err)
	}
	if scene.Sampler.Present() {
		t.Error("scene program reports a uSampler location")
	}
	blend, err := programs.Get(shader.ProgramBlend)
	if err != nil {
		t.Fatal(err)
	}
	if !blend.Sampler2.Present() {
		t.Error("blend program has no uSampler2 location")
	}

	targets, err := render.NewTargets(d, render.ResizeRecreate, []string{"scene"})
	if err != nil {
		t.Fatalf("NewTargets() error = %v", err)
	}
	defer targets.Release()

	circle, err := render.Upload(d, bloom.DefaultCircle())
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	defer circle.Release(d)
	quad, err := render.Upload(d, bloom.ScreenQuad())
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	defer quad.Release(d)

	sceneTarget, err := targets.Get("scene")
	if err != nil {
		t.Fatal(err)
	}
	dr := render.NewDrawer(d)
	if err := dr.BeginPass(sceneTarget.Framebuffer); err != nil {
		t.Fatalf("BeginPass() error = %v", err)
	}
	obj := render.Object{
		Program:    scene,
		Buffers:    circle,
		Projection: bloom.Perspective(16, 16),
		ModelView:  bloom.SceneModelView(0),
	}
	if err := dr.Draw(obj); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if err := dr.EndPass(); err != nil {
		t.Fatalf("EndPass() error = %v", err)
	}

	if err := dr.BeginPass(gpucore.ScreenFramebuffer); err != nil {
		t.Fatalf("BeginPass(screen) error = %v", err)
	}
	if err := dr.DrawFullScreen(blend, quad, sceneTarget.Texture, sceneTarget.Texture); err != nil {
		t.Fatalf("DrawFullScreen() error = %v", err)
	}
	if err := dr.EndPass(); err != nil {
		t.Fatalf("EndPass(screen) error = %v", err)
	}
	if err := d.Present(); err != nil {
		t.Fatal(err)
	}
	if d.Presents() != 1 {
		t.Errorf("Presents() = %d, want 1", d.Presents())
	}
	if got := len(d.programs[scene.ID].pipelines); got != 1 {
		t.Errorf("scene program cached %d pipelines, want 1", got)
	}
}

func TestDrawOutsidePass(t *testing.T) {
	d := newNoopDevice(t, 4, 4)
	if err := d.Draw(&gpucore.DrawCall{}); !errors.Is(err, gpucore.ErrNoPass) {
		t.Errorf("Draw() error = %v, want ErrNoPass", err)
	}
	if err := d.EndPass(); !errors.Is(err, gpucore.ErrNoPass) {
		t.Errorf("EndPass() error = %v, want ErrNoPass", err)
	}
}

func TestNewFromProvider(t *testing.T) {
	instance, device, queue := openNoop(t)
	defer instance.Destroy()
	host := &hostDevice{Device: device}
	defer host.Device.Destroy()

	d, err := NewFromProvider(&hostProvider{device: host, queue: queue}, 8, 8)
	if err != nil {
		t.Fatalf("NewFromProvider() error = %v", err)
	}
	if w, h := d.SurfaceSize(); w != 8 || h != 8 {
		t.Errorf("SurfaceSize() = %dx%d, want 8x8", w, h)
	}

	src, err := shader.Lookup(shader.ProgramScene)
	if err != nil {
		t.Fatal(err)
	}
	scene, err := shader.Build(d, src)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	circle, err := render.Upload(d, bloom.DefaultCircle())
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	dr := render.NewDrawer(d)
	if err := dr.BeginPass(gpucore.ScreenFramebuffer); err != nil {
		t.Fatalf("BeginPass() error = %v", err)
	}
	err = dr.Draw(render.Object{
		Program:    scene,
		Buffers:    circle,
		Projection: bloom.Perspective(8, 8),
		ModelView:  bloom.SceneModelView(0),
	})
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if err := dr.EndPass(); err != nil {
		t.Fatalf("EndPass() error = %v", err)
	}
	if err := d.Present(); err != nil {
		t.Fatal(err)
	}
	if d.Presents() != 1 {
		t.Errorf("Presents() = %d, want 1", d.Presents())
	}

	d.Close()
	if host.destroyed != 0 {
		t.Errorf("Close destroyed the shared device %d times", host.destroyed)
	}
	if _, err := host.CreateBuffer(&hal.BufferDescriptor{Label: "after_close", Size: 4, Usage: gputypes.BufferUsageVertex}); err != nil {
		t.Errorf("shared device unusable after Close: %v", err)
	}
}

func TestNewFromProviderRejectsForeignHandles(t *testing.T) {
	instance, device, queue := openNoop(t)
	defer instance.Destroy()
	defer device.Destroy()

	tests := []struct {
		name     string
		provider gpucontext.DeviceProvider
	}{
		{"no HAL accessors", &plainProvider{hostProvider{device: device, queue: queue}}},
		{"wrong device type", &opaqueProvider{hostProvider{device: device, queue: queue}}},
		{"nil queue", &hostProvider{device: device}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewFromProvider(tt.provider, 4, 4)
			if !errors.Is(err, ErrProvider) {
				t.Errorf("NewFromProvider() error = %v, want ErrProvider", err)
			}
			if d != nil {
				t.Error("NewFromProvider() returned a device on error")
			}
		})
	}
}
