package soft

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/gpucore"
)

func floatBytes(vals ...float32) []byte {
	b := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func link(t *testing.T, d *Device, vs, fs string) gpucore.ProgramID {
	t.Helper()
	v, err := d.CompileShader(gpucore.StageVertex, gpucore.ShaderSource{Name: vs})
	if err != nil {
		t.Fatalf("compile %s: %v", vs, err)
	}
	f, err := d.CompileShader(gpucore.StageFragment, gpucore.ShaderSource{Name: fs})
	if err != nil {
		t.Fatalf("compile %s: %v", fs, err)
	}
	p, err := d.LinkProgram(v, f)
	if err != nil {
		t.Fatalf("link %s+%s: %v", vs, fs, err)
	}
	return p
}

func newBuffer(t *testing.T, d *Device, vals ...float32) gpucore.BufferID {
	t.Helper()
	id, err := d.CreateBuffer(gpucore.BufferUsageVertex, floatBytes(vals...))
	if err != nil {
		t.Fatal(err)
	}
	return id
}

// quadCall draws a full-screen strip with identity transforms.
func quadCall(t *testing.T, d *Device, p gpucore.ProgramID, color bloom.RGBA, z float32) *gpucore.DrawCall {
	t.Helper()
	pos := newBuffer(t, d, -1, -1, z, 1, -1, z, -1, 1, z, 1, 1, z)
	var colors []float32
	for range 4 {
		colors = append(colors, color.R, color.G, color.B, color.A)
	}
	col := newBuffer(t, d, colors...)
	uv := newBuffer(t, d, 0, 0, 1, 0, 0, 1, 1, 1)
	return &gpucore.DrawCall{
		Program: p,
		Attributes: []gpucore.VertexAttrib{
			{Location: d.AttribLocation(p, "aVertexPosition"), Buffer: pos, Components: 3},
			{Location: d.AttribLocation(p, "aVertexColor"), Buffer: col, Components: 4},
			{Location: d.AttribLocation(p, "aTextureCoord"), Buffer: uv, Components: 2},
		},
		Topology: gpucore.TriangleStrip,
		Count:    4,
		Uniforms: []gpucore.MatrixUniform{
			{Location: d.UniformLocation(p, "uProjectionMatrix"), Value: mgl32.Ident4()},
			{Location: d.UniformLocation(p, "uModelViewMatrix"), Value: mgl32.Ident4()},
		},
	}
}

func pixel(t *testing.T, d *Device, fb gpucore.FramebufferID, x, y int) [4]uint8 {
	t.Helper()
	s, err := d.framebuffer(fb)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, s.width*s.height*4)
	if err := d.ReadPixels(fb, buf); err != nil {
		t.Fatal(err)
	}
	i := (y*s.width + x) * 4
	return [4]uint8{buf[i], buf[i+1], buf[i+2], buf[i+3]}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		stage gpucore.Stage
		src   string
		want  string
	}{
		{"empty", gpucore.StageVertex, "", "empty"},
		{"unknown vertex", gpucore.StageVertex, "nope.vert", "no vertex kernel"},
		{"unknown fragment", gpucore.StageFragment, "nope.frag", "no fragment kernel"},
		{"fragment as vertex", gpucore.StageVertex, "scene.frag", "is a fragment kernel"},
		{"vertex as fragment", gpucore.StageFragment, "transform.vert", "is a vertex kernel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(1, 1)
			_, err := d.CompileShader(tt.stage, gpucore.ShaderSource{Name: tt.src})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("CompileShader() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLinkVaryingMismatch(t *testing.T) {
	RegisterFragment("wide.test.frag", FragmentKernel{
		Inputs: MaxVaryings,
		Run:    func(*Varyings, Samplers) bloom.RGBA { return bloom.White },
	})
	defer Unregister("wide.test.frag")

	d := New(1, 1)
	v, _ := d.CompileShader(gpucore.StageVertex, gpucore.ShaderSource{Name: "transform.vert"})
	f, err := d.CompileShader(gpucore.StageFragment, gpucore.ShaderSource{Name: "wide.test.frag"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.LinkProgram(v, f); err == nil {
		t.Error("LinkProgram() succeeded with unmatched varyings")
	}
	if _, err := d.LinkProgram(f, v); err == nil {
		t.Error("LinkProgram() succeeded with swapped stages")
	}
}

func TestLocations(t *testing.T) {
	d := New(1, 1)
	scene := link(t, d, "transform.vert", "scene.frag")
	blend := link(t, d, "transform.vert", "blend.frag")

	for i, name := range []string{"aVertexPosition", "aVertexColor", "aTextureCoord"} {
		if got := d.AttribLocation(scene, name); got != gpucore.At(int32(i)) {
			t.Errorf("AttribLocation(%s) = %v, want %d", name, got, i)
		}
	}
	if d.UniformLocation(scene, "uSampler").Present() {
		t.Error("scene program resolves uSampler")
	}
	if !d.UniformLocation(blend, "uSampler2").Present() {
		t.Error("blend program lacks uSampler2")
	}
	if d.AttribLocation(blend, "aMissing").Present() {
		t.Error("unknown attribute resolved")
	}
	if d.UniformLocation(gpucore.ProgramID(999), "uSampler").Present() {
		t.Error("unknown program resolved a uniform")
	}
}

func TestFullScreenThreshold(t *testing.T) {
	d := New(4, 4)
	p := link(t, d, "transform.vert", "threshold.frag")
	tex, fb, err := d.CreateRenderTarget(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer d.DestroyRenderTarget(tex, fb)

	if err := d.BeginPass(gpucore.DefaultPassState(fb)); err != nil {
		t.Fatal(err)
	}
	if err := d.Draw(quadCall(t, d, p, bloom.White, 0)); err != nil {
		t.Fatal(err)
	}
	if err := d.EndPass(); err != nil {
		t.Fatal(err)
	}

	for y := range 4 {
		for x := range 4 {
			if got := pixel(t, d, fb, x, y); got != [4]uint8{255, 255, 255, 255} {
				t.Fatalf("pixel(%d,%d) = %v, want opaque white", x, y, got)
			}
		}
	}
	// Centers on the shared diagonal belong to both triangles.
	if st := d.Stats(); st.Triangles != 2 || st.Fragments != 20 {
		t.Errorf("Stats() = %+v, want 2 triangles and 20 fragments", st)
	}
}

func TestDepthCompare(t *testing.T) {
	tests := []struct {
		name string
		fn   gpucore.CompareFunc
		want uint8
	}{
		{"lequal redraws equal depth", gpucore.CompareLessEqual, 255},
		{"less keeps first", gpucore.CompareLess, 0},
		{"always redraws", gpucore.CompareAlways, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(2, 2)
			p := link(t, d, "transform.vert", "threshold.frag")
			state := gpucore.DefaultPassState(gpucore.ScreenFramebuffer)
			state.DepthFunc = tt.fn
			if err := d.BeginPass(state); err != nil {
				t.Fatal(err)
			}
			if err := d.Draw(quadCall(t, d, p, bloom.Black, 0.2)); err != nil {
				t.Fatal(err)
			}
			if err := d.Draw(quadCall(t, d, p, bloom.White, 0.2)); err != nil {
				t.Fatal(err)
			}
			_ = d.EndPass()
			if got := pixel(t, d, gpucore.ScreenFramebuffer, 1, 1); got[0] != tt.want {
				t.Errorf("red = %d, want %d", got[0], tt.want)
			}
		})
	}
}

func TestDepthOutsideRangeDiscarded(t *testing.T) {
	d := New(2, 2)
	p := link(t, d, "transform.vert", "threshold.frag")
	_ = d.BeginPass(gpucore.DefaultPassState(gpucore.ScreenFramebuffer))
	if err := d.Draw(quadCall(t, d, p, bloom.White, 1.5)); err != nil {
		t.Fatal(err)
	}
	_ = d.EndPass()
	if got := pixel(t, d, gpucore.ScreenFramebuffer, 0, 0); got != [4]uint8{0, 0, 0, 255} {
		t.Errorf("pixel = %v, want clear color", got)
	}
}

func TestMissingColorReadsOpaqueBlack(t *testing.T) {
	d := New(2, 2)
	p := link(t, d, "transform.vert", "scene.frag")
	tex, fb, _ := d.CreateRenderTarget(2, 2)
	defer d.DestroyRenderTarget(tex, fb)

	state := gpucore.DefaultPassState(fb)
	state.ClearColor = [4]float32{1, 0, 0, 0}
	_ = d.BeginPass(state)
	call := quadCall(t, d, p, bloom.White, 0)
	call.Attributes = call.Attributes[:1]
	if err := d.Draw(call); err != nil {
		t.Fatal(err)
	}
	_ = d.EndPass()
	if got := pixel(t, d, fb, 1, 0); got != [4]uint8{0, 0, 0, 255} {
		t.Errorf("pixel = %v, want opaque black", got)
	}
}

func TestIndexedDrawBottomRowFirst(t *testing.T) {
	d := New(2, 2)
	p := link(t, d, "transform.vert", "threshold.frag")
	call := quadCall(t, d, p, bloom.White, 0)

	// Two triangles spanning the bottom half only.
	call.Attributes[0].Buffer = newBuffer(t, d, -1, -1, 0, 1, -1, 0, -1, 0, 0, 1, 0, 0)
	idx := make([]byte, 12)
	for i, v := range []uint16{0, 1, 2, 2, 1, 3} {
		binary.LittleEndian.PutUint16(idx[i*2:], v)
	}
	ib, _ := d.CreateBuffer(gpucore.BufferUsageIndex, idx)
	call.IndexBuffer = ib
	call.Topology = gpucore.TriangleList
	call.Count = 6

	_ = d.BeginPass(gpucore.DefaultPassState(gpucore.ScreenFramebuffer))
	if err := d.Draw(call); err != nil {
		t.Fatal(err)
	}
	_ = d.EndPass()

	if got := pixel(t, d, gpucore.ScreenFramebuffer, 0, 0); got[0] != 255 {
		t.Errorf("bottom row = %v, want white", got)
	}
	if got := pixel(t, d, gpucore.ScreenFramebuffer, 0, 1); got[0] != 0 {
		t.Errorf("top row = %v, want black", got)
	}
}

func TestDrawOutsidePass(t *testing.T) {
	d := New(1, 1)
	p := link(t, d, "transform.vert", "scene.frag")
	if err := d.Draw(&gpucore.DrawCall{Program: p}); !errors.Is(err, gpucore.ErrNoPass) {
		t.Errorf("Draw() error = %v, want ErrNoPass", err)
	}
	if err := d.EndPass(); !errors.Is(err, gpucore.ErrNoPass) {
		t.Errorf("EndPass() error = %v, want ErrNoPass", err)
	}
}

func TestUnknownResources(t *testing.T) {
	d := New(1, 1)
	if err := d.BeginPass(gpucore.DefaultPassState(gpucore.FramebufferID(42))); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("BeginPass() error = %v", err)
	}
	if err := d.ReadBuffer(gpucore.BufferID(42), nil); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("ReadBuffer() error = %v", err)
	}
	_ = d.BeginPass(gpucore.DefaultPassState(gpucore.ScreenFramebuffer))
	if err := d.Draw(&gpucore.DrawCall{Program: 42}); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("Draw() error = %v", err)
	}
}

func TestResourceLifetime(t *testing.T) {
	d := New(8, 8)
	b := newBuffer(t, d, 1, 2, 3)
	got := make([]byte, 12)
	if err := d.ReadBuffer(b, got); err != nil {
		t.Fatal(err)
	}
	if string(got) != string(floatBytes(1, 2, 3)) {
		t.Errorf("ReadBuffer() = %v", got)
	}

	p := link(t, d, "transform.vert", "scene.frag")
	tex, fb, _ := d.CreateRenderTarget(3, 5)
	if w, h := d.TextureSize(tex); w != 3 || h != 5 {
		t.Errorf("TextureSize() = %dx%d, want 3x5", w, h)
	}
	if bufs, progs, texs := d.Live(); bufs != 1 || progs != 1 || texs != 1 {
		t.Errorf("Live() = %d %d %d", bufs, progs, texs)
	}
	d.DestroyBuffer(b)
	d.DestroyProgram(p)
	d.DestroyRenderTarget(tex, fb)
	if bufs, progs, texs := d.Live(); bufs+progs+texs != 0 {
		t.Errorf("Live() after destroy = %d %d %d", bufs, progs, texs)
	}
	if _, _, err := d.CreateRenderTarget(0, 4); err == nil {
		t.Error("CreateRenderTarget(0, 4) succeeded")
	}
}

func TestResize(t *testing.T) {
	d := New(4, 3)
	d.Resize(8, 6)
	if w, h := d.SurfaceSize(); w != 8 || h != 6 {
		t.Errorf("SurfaceSize() = %dx%d, want 8x6", w, h)
	}
}
