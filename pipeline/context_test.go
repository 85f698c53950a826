package pipeline

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/backend/soft"
	"github.com/gogpu/bloom/gpucore"
	"github.com/gogpu/bloom/internal/metrics"
	"github.com/gogpu/bloom/render"
	"github.com/gogpu/bloom/shader"
)

func newContext(t *testing.T, dev gpucore.Device, cfg Config) *PipelineContext {
	t.Helper()
	c, err := New(dev, cfg)
	require.NoError(t, err)
	t.Cleanup(c.Release)
	return c
}

func TestBloomFrameOpaqueAndLit(t *testing.T) {
	dev := soft.New(100, 100)
	c := newContext(t, dev, DefaultConfig())

	require.NoError(t, c.RenderFrame(0))
	img, err := c.Image()
	require.NoError(t, err)

	lit := 0
	for i := 0; i < len(img.Pix); i += 4 {
		require.Equal(t, uint8(255), img.Pix[i+3], "alpha at pixel %d", i/4)
		if img.Pix[i]|img.Pix[i+1]|img.Pix[i+2] != 0 {
			lit++
		}
	}
	assert.Positive(t, lit, "screen is all black")
	assert.Equal(t, 11, dev.Stats().Passes)
	assert.Equal(t, 1, dev.Stats().Presents)
	assert.Equal(t, uint64(1), c.Frames())
}

func TestBloomGlowsBeyondShape(t *testing.T) {
	dev := soft.New(64, 64)
	basic := DefaultConfig()
	basic.Preset = PresetBasic
	plain := newContext(t, dev, basic)
	require.NoError(t, plain.RenderFrame(0))
	before, err := plain.Image()
	require.NoError(t, err)

	dev2 := soft.New(64, 64)
	glowing := newContext(t, dev2, DefaultConfig())
	require.NoError(t, glowing.RenderFrame(0))
	after, err := glowing.Image()
	require.NoError(t, err)

	// The glow lightens pixels outside the shape.
	assert.Greater(t, litPixels(after), litPixels(before))
}

func litPixels(img *image.NRGBA) int {
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i]|img.Pix[i+1]|img.Pix[i+2] != 0 {
			n++
		}
	}
	return n
}

func thresholdConfig(c bloom.RGBA) Config {
	g := bloom.Quad()
	for i := 0; i < len(g.Colors); i += 4 {
		g.Colors[i], g.Colors[i+1], g.Colors[i+2], g.Colors[i+3] = c.R, c.G, c.B, c.A
	}
	cfg := DefaultConfig()
	cfg.Geometry = &g
	cfg.Passes = &Descriptor{Name: "threshold", Passes: []PassDescriptor{
		scenePass("threshold", shader.ProgramThreshold, render.Screen),
	}}
	return cfg
}

func TestThresholdPass(t *testing.T) {
	tests := []struct {
		name  string
		color bloom.RGBA
		want  [4]uint8
	}{
		{"white stays white", bloom.White, [4]uint8{255, 255, 255, 255}},
		{"dim goes black", bloom.RGB(0.4, 0.4, 0.4), [4]uint8{0, 0, 0, 255}},
		{"half lightness goes black", bloom.RGB(1, 0, 0), [4]uint8{0, 0, 0, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := soft.New(100, 100)
			c := newContext(t, dev, thresholdConfig(tt.color))
			require.NoError(t, c.RenderFrame(0))
			img, err := c.Image()
			require.NoError(t, err)

			i := img.PixOffset(50, 50)
			assert.Equal(t, tt.want[:], img.Pix[i:i+4])
			corner := img.PixOffset(0, 0)
			assert.Equal(t, []uint8{0, 0, 0, 255}, img.Pix[corner:corner+4], "clear color")
		})
	}
}

type failingCompiler struct {
	*soft.Device
	stage string
}

func (f failingCompiler) CompileShader(stage gpucore.Stage, src gpucore.ShaderSource) (gpucore.ShaderID, error) {
	if src.Name == f.stage {
		return gpucore.InvalidID, errors.New("0:1(1): error: syntax error")
	}
	return f.Device.CompileShader(stage, src)
}

func TestNewAbortsOnCompileError(t *testing.T) {
	dev := soft.New(16, 16)
	_, err := New(failingCompiler{Device: dev, stage: shader.StageBlend}, DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, shader.ErrCompile)

	var ce *shader.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, shader.ProgramBlend, ce.Program)
	assert.Contains(t, ce.Log, "syntax error")

	buffers, programs, textures := dev.Live()
	assert.Zero(t, buffers+programs+textures, "nothing leaks")
}

func TestNewRejectsBadConfig(t *testing.T) {
	dev := soft.New(8, 8)

	_, err := New(nil, DefaultConfig())
	assert.ErrorIs(t, err, gpucore.ErrNoDevice)

	cfg := DefaultConfig()
	cfg.Preset = "sepia"
	_, err = New(dev, cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Passes = &Descriptor{}
	_, err = New(dev, cfg)
	assert.ErrorIs(t, err, ErrInvalidDescriptor)

	cfg = DefaultConfig()
	cfg.Segments = 2
	_, err = New(dev, cfg)
	assert.ErrorIs(t, err, bloom.ErrTooFewSegments)

	cfg = DefaultConfig()
	cfg.Shape = "torus"
	_, err = New(dev, cfg)
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	dev := soft.New(32, 32)
	reg := prometheus.NewRegistry()
	cfg := DefaultConfig()
	cfg.Metrics = metrics.New(reg)
	c := newContext(t, dev, cfg)
	require.Len(t, c.Targets().Names(), 4)

	assert.ErrorIs(t, c.Reload(Descriptor{Name: "broken"}), ErrInvalidDescriptor)
	assert.Equal(t, PresetBloom, c.Descriptor().Name)

	basic, err := Preset(PresetBasic, 0)
	require.NoError(t, err)
	require.NoError(t, c.Reload(basic))
	assert.Equal(t, PresetBloom, c.Descriptor().Name, "applied on the next frame")

	require.NoError(t, c.RenderFrame(time.Second))
	assert.Equal(t, PresetBasic, c.Descriptor().Name)
	assert.Empty(t, c.Targets().Names())
	_, _, textures := dev.Live()
	assert.Zero(t, textures, "old targets released")

	assert.Equal(t, 1.0, testutil.ToFloat64(cfg.Metrics.Reloads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(cfg.Metrics.Reloads.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(cfg.Metrics.Frames))
}

func TestResizePolicy(t *testing.T) {
	tests := []struct {
		policy render.ResizePolicy
		want   [2]int
	}{
		{render.ResizeRecreate, [2]int{40, 20}},
		{render.ResizeFixed, [2]int{30, 30}},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			dev := soft.New(30, 30)
			cfg := DefaultConfig()
			cfg.Resize = tt.policy
			c := newContext(t, dev, cfg)
			require.NoError(t, c.RenderFrame(0))

			dev.Resize(40, 20)
			require.NoError(t, c.RenderFrame(0))
			w, h := c.Targets().Size()
			assert.Equal(t, tt.want, [2]int{w, h})

			img, err := c.TargetImage(TargetScene)
			require.NoError(t, err)
			assert.Equal(t, tt.want[0], img.Bounds().Dx())

			screen, err := c.Image()
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 40, 20), screen.Bounds())
		})
	}
}

func TestRunStepScheduler(t *testing.T) {
	dev := soft.New(16, 16)
	c := newContext(t, dev, DefaultConfig())

	err := c.Run(context.Background(), &StepScheduler{Step: time.Second / 30, Frames: 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), c.Frames())
	assert.Equal(t, 3, dev.Stats().Presents)
}

func TestRunCancelled(t *testing.T) {
	dev := soft.New(8, 8)
	c := newContext(t, dev, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Run(ctx, &StepScheduler{Step: time.Millisecond})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, c.Frames())
}

func TestRunTickerScheduler(t *testing.T) {
	dev := soft.New(8, 8)
	c := newContext(t, dev, DefaultConfig())

	s := NewTickerScheduler(time.Millisecond, 2)
	defer s.Stop()
	require.NoError(t, c.Run(context.Background(), s))
	assert.Equal(t, uint64(2), c.Frames())
}

type failingPresent struct{ *soft.Device }

func (failingPresent) Present() error { return errors.New("surface lost") }

func TestRunReturnsFrameError(t *testing.T) {
	c := newContext(t, failingPresent{soft.New(8, 8)}, DefaultConfig())
	err := c.Run(context.Background(), &StepScheduler{Step: time.Millisecond, Frames: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "surface lost")
	assert.Zero(t, c.Frames())
}

func TestReleaseTwice(t *testing.T) {
	dev := soft.New(8, 8)
	c, err := New(dev, DefaultConfig())
	require.NoError(t, err)
	c.Release()
	c.Release()
	buffers, programs, textures := dev.Live()
	assert.Zero(t, buffers+programs+textures)
}
