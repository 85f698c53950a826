package pipeline

import (
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/gpucore"
	"github.com/gogpu/bloom/internal/metrics"
	"github.com/gogpu/bloom/render"
	"github.com/gogpu/bloom/shader"
)

// PipelineContext owns everything a frame needs: the device, the built
// programs, the uploaded shapes, the targets and the pass chain.
//
// Frames must run on one goroutine. Reload may be called from any
// goroutine; the new chain takes effect at the start of the next frame.
type PipelineContext struct {
	dev      gpucore.Device
	programs shader.Set
	shape    *render.BufferSet
	quad     *render.BufferSet
	targets  *render.Targets
	drawer   *render.Drawer
	policy   render.ResizePolicy
	metrics  *metrics.Recorder

	desc     Descriptor
	schedule []PassDescriptor
	frames   uint64

	mu      sync.Mutex
	pending *Descriptor
}

// New builds every program, uploads the scene shape and the screen quad
// and allocates the targets of the configured chain. The first failure
// releases what was created and is returned; a shader failure matches
// shader.ErrCompile or shader.ErrLink.
func New(dev gpucore.Device, cfg Config) (_ *PipelineContext, err error) {
	if dev == nil {
		return nil, gpucore.ErrNoDevice
	}
	desc, err := cfg.Descriptor()
	if err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	geom, err := cfg.SceneGeometry()
	if err != nil {
		return nil, err
	}

	c := &PipelineContext{
		dev:     dev,
		drawer:  render.NewDrawer(dev),
		policy:  cfg.Resize,
		metrics: cfg.Metrics,
	}
	defer func() {
		if err != nil {
			c.Release()
		}
	}()

	if c.programs, err = shader.BuildAll(dev, shader.Catalog()); err != nil {
		return nil, fmt.Errorf("pipeline: build programs: %w", err)
	}
	if c.shape, err = render.Upload(dev, geom); err != nil {
		return nil, fmt.Errorf("pipeline: scene shape: %w", err)
	}
	if c.quad, err = render.Upload(dev, bloom.ScreenQuad()); err != nil {
		return nil, fmt.Errorf("pipeline: screen quad: %w", err)
	}
	if c.targets, err = render.NewTargets(dev, cfg.Resize, desc.Targets()); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	c.use(desc)

	bloom.Logger().Info("pipeline: ready",
		"device", dev.Name(),
		"chain", desc.Name,
		"passes", len(c.schedule))
	return c, nil
}

func (c *PipelineContext) use(d Descriptor) {
	c.desc = d
	c.schedule = d.Schedule()
}

// Device returns the device the pipeline renders with.
func (c *PipelineContext) Device() gpucore.Device { return c.dev }

// Descriptor returns a copy of the active pass chain.
func (c *PipelineContext) Descriptor() Descriptor { return c.desc.Clone() }

// Targets returns the off-screen targets.
func (c *PipelineContext) Targets() *render.Targets { return c.targets }

// Frames returns the number of frames rendered.
func (c *PipelineContext) Frames() uint64 { return c.frames }

// Reload validates d and queues it for the next frame. An invalid chain is
// rejected and the active one stays.
func (c *PipelineContext) Reload(d Descriptor) error {
	err := d.Validate()
	c.metrics.Reload(err)
	if err != nil {
		bloom.Logger().Warn("pipeline: reload rejected", "chain", d.Name, "err", err)
		return err
	}
	d = d.Clone()
	c.mu.Lock()
	c.pending = &d
	c.mu.Unlock()
	return nil
}

// applyPending swaps in a queued chain, reallocating targets when the set
// of written targets changed.
func (c *PipelineContext) applyPending() error {
	c.mu.Lock()
	next := c.pending
	c.pending = nil
	c.mu.Unlock()
	if next == nil {
		return nil
	}

	if names := next.Targets(); !slices.Equal(names, c.targets.Names()) {
		targets, err := render.NewTargets(c.dev, c.policy, names)
		if err != nil {
			return fmt.Errorf("pipeline: reload %q: %w", next.Name, err)
		}
		c.targets.Release()
		c.targets = targets
	}
	c.use(*next)
	bloom.Logger().Info("pipeline: chain reloaded", "chain", next.Name, "passes", len(c.schedule))
	return nil
}

// Image reads the visible surface back, top row first.
func (c *PipelineContext) Image() (*image.NRGBA, error) {
	w, h := c.dev.SurfaceSize()
	return render.ReadImage(c.dev, gpucore.ScreenFramebuffer, w, h)
}

// TargetImage reads an off-screen target back.
func (c *PipelineContext) TargetImage(name string) (*image.NRGBA, error) {
	t, err := c.targets.Get(name)
	if err != nil {
		return nil, err
	}
	return t.Image(c.dev)
}

// Release destroys every device resource. It is safe to call more than
// once.
func (c *PipelineContext) Release() {
	if c == nil {
		return
	}
	c.targets.Release()
	c.shape.Release(c.dev)
	c.quad.Release(c.dev)
	c.programs.Release(c.dev)
}
