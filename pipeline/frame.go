package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/gpucore"
	"github.com/gogpu/bloom/render"
)

// RenderFrame renders one frame at animation time t and presents it.
//
// The scene uses a 45 degree perspective over the surface aspect and a
// model-view that moves the shape 6 units away and spins it by t seconds
// around y. Passes run in order; each completes before the next samples
// its output.
func (c *PipelineContext) RenderFrame(t time.Duration) error {
	start := time.Now()
	err := c.renderFrame(t)
	c.metrics.Frame(time.Since(start), err)
	if err != nil {
		return fmt.Errorf("pipeline: frame %d: %w", c.frames, err)
	}
	c.frames++
	return nil
}

func (c *PipelineContext) renderFrame(t time.Duration) error {
	if err := c.applyPending(); err != nil {
		return err
	}
	recreated, err := c.targets.Sync()
	if err != nil {
		return err
	}
	if recreated {
		c.metrics.Resize()
	}

	w, h := c.dev.SurfaceSize()
	proj := bloom.Perspective(w, h)
	mv := bloom.SceneModelView(t)
	for _, p := range c.schedule {
		if err := c.runPass(p, proj, mv); err != nil {
			return fmt.Errorf("pass %q: %w", p.Name, err)
		}
	}
	return c.dev.Present()
}

func (c *PipelineContext) runPass(p PassDescriptor, proj, mv mgl32.Mat4) error {
	start := time.Now()
	out, err := c.targets.Get(p.Output)
	if err != nil {
		return err
	}
	prog, err := c.programs.Get(p.Program)
	if err != nil {
		return err
	}
	var tex [2]gpucore.TextureID
	for i, name := range p.Sources {
		src, err := c.targets.Get(name)
		if err != nil {
			return err
		}
		tex[i] = src.Texture
	}

	if err := c.drawer.BeginPass(out.Framebuffer); err != nil {
		return err
	}
	switch p.Kind {
	case KindFullScreen:
		err = c.drawer.DrawFullScreen(prog, c.quad, tex[0], tex[1])
	default:
		err = c.drawer.Draw(render.Object{
			Program:    prog,
			Buffers:    c.shape,
			Textures:   tex,
			Projection: proj,
			ModelView:  mv,
		})
	}
	if err = errors.Join(err, c.drawer.EndPass()); err != nil {
		return err
	}

	elapsed := time.Since(start)
	c.metrics.Pass(p.Name, p.Program, elapsed)
	bloom.Logger().Debug("pipeline: pass",
		"pass", p.Name,
		"program", p.Program,
		"output", p.Output,
		"sources", p.Sources,
		"elapsed", elapsed)
	return nil
}
