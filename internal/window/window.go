//go:build cgo

package window

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gogpu/bloom"
)

// Config describes the window.
type Config struct {
	Width  int
	Height int
	Title  string
	// VSync paces frames with the display refresh (swap interval 1).
	VSync bool
	// Hidden creates an invisible window, for off-screen GL work.
	Hidden bool
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = 640
	}
	if c.Height <= 0 {
		c.Height = 480
	}
	if c.Title == "" {
		c.Title = "bloom"
	}
	return c
}

// Window is an open GLFW window whose GL context is current on the
// calling thread.
type Window struct {
	win   *glfw.Window
	start float64
}

var active atomic.Pointer[Window]

// Active returns the open window, or nil.
func Active() *Window {
	return active.Load()
}

// Open initializes GLFW, creates the window and makes its context current.
func Open(cfg Config) (*Window, error) {
	cfg = cfg.withDefaults()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("window: init glfw: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	if cfg.Hidden {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("window: create: %w", err)
	}
	win.MakeContextCurrent()
	interval := 0
	if cfg.VSync {
		interval = 1
	}
	glfw.SwapInterval(interval)

	w := &Window{win: win, start: glfw.GetTime()}
	active.Store(w)
	fw, fh := win.GetFramebufferSize()
	bloom.Logger().Info("window: opened", "width", fw, "height", fh, "vsync", cfg.VSync)
	return w, nil
}

// FramebufferSize returns the drawable size in pixels.
func (w *Window) FramebufferSize() (int, int) {
	return w.win.GetFramebufferSize()
}

// SwapBuffers shows the back buffer.
func (w *Window) SwapBuffers() {
	w.win.SwapBuffers()
}

// SetTitle updates the title bar.
func (w *Window) SetTitle(title string) {
	w.win.SetTitle(title)
}

// Next implements pipeline.Scheduler. It processes window events and
// returns the time since the window opened; with VSync on, SwapBuffers
// in the previous frame already waited for the display.
func (w *Window) Next(ctx context.Context) (time.Duration, bool) {
	glfw.PollEvents()
	if ctx.Err() != nil || w.win.ShouldClose() {
		return 0, false
	}
	return seconds(glfw.GetTime() - w.start), true
}

// Close destroys the window and terminates GLFW.
func (w *Window) Close() {
	active.CompareAndSwap(w, nil)
	w.win.Destroy()
	glfw.Terminate()
}

func seconds(s float64) time.Duration {
	if s < 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
