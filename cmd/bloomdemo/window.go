//go:build cgo

package main

import (
	"context"
	"errors"
	"runtime"

	"github.com/gogpu/bloom/backend"
	"github.com/gogpu/bloom/internal/config"
	"github.com/gogpu/bloom/internal/window"
	"github.com/gogpu/bloom/pipeline"

	_ "github.com/gogpu/bloom/backend/opengl"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

func runWindow(ctx context.Context, cfg config.Config, pc pipeline.Config, opts options) error {
	win, err := window.Open(window.Config{
		Width:  cfg.Width,
		Height: cfg.Height,
		Title:  "bloom",
		VSync:  true,
	})
	if err != nil {
		return err
	}
	defer win.Close()

	dev, err := backend.Open(backend.BackendOpenGL, backend.Options{Width: cfg.Width, Height: cfg.Height})
	if err != nil {
		return err
	}
	defer closeDevice(dev)

	p, err := pipeline.New(dev, pc)
	if err != nil {
		return err
	}
	defer p.Release()
	watch(ctx, cfg, opts, p)

	err = p.Run(ctx, win)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

