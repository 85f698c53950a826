// Package bloom renders a scene through a multi-pass post-processing chain:
// scene capture, threshold, separable Gaussian blur and a screen-blend
// composite back onto the visible surface.
//
// # Overview
//
// The root package holds the pure parts of the pipeline: geometry for the
// demo shapes, the transforms used by every pass and the shading math the
// programs implement (lightness threshold, 9-tap blur kernel, screen blend).
// Device work lives in sub-packages:
//
//   - gpucore: opaque resource IDs, optional locations and the Device interface
//   - shader: program sources and the program builder
//   - render: buffer upload, render targets and the object drawer
//   - pipeline: pass descriptors, PipelineContext and the frame loop
//   - backend/soft, backend/opengl, backend/native: Device implementations
//     (opengl needs cgo, native needs CGO_ENABLED=0)
//
// # Quick Start
//
//	dev := soft.New(100, 100)
//	ctx, err := pipeline.New(dev, pipeline.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Release()
//	if err := ctx.RenderFrame(0); err != nil {
//	    log.Fatal(err)
//	}
//
// # Logging
//
// The package is silent by default. Call [SetLogger] to route diagnostics
// from every sub-package to a [log/slog] handler.
package bloom
