// Package pipeline runs the bloom pass chain.
//
// A chain is data: a Descriptor lists passes that each draw either the
// scene shape or a full-screen quad into a named target or the screen.
// The built-in presets are
//
//	basic  scene -> screen
//	glow   scene, threshold, blur_h, blur_v, composite -> screen
//	bloom  glow plus repeated blur_h/blur_v rounds (default)
//
// New builds a PipelineContext that owns every device resource; all
// compile, link and allocation failures surface there. RenderFrame draws
// one frame and Run drives frames from a Scheduler:
//
//	ctx, err := pipeline.New(dev, pipeline.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer ctx.Release()
//	return ctx.Run(runCtx, &pipeline.StepScheduler{Step: time.Second / 60, Frames: 120})
package pipeline
