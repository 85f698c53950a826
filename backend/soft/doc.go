// Package soft is a CPU implementation of gpucore.Device.
//
// It rasterizes triangles with pixel-center sampling, perspective-correct
// varyings and a float depth buffer, and shades fragments with Go kernels
// registered by shader stage name. It needs no GPU or window, so the
// pipeline tests and the headless demo run on it.
//
// Importing the package registers it with the backend registry as "soft".
package soft

import (
	"github.com/gogpu/bloom/backend"
	"github.com/gogpu/bloom/gpucore"
)

func init() {
	backend.Register(backend.BackendSoft, func(o backend.Options) (gpucore.Device, error) {
		return New(o.Width, o.Height), nil
	})
}
