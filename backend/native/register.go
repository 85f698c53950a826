//go:build !nogpu && !cgo

package native

import (
	"github.com/gogpu/bloom/backend"
	"github.com/gogpu/bloom/gpucore"
)

func init() {
	backend.Register(backend.BackendNative, func(o backend.Options) (gpucore.Device, error) {
		return New(o.Width, o.Height)
	})
}
