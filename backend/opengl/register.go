//go:build cgo

package opengl

import (
	"github.com/gogpu/bloom/backend"
	"github.com/gogpu/bloom/gpucore"
	"github.com/gogpu/bloom/internal/window"
)

func init() {
	backend.Register(backend.BackendOpenGL, open)
}

func open(backend.Options) (gpucore.Device, error) {
	w := window.Active()
	if w == nil {
		return nil, ErrNoContext
	}
	return New(w)
}
