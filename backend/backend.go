package backend

import (
	"errors"

	"github.com/gogpu/bloom/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or cannot open a device on this machine.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend names.
const (
	BackendNative = "native"
	BackendOpenGL = "opengl"
	BackendSoft   = "soft"
)

// Options configures the device a backend opens.
type Options struct {
	// Width and Height size the visible surface.
	Width, Height int
}

// Factory opens a device.
type Factory func(opts Options) (gpucore.Device, error)
