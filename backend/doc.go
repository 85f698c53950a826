// Package backend selects the device the bloom pipeline renders with.
//
// Device implementations live in sub-packages and register a Factory from
// their init() functions:
//
//	import _ "github.com/gogpu/bloom/backend/soft"    // CPU reference
//	import _ "github.com/gogpu/bloom/backend/opengl"  // OpenGL 4.1 core
//	import _ "github.com/gogpu/bloom/backend/native"  // WebGPU HAL
//
// # Backend Selection
//
// Use Open to request a backend by name, or Default to take the first one
// that opens on this machine, in the order native, opengl, soft:
//
//	dev, err := backend.Open(backend.BackendSoft, backend.Options{Width: 640, Height: 480})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Build Modes
//
// opengl is built with cgo (go-gl). native is built with CGO_ENABLED=0,
// since the Vulkan HAL loads its driver through goffi. Each package
// compiles empty in the other mode, so one binary carries soft plus one of
// the two GPU backends.
//
// The opengl backend needs a current GL context on the calling thread, so
// it is normally opened after internal/window has created one.
package backend
