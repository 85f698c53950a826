// Package opengl implements gpucore.Device on an OpenGL 4.1 core context
// with the GLSL sources of the shader catalog.
//
// The device does not create a context. internal/window opens one and the
// registry factory adopts it:
//
//	win, err := window.Open(window.Config{Width: 640, Height: 480, VSync: true})
//	...
//	dev, err := backend.Open(backend.BackendOpenGL, backend.Options{})
//
// Importing the package registers it as "opengl". go-gl needs cgo; with
// CGO_ENABLED=0 the package compiles empty.
package opengl
