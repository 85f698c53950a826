//go:build cgo

package opengl

import (
	"bytes"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/gogpu/bloom/gpucore"
)

func shaderType(s gpucore.Stage) uint32 {
	if s == gpucore.StageFragment {
		return gl.FRAGMENT_SHADER
	}
	return gl.VERTEX_SHADER
}

func bufferTarget(u gpucore.BufferUsage) uint32 {
	if u&gpucore.BufferUsageIndex != 0 {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func primitiveMode(t gpucore.Topology) uint32 {
	if t == gpucore.TriangleStrip {
		return gl.TRIANGLE_STRIP
	}
	return gl.TRIANGLES
}

func depthFunc(f gpucore.CompareFunc) uint32 {
	switch f {
	case gpucore.CompareLess:
		return gl.LESS
	case gpucore.CompareAlways:
		return gl.ALWAYS
	default:
		return gl.LEQUAL
	}
}

func errorName(code uint32) string {
	switch code {
	case gl.INVALID_ENUM:
		return "GL_INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "GL_INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "GL_INVALID_OPERATION"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "GL_OUT_OF_MEMORY"
	default:
		return fmt.Sprintf("GL error 0x%x", code)
	}
}

// trimLog turns a NUL-terminated info log into a string.
func trimLog(log []byte) string {
	if i := bytes.IndexByte(log, 0); i >= 0 {
		log = log[:i]
	}
	return string(bytes.TrimSpace(log))
}
