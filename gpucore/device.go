package gpucore

import "errors"

// Device errors.
var (
	// ErrNoDevice is returned when a backend cannot provide a device.
	ErrNoDevice = errors.New("gpucore: no device available")

	// ErrUnknownResource is returned for IDs a device does not own.
	ErrUnknownResource = errors.New("gpucore: unknown resource")

	// ErrNoPass is returned by Draw and EndPass outside a pass.
	ErrNoPass = errors.New("gpucore: no pass in progress")

	// ErrReadbackUnsupported is returned by devices that cannot read
	// resources back to the CPU.
	ErrReadbackUnsupported = errors.New("gpucore: readback not supported")
)

// Device is the host surface capability the pipeline renders with.
//
// A Device is not safe for concurrent use. All calls for one frame happen
// on the goroutine that runs the frame, and passes execute in issue order:
// a texture written by one pass is complete before a later pass samples it.
type Device interface {
	// Name identifies the backend in logs.
	Name() string

	// SurfaceSize returns the pixel size of the visible surface.
	SurfaceSize() (width, height int)

	// CreateBuffer uploads data into a new static buffer.
	CreateBuffer(usage BufferUsage, data []byte) (BufferID, error)

	// ReadBuffer copies the start of a buffer into dst.
	ReadBuffer(id BufferID, dst []byte) error

	// DestroyBuffer releases a buffer. Unknown IDs are ignored.
	DestroyBuffer(id BufferID)

	// CompileShader compiles one stage. The error carries the compiler log.
	CompileShader(stage Stage, src ShaderSource) (ShaderID, error)

	// DestroyShader releases a shader stage.
	DestroyShader(id ShaderID)

	// LinkProgram links a vertex and a fragment stage. The error carries
	// the linker log.
	LinkProgram(vertex, fragment ShaderID) (ProgramID, error)

	// AttribLocation resolves an attribute name. Unused names are absent.
	AttribLocation(p ProgramID, name string) Location

	// UniformLocation resolves a uniform name. Unused names are absent.
	UniformLocation(p ProgramID, name string) Location

	// DestroyProgram releases a program.
	DestroyProgram(id ProgramID)

	// CreateRenderTarget allocates an RGBA8 texture with linear filtering,
	// clamp-to-edge wrapping and no mipmaps, and a framebuffer with the
	// texture at color attachment 0.
	CreateRenderTarget(width, height int) (TextureID, FramebufferID, error)

	// DestroyRenderTarget releases a texture and its framebuffer.
	DestroyRenderTarget(tex TextureID, fb FramebufferID)

	// TextureSize returns the size of a texture, or zeros if unknown.
	TextureSize(id TextureID) (width, height int)

	// BeginPass binds a framebuffer and clears it as described.
	BeginPass(state PassState) error

	// Draw issues one draw call into the current pass.
	Draw(call *DrawCall) error

	// EndPass finishes the current pass.
	EndPass() error

	// Present shows the visible surface.
	Present() error

	// ReadPixels copies a framebuffer as tightly packed RGBA8 rows, bottom
	// row first. dst must hold width*height*4 bytes.
	ReadPixels(fb FramebufferID, dst []byte) error
}
