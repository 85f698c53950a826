// Package gpucore defines the device abstraction shared by every backend.
//
// The [Device] interface is the host surface the bloom pipeline renders
// with: buffer upload, shader compilation and linking, render targets,
// passes and draw calls. Implementations live in backend/soft (CPU
// reference rasterizer), backend/opengl (go-gl) and backend/native
// (gogpu/wgpu HAL).
//
//	                +----------------+
//	                |    pipeline    |
//	                |  render/shader |
//	                +-------+--------+
//	                        | gpucore.Device
//	       +----------------+----------------+
//	       |                |                |
//	+------v------+  +------v------+  +------v------+
//	|    soft     |  |   opengl    |  |   native    |
//	| (pure Go)   |  | (go-gl/gl)  |  | (wgpu hal)  |
//	+-------------+  +-------------+  +-------------+
//
// # Resource Management
//
// Resources are referenced by opaque IDs ([BufferID], [TextureID],
// [FramebufferID], [ShaderID], [ProgramID]). The zero ID is invalid, except
// for [ScreenFramebuffer] which names the visible surface.
//
// # Locations
//
// Attribute and uniform lookups return a [Location], an explicit
// present/absent value. A program that does not use a uniform reports it as
// absent and callers skip the binding instead of passing -1 around.
//
// # Draw Calls
//
// A [DrawCall] carries all of its state: attribute buffers with their
// locations, an optional index buffer, matrix uniforms and sampler
// bindings. Devices apply the state, draw and forget it.
package gpucore
