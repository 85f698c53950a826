// Package shader builds the programs of the bloom pipeline.
//
// A [Source] pairs a vertex and a fragment stage, each available in GLSL
// (OpenGL), WGSL (WebGPU HAL) and as a named kernel (CPU device), with the
// attribute and uniform names the pipeline resolves. [Build] compiles both
// stages, links them and returns a [ProgramInfo] whose locations are typed
// optional values. Failures come back as [*CompileError] or [*LinkError]
// carrying the backend log.
package shader
