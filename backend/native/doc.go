// Package native implements gpucore.Device on the gogpu/wgpu HAL.
//
// Shaders are the WGSL sources of the shader catalog. Every program shares
// one bind group layout: the transform matrices at binding 0 and two
// texture/sampler pairs at bindings 1-2 and 3-4. Render pipelines are
// built lazily per topology and attribute layout and cached on the
// program.
//
// The visible surface is an offscreen texture, so the device renders
// headless and frames are read back with ReadPixels. NewFromProvider
// shares the device of a host application such as gogpu.
//
// Importing the package registers it as "native". The Vulkan HAL loads its
// driver through goffi, which requires CGO_ENABLED=0; cgo builds and
// builds with -tags nogpu compile the package empty.
package native
