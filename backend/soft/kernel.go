package soft

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/bloom"
)

// MaxVaryings is the number of floats a vertex kernel can pass to the
// fragment stage.
const MaxVaryings = 8

// Varyings carries interpolated per-vertex outputs.
type Varyings [MaxVaryings]float32

// Uniforms maps matrix uniform names to their values for one draw.
type Uniforms map[string]mgl32.Mat4

// Mat4 returns a uniform or the zero matrix when it was never set.
func (u Uniforms) Mat4(name string) mgl32.Mat4 {
	return u[name]
}

// Texture is a sampled image as seen by a fragment kernel.
type Texture interface {
	Size() (width, height int)
	Sample(u, v float32) bloom.RGBA
}

// Samplers maps sampler uniform names to bound textures.
type Samplers map[string]Texture

// Get returns the texture bound to name. Unbound samplers read opaque black.
func (s Samplers) Get(name string) Texture {
	if t, ok := s[name]; ok && t != nil {
		return t
	}
	return unbound{}
}

type unbound struct{}

func (unbound) Size() (int, int)                 { return 1, 1 }
func (unbound) Sample(float32, float32) bloom.RGBA { return bloom.Black }

// VertexKernel is the CPU stand-in for a compiled vertex shader.
type VertexKernel struct {
	// Attributes lists the consumed attributes. Index i is location i.
	Attributes []string
	// Uniforms lists the uniforms the kernel reads.
	Uniforms []string
	// Outputs is the number of varyings written.
	Outputs int
	// Run transforms one vertex. attrs follows Attributes order.
	Run func(attrs []mgl32.Vec4, u Uniforms) (mgl32.Vec4, Varyings)
}

// FragmentKernel is the CPU stand-in for a compiled fragment shader.
type FragmentKernel struct {
	// Inputs is the number of varyings read.
	Inputs int
	// Uniforms lists the uniforms the kernel reads.
	Uniforms []string
	// Run shades one fragment.
	Run func(v *Varyings, s Samplers) bloom.RGBA
}

var (
	kernelsMu       sync.RWMutex
	vertexKernels   = make(map[string]VertexKernel)
	fragmentKernels = make(map[string]FragmentKernel)
)

// RegisterVertex makes a vertex kernel available to CompileShader under
// name, replacing any earlier registration.
func RegisterVertex(name string, k VertexKernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	vertexKernels[name] = k
}

// RegisterFragment makes a fragment kernel available under name.
func RegisterFragment(name string, k FragmentKernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	fragmentKernels[name] = k
}

// Unregister removes the kernels registered under name.
func Unregister(name string) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	delete(vertexKernels, name)
	delete(fragmentKernels, name)
}

func lookupVertex(name string) (VertexKernel, error) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	if k, ok := vertexKernels[name]; ok {
		return k, nil
	}
	if _, ok := fragmentKernels[name]; ok {
		return VertexKernel{}, fmt.Errorf("ERROR: %s is a fragment kernel", name)
	}
	return VertexKernel{}, fmt.Errorf("ERROR: no vertex kernel named %q", name)
}

func lookupFragment(name string) (FragmentKernel, error) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	if k, ok := fragmentKernels[name]; ok {
		return k, nil
	}
	if _, ok := vertexKernels[name]; ok {
		return FragmentKernel{}, fmt.Errorf("ERROR: %s is a vertex kernel", name)
	}
	return FragmentKernel{}, fmt.Errorf("ERROR: no fragment kernel named %q", name)
}
