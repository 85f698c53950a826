package shader

import (
	"embed"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/bloom/gpucore"
)

//go:embed shaders/*.glsl shaders/*.wgsl
var assets embed.FS

// Attribute names.
const (
	AttribPosition = "aVertexPosition"
	AttribColor    = "aVertexColor"
	AttribTexCoord = "aTextureCoord"
)

// Uniform names.
const (
	UniformProjection = "uProjectionMatrix"
	UniformModelView  = "uModelViewMatrix"
	UniformSampler    = "uSampler"
	UniformSampler2   = "uSampler2"
)

// Program names.
const (
	ProgramScene     = "scene"
	ProgramThreshold = "threshold"
	ProgramBlurH     = "blur_h"
	ProgramBlurV     = "blur_v"
	ProgramBlend     = "blend"
)

// Stage names. The CPU device registers a kernel under each.
const (
	StageTransform = "transform.vert"
	StageScene     = "scene.frag"
	StageThreshold = "threshold.frag"
	StageBlurH     = "blur_h.frag"
	StageBlurV     = "blur_v.frag"
	StageBlend     = "blend.frag"
)

// Source describes a program before it is built.
type Source struct {
	Name       string
	Vertex     gpucore.ShaderSource
	Fragment   gpucore.ShaderSource
	Attributes []string
	Uniforms   []string
}

var (
	standardAttributes = []string{AttribPosition, AttribColor, AttribTexCoord}
	standardUniforms   = []string{UniformProjection, UniformModelView, UniformSampler}
	blendUniforms      = []string{UniformProjection, UniformModelView, UniformSampler, UniformSampler2}
)

// Stage loads the embedded sources of a stage.
func Stage(name string) gpucore.ShaderSource {
	return gpucore.ShaderSource{
		Name: name,
		GLSL: mustAsset(name + ".glsl"),
		WGSL: mustAsset(name + ".wgsl"),
	}
}

func mustAsset(file string) string {
	b, err := assets.ReadFile("shaders/" + file)
	if err != nil {
		panic(fmt.Sprintf("shader: missing embedded asset %s", file))
	}
	return string(b)
}

func program(name, fragment string, uniforms []string) Source {
	return Source{
		Name:       name,
		Vertex:     Stage(StageTransform),
		Fragment:   Stage(fragment),
		Attributes: slices.Clone(standardAttributes),
		Uniforms:   slices.Clone(uniforms),
	}
}

// catalog reads the embedded assets once.
var catalog = sync.OnceValue(func() []Source {
	return []Source{
		program(ProgramScene, StageScene, standardUniforms),
		program(ProgramThreshold, StageThreshold, standardUniforms),
		program(ProgramBlurH, StageBlurH, standardUniforms),
		program(ProgramBlurV, StageBlurV, standardUniforms),
		program(ProgramBlend, StageBlend, blendUniforms),
	}
})

func (s Source) clone() Source {
	s.Attributes = slices.Clone(s.Attributes)
	s.Uniforms = slices.Clone(s.Uniforms)
	return s
}

// Catalog returns the sources of every pipeline program. Callers own the
// returned slice.
func Catalog() []Source {
	all := catalog()
	out := make([]Source, len(all))
	for i, s := range all {
		out[i] = s.clone()
	}
	return out
}

// Lookup returns the catalog source with the given name.
func Lookup(name string) (Source, error) {
	for _, s := range catalog() {
		if s.Name == name {
			return s.clone(), nil
		}
	}
	return Source{}, fmt.Errorf("%w: %q", ErrUnknownProgram, name)
}
