package soft

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/bloom"
)

// Kernels for the embedded pipeline programs. Names match the stage names
// of the shader catalog.
func init() {
	RegisterVertex("transform.vert", VertexKernel{
		Attributes: []string{"aVertexPosition", "aVertexColor", "aTextureCoord"},
		Uniforms:   []string{"uProjectionMatrix", "uModelViewMatrix"},
		Outputs:    6,
		Run:        transform,
	})
	RegisterFragment("scene.frag", FragmentKernel{
		Inputs: 4,
		Run: func(v *Varyings, _ Samplers) bloom.RGBA {
			return bloom.Quantize(vColor(v), bloom.QuantizeLevels)
		},
	})
	RegisterFragment("threshold.frag", FragmentKernel{
		Inputs: 4,
		Run: func(v *Varyings, _ Samplers) bloom.RGBA {
			return bloom.Threshold(vColor(v))
		},
	})
	RegisterFragment("blur_h.frag", blurKernel(bloom.Horizontal))
	RegisterFragment("blur_v.frag", blurKernel(bloom.Vertical))
	RegisterFragment("blend.frag", FragmentKernel{
		Inputs:   6,
		Uniforms: []string{"uSampler", "uSampler2"},
		Run: func(v *Varyings, s Samplers) bloom.RGBA {
			scene := s.Get("uSampler").Sample(v[4], v[5])
			glow := s.Get("uSampler2").Sample(v[4], v[5])
			return bloom.ScreenBlend(scene, glow)
		},
	})
}

func transform(attrs []mgl32.Vec4, u Uniforms) (mgl32.Vec4, Varyings) {
	mvp := u.Mat4("uProjectionMatrix").Mul4(u.Mat4("uModelViewMatrix"))
	var out Varyings
	copy(out[0:4], attrs[1][:])
	out[4], out[5] = attrs[2][0], attrs[2][1]
	return mvp.Mul4x1(attrs[0]), out
}

func vColor(v *Varyings) bloom.RGBA {
	return bloom.RGBA{R: v[0], G: v[1], B: v[2], A: v[3]}
}

func blurKernel(axis bloom.Axis) FragmentKernel {
	return FragmentKernel{
		Inputs:   6,
		Uniforms: []string{"uSampler"},
		Run: func(v *Varyings, s Samplers) bloom.RGBA {
			tex := s.Get("uSampler")
			w, h := tex.Size()
			size := w
			if axis == bloom.Vertical {
				size = h
			}
			return bloom.Blur(tex.Sample, v[4], v[5], size, axis)
		},
	}
}
