package pipeline

import (
	"fmt"
	"slices"

	"github.com/gogpu/bloom/render"
	"github.com/gogpu/bloom/shader"
)

// Preset names.
const (
	PresetBasic = "basic"
	PresetGlow  = "glow"
	PresetBloom = "bloom"
)

// DefaultBlurIterations is the number of extra blur ping-pong rounds of
// the bloom preset.
const DefaultBlurIterations = 3

// Target names used by the presets.
const (
	TargetScene     = "scene"
	TargetThreshold = "threshold"
	TargetBlurH     = "blur_h"
	TargetBlurV     = "blur_v"
)

// Presets returns the preset names.
func Presets() []string {
	return []string{PresetBasic, PresetGlow, PresetBloom}
}

func scenePass(name, program, output string) PassDescriptor {
	return PassDescriptor{Name: name, Program: program, Kind: KindScene, Output: output}
}

func fullScreenPass(name, program, output string, sources ...string) PassDescriptor {
	return PassDescriptor{
		Name:    name,
		Program: program,
		Kind:    KindFullScreen,
		Sources: sources,
		Output:  output,
	}
}

// Preset returns a built-in pass chain. iterations sets the extra blur
// rounds of the bloom preset; values below 1 disable them.
//
//	basic: scene -> screen
//	glow:  scene, threshold -> blurH -> blurV, blend(scene, blurV) -> screen
//	bloom: glow with iterations x (blurH(blurV), blurV(blurH)) before blending
func Preset(name string, iterations int) (Descriptor, error) {
	basic := []PassDescriptor{scenePass("scene", shader.ProgramScene, render.Screen)}
	glow := []PassDescriptor{
		scenePass("scene", shader.ProgramScene, TargetScene),
		scenePass("threshold", shader.ProgramThreshold, TargetThreshold),
		fullScreenPass("blur_h", shader.ProgramBlurH, TargetBlurH, TargetThreshold),
		fullScreenPass("blur_v", shader.ProgramBlurV, TargetBlurV, TargetBlurH),
	}
	blend := fullScreenPass("composite", shader.ProgramBlend, render.Screen, TargetScene, TargetBlurV)

	switch name {
	case PresetBasic:
		return Descriptor{Name: name, Passes: basic}, nil
	case PresetGlow:
		return Descriptor{Name: name, Passes: append(glow, blend)}, nil
	case "", PresetBloom:
		passes := slices.Clone(glow)
		if iterations > 0 {
			h := fullScreenPass("blur_h_iter", shader.ProgramBlurH, TargetBlurH, TargetBlurV)
			v := fullScreenPass("blur_v_iter", shader.ProgramBlurV, TargetBlurV, TargetBlurH)
			h.Repeat, v.Repeat = iterations, iterations
			passes = append(passes, h, v)
		}
		return Descriptor{Name: PresetBloom, Passes: append(passes, blend)}, nil
	default:
		return Descriptor{}, fmt.Errorf("pipeline: unknown preset %q", name)
	}
}
