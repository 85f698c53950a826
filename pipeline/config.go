package pipeline

import (
	"fmt"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/internal/metrics"
	"github.com/gogpu/bloom/render"
)

// Shape selects the scene geometry.
type Shape string

// Shapes.
const (
	ShapeCircle Shape = "circle"
	ShapeQuad   Shape = "quad"
)

// Config describes a pipeline before it is built.
type Config struct {
	// Preset names a built-in chain. Ignored when Passes is set.
	Preset string
	// BlurIterations is the number of extra blur rounds of the bloom preset.
	BlurIterations int
	// Passes overrides the preset.
	Passes *Descriptor

	Shape    Shape
	Radius   float32
	Segments int
	// Geometry overrides Shape.
	Geometry *bloom.GeometryData

	Resize  render.ResizePolicy
	Metrics *metrics.Recorder
}

// DefaultConfig returns the bloom preset on a 60-segment unit circle.
func DefaultConfig() Config {
	return Config{
		Preset:         PresetBloom,
		BlurIterations: DefaultBlurIterations,
		Shape:          ShapeCircle,
		Radius:         bloom.DefaultRadius,
		Segments:       bloom.DefaultSegments,
		Resize:         render.ResizeRecreate,
	}
}

// Descriptor returns the pass chain the config selects.
func (c Config) Descriptor() (Descriptor, error) {
	if c.Passes != nil {
		return c.Passes.Clone(), nil
	}
	return Preset(c.Preset, c.BlurIterations)
}

// SceneGeometry returns the shape drawn by scene passes.
func (c Config) SceneGeometry() (bloom.GeometryData, error) {
	if c.Geometry != nil {
		return *c.Geometry, nil
	}
	switch c.Shape {
	case ShapeQuad:
		return bloom.Quad(), nil
	case "", ShapeCircle:
		radius, segments := c.Radius, c.Segments
		if radius == 0 {
			radius = bloom.DefaultRadius
		}
		if segments == 0 {
			segments = bloom.DefaultSegments
		}
		return bloom.Circle(radius, segments, 0, 0)
	default:
		return bloom.GeometryData{}, fmt.Errorf("pipeline: unknown shape %q", c.Shape)
	}
}
