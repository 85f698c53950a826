// Package config loads the demo configuration and pipeline files.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/gogpu/bloom/pipeline"
	"github.com/gogpu/bloom/render"
)

// EnvPrefix prefixes environment overrides, e.g. BLOOM_WIDTH or
// BLOOM_CIRCLE_SEGMENTS.
const EnvPrefix = "BLOOM"

// Config is the demo configuration.
type Config struct {
	Width          int          `mapstructure:"width"`
	Height         int          `mapstructure:"height"`
	Backend        string       `mapstructure:"backend"`
	Preset         string       `mapstructure:"preset"`
	BlurIterations int          `mapstructure:"blur_iterations"`
	Shape          string       `mapstructure:"shape"`
	Circle         CircleConfig `mapstructure:"circle"`
	Resize         string       `mapstructure:"resize"`
	FPS            int          `mapstructure:"fps"`
	// Pipeline is a YAML or TOML pass chain file. It overrides Passes and
	// Preset and is watched for changes.
	Pipeline string       `mapstructure:"pipeline"`
	Passes   []PassConfig `mapstructure:"passes"`
	// Metrics is the listen address of the Prometheus endpoint, empty to
	// disable it.
	Metrics string `mapstructure:"metrics"`
}

// CircleConfig sizes the circle shape.
type CircleConfig struct {
	Radius   float32 `mapstructure:"radius"`
	Segments int     `mapstructure:"segments"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Width:          640,
		Height:         480,
		Backend:        "",
		Preset:         pipeline.PresetBloom,
		BlurIterations: pipeline.DefaultBlurIterations,
		Shape:          string(pipeline.ShapeCircle),
		Circle:         CircleConfig{Radius: 1, Segments: 60},
		Resize:         render.ResizeRecreate.String(),
		FPS:            60,
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("width", d.Width)
	v.SetDefault("height", d.Height)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("preset", d.Preset)
	v.SetDefault("blur_iterations", d.BlurIterations)
	v.SetDefault("shape", d.Shape)
	v.SetDefault("circle.radius", d.Circle.Radius)
	v.SetDefault("circle.segments", d.Circle.Segments)
	v.SetDefault("resize", d.Resize)
	v.SetDefault("fps", d.FPS)
	v.SetDefault("pipeline", d.Pipeline)
	v.SetDefault("metrics", d.Metrics)
}

// Load reads path (any format viper understands), applies BLOOM_
// environment overrides and fills the rest from Default. An empty path
// skips the file.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that do not depend on other files.
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("size %dx%d must be positive", c.Width, c.Height))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps %d must be positive", c.FPS))
	}
	if c.BlurIterations < 0 {
		errs = append(errs, fmt.Errorf("blur_iterations %d is negative", c.BlurIterations))
	}
	if c.Circle.Segments < 3 {
		errs = append(errs, fmt.Errorf("circle.segments %d is below 3", c.Circle.Segments))
	}
	if c.Circle.Radius <= 0 {
		errs = append(errs, fmt.Errorf("circle.radius %v must be positive", c.Circle.Radius))
	}
	if _, err := render.ParseResizePolicy(c.Resize); err != nil {
		errs = append(errs, err)
	}
	switch pipeline.Shape(c.Shape) {
	case pipeline.ShapeCircle, pipeline.ShapeQuad:
	default:
		errs = append(errs, fmt.Errorf("unknown shape %q", c.Shape))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// PipelineConfig converts c into a pipeline.Config, loading the pipeline
// file when one is set.
func (c Config) PipelineConfig() (pipeline.Config, error) {
	resize, err := render.ParseResizePolicy(c.Resize)
	if err != nil {
		return pipeline.Config{}, err
	}
	pc := pipeline.DefaultConfig()
	pc.Preset = c.Preset
	pc.BlurIterations = c.BlurIterations
	pc.Shape = pipeline.Shape(c.Shape)
	pc.Radius = c.Circle.Radius
	pc.Segments = c.Circle.Segments
	pc.Resize = resize

	switch {
	case c.Pipeline != "":
		d, err := LoadPipeline(c.Pipeline)
		if err != nil {
			return pipeline.Config{}, err
		}
		pc.Passes = &d
	case len(c.Passes) > 0:
		d, err := Descriptor("config", c.Passes)
		if err != nil {
			return pipeline.Config{}, err
		}
		pc.Passes = &d
	}
	return pc, nil
}
