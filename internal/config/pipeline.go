package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/bloom/pipeline"
)

// PassConfig is one pass as written in configuration files.
type PassConfig struct {
	Name    string   `mapstructure:"name" yaml:"name" toml:"name"`
	Program string   `mapstructure:"program" yaml:"program" toml:"program"`
	Kind    string   `mapstructure:"kind" yaml:"kind" toml:"kind"`
	Sources []string `mapstructure:"sources" yaml:"sources,omitempty" toml:"sources,omitempty"`
	Output  string   `mapstructure:"output" yaml:"output" toml:"output"`
	Repeat  int      `mapstructure:"repeat" yaml:"repeat,omitempty" toml:"repeat,omitempty"`
}

// PipelineFile is the document stored in a pipeline file.
type PipelineFile struct {
	Name   string       `yaml:"name" toml:"name"`
	Passes []PassConfig `yaml:"passes" toml:"passes"`
}

// Pipeline file formats.
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// FormatOf derives the format from a file extension.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("config: %s: unsupported pipeline file type", path)
	}
}

// LoadPipeline reads and validates a pipeline file.
func LoadPipeline(path string) (pipeline.Descriptor, error) {
	format, err := FormatOf(path)
	if err != nil {
		return pipeline.Descriptor{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Descriptor{}, fmt.Errorf("config: %w", err)
	}
	d, err := ParsePipeline(data, format)
	if err != nil {
		return pipeline.Descriptor{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return d, nil
}

// ParsePipeline decodes a pipeline document. Unknown fields are errors.
func ParsePipeline(data []byte, format string) (pipeline.Descriptor, error) {
	var f PipelineFile
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return pipeline.Descriptor{}, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return pipeline.Descriptor{}, fmt.Errorf("decode toml: %w", err)
		}
	default:
		return pipeline.Descriptor{}, fmt.Errorf("unknown pipeline format %q", format)
	}
	return Descriptor(f.Name, f.Passes)
}

// Descriptor converts pass entries into a validated descriptor. An empty
// kind means scene.
func Descriptor(name string, passes []PassConfig) (pipeline.Descriptor, error) {
	d := pipeline.Descriptor{Name: name}
	for _, p := range passes {
		kind := pipeline.KindScene
		if p.Kind != "" {
			k, err := pipeline.ParseKind(p.Kind)
			if err != nil {
				return pipeline.Descriptor{}, err
			}
			kind = k
		}
		d.Passes = append(d.Passes, pipeline.PassDescriptor{
			Name:    p.Name,
			Program: p.Program,
			Kind:    kind,
			Sources: p.Sources,
			Output:  p.Output,
			Repeat:  p.Repeat,
		})
	}
	if err := d.Validate(); err != nil {
		return pipeline.Descriptor{}, err
	}
	return d, nil
}

// Encode writes d as a pipeline document, the inverse of ParsePipeline.
func Encode(d pipeline.Descriptor, format string) ([]byte, error) {
	f := PipelineFile{Name: d.Name}
	for _, p := range d.Passes {
		f.Passes = append(f.Passes, PassConfig{
			Name:    p.Name,
			Program: p.Program,
			Kind:    p.Kind.String(),
			Sources: p.Sources,
			Output:  p.Output,
			Repeat:  p.Repeat,
		})
	}
	switch format {
	case FormatYAML:
		return yaml.Marshal(f)
	case FormatTOML:
		return toml.Marshal(f)
	default:
		return nil, fmt.Errorf("config: unknown pipeline format %q", format)
	}
}
