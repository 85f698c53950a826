package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/gpucore"
)

// Locations maps the requested names to their resolved locations.
type Locations struct {
	Attributes map[string]gpucore.Location
	Uniforms   map[string]gpucore.Location
}

// Attribute returns the location of an attribute, absent if the name was
// not requested or did not resolve.
func (l Locations) Attribute(name string) gpucore.Location {
	return l.Attributes[name]
}

// Uniform returns the location of a uniform, absent if the name was not
// requested or did not resolve.
func (l Locations) Uniform(name string) gpucore.Location {
	return l.Uniforms[name]
}

// Resolve looks up every name on a linked program. Names the program does
// not use resolve to absent locations; they are not errors.
func Resolve(dev gpucore.Device, id gpucore.ProgramID, attributes, uniforms []string) Locations {
	l := Locations{
		Attributes: make(map[string]gpucore.Location, len(attributes)),
		Uniforms:   make(map[string]gpucore.Location, len(uniforms)),
	}
	for _, name := range attributes {
		l.Attributes[name] = dev.AttribLocation(id, name)
	}
	for _, name := range uniforms {
		l.Uniforms[name] = dev.UniformLocation(id, name)
	}
	return l
}

// ProgramInfo is a linked program with its resolved locations.
type ProgramInfo struct {
	Name string
	ID   gpucore.ProgramID

	Position gpucore.Location
	Color    gpucore.Location
	TexCoord gpucore.Location

	Projection gpucore.Location
	ModelView  gpucore.Location
	Sampler    gpucore.Location
	Sampler2   gpucore.Location

	// Locations holds every requested name, including ones without a
	// dedicated field.
	Locations Locations
}

// Build compiles and links src on dev.
//
// A failed stage returns a *CompileError, a failed link a *LinkError. In
// both cases everything created so far is released and no program is
// returned.
func Build(dev gpucore.Device, src Source) (*ProgramInfo, error) {
	vs, err := dev.CompileShader(gpucore.StageVertex, src.Vertex)
	if err != nil {
		return nil, &CompileError{Program: src.Name, Stage: gpucore.StageVertex, Log: err.Error()}
	}
	defer dev.DestroyShader(vs)

	fs, err := dev.CompileShader(gpucore.StageFragment, src.Fragment)
	if err != nil {
		return nil, &CompileError{Program: src.Name, Stage: gpucore.StageFragment, Log: err.Error()}
	}
	defer dev.DestroyShader(fs)

	id, err := dev.LinkProgram(vs, fs)
	if err != nil {
		return nil, &LinkError{Program: src.Name, Log: err.Error()}
	}

	loc := Resolve(dev, id, src.Attributes, src.Uniforms)
	info := &ProgramInfo{
		Name:       src.Name,
		ID:         id,
		Position:   loc.Attribute(AttribPosition),
		Color:      loc.Attribute(AttribColor),
		TexCoord:   loc.Attribute(AttribTexCoord),
		Projection: loc.Uniform(UniformProjection),
		ModelView:  loc.Uniform(UniformModelView),
		Sampler:    loc.Uniform(UniformSampler),
		Sampler2:   loc.Uniform(UniformSampler2),
		Locations:  loc,
	}
	bloom.Logger().Debug("shader: program built",
		"program", src.Name,
		"device", dev.Name(),
		"sampler", info.Sampler.String(),
		"sampler2", info.Sampler2.String())
	return info, nil
}

// Release destroys the program.
func (p *ProgramInfo) Release(dev gpucore.Device) {
	if p == nil || p.ID == gpucore.InvalidID {
		return
	}
	dev.DestroyProgram(p.ID)
	p.ID = gpucore.InvalidID
}

// Set holds built programs by name.
type Set map[string]*ProgramInfo

// BuildAll builds every source. On the first failure the programs built so
// far are released and the error is returned.
func BuildAll(dev gpucore.Device, sources []Source) (Set, error) {
	set := make(Set, len(sources))
	for _, src := range sources {
		if _, dup := set[src.Name]; dup {
			set.Release(dev)
			return nil, fmt.Errorf("shader: duplicate program %q", src.Name)
		}
		info, err := Build(dev, src)
		if err != nil {
			set.Release(dev)
			return nil, err
		}
		set[src.Name] = info
	}
	return set, nil
}

// Get returns a program by name.
func (s Set) Get(name string) (*ProgramInfo, error) {
	p, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProgram, name)
	}
	return p, nil
}

// Release destroys every program in the set.
func (s Set) Release(dev gpucore.Device) {
	for name, p := range s {
		p.Release(dev)
		delete(s, name)
	}
}

// IsBuildError reports whether err came from compiling or linking.
func IsBuildError(err error) bool {
	return errors.Is(err, ErrCompile) || errors.Is(err, ErrLink)
}
