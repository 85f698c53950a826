package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/bloom/render"
	"github.com/gogpu/bloom/shader"
)

// ErrInvalidDescriptor wraps every Validate failure.
var ErrInvalidDescriptor = errors.New("pipeline: invalid descriptor")

// Kind selects what a pass draws.
type Kind uint8

const (
	// KindScene draws the configured shape with the scene camera.
	KindScene Kind = iota
	// KindFullScreen draws the screen quad sampling up to two targets.
	KindFullScreen
)

// String returns the kind name used in pipeline files.
func (k Kind) String() string {
	if k == KindFullScreen {
		return "fullscreen"
	}
	return "scene"
}

// ParseKind parses "scene" or "fullscreen".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "scene":
		return KindScene, nil
	case "fullscreen", "full-screen":
		return KindFullScreen, nil
	default:
		return 0, fmt.Errorf("pipeline: unknown pass kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// PassDescriptor is one step of the pass chain.
type PassDescriptor struct {
	Name    string
	Program string
	Kind    Kind
	// Sources name up to two targets bound to uSampler and uSampler2.
	Sources []string
	// Output names the target written, or render.Screen.
	Output string
	// Repeat > 1 runs the pass that many times. Consecutive passes with
	// the same Repeat run together as one group.
	Repeat int
}

// Descriptor is an ordered pass chain.
type Descriptor struct {
	Name   string
	Passes []PassDescriptor
}

// Clone returns a deep copy.
func (d Descriptor) Clone() Descriptor {
	out := Descriptor{Name: d.Name, Passes: make([]PassDescriptor, len(d.Passes))}
	for i, p := range d.Passes {
		p.Sources = slices.Clone(p.Sources)
		out.Passes[i] = p
	}
	return out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDescriptor, fmt.Sprintf(format, args...))
}

// Validate checks that the chain can run: every source is written by an
// earlier pass, no pass samples its own output or the screen, programs
// exist and the last pass writes the screen.
func (d Descriptor) Validate() error {
	if len(d.Passes) == 0 {
		return invalid("no passes")
	}
	written := make(map[string]bool)
	for i, p := range d.Passes {
		if p.Name == "" {
			return invalid("pass %d has no name", i)
		}
		if _, err := shader.Lookup(p.Program); err != nil {
			return invalid("pass %q: %v", p.Name, err)
		}
		if p.Output == "" {
			return invalid("pass %q has no output", p.Name)
		}
		if p.Repeat < 0 {
			return invalid("pass %q: negative repeat %d", p.Name, p.Repeat)
		}
		switch p.Kind {
		case KindScene:
			if len(p.Sources) != 0 {
				return invalid("scene pass %q cannot sample targets", p.Name)
			}
		case KindFullScreen:
			if len(p.Sources) == 0 || len(p.Sources) > 2 {
				return invalid("full-screen pass %q needs one or two sources, has %d", p.Name, len(p.Sources))
			}
		default:
			return invalid("pass %q: unknown kind %d", p.Name, p.Kind)
		}
		for _, src := range p.Sources {
			switch {
			case src == render.Screen:
				return invalid("pass %q samples the screen", p.Name)
			case src == p.Output:
				return invalid("pass %q samples its own output %q", p.Name, src)
			case !written[src]:
				return invalid("pass %q samples %q before any pass writes it", p.Name, src)
			}
		}
		written[p.Output] = true
	}
	if last := d.Passes[len(d.Passes)-1]; last.Output != render.Screen {
		return invalid("last pass %q writes %q, not %q", last.Name, last.Output, render.Screen)
	}
	return nil
}

// Targets returns the off-screen targets the chain writes, in first-use
// order.
func (d Descriptor) Targets() []string {
	var names []string
	for _, p := range d.Passes {
		if p.Output != render.Screen && !slices.Contains(names, p.Output) {
			names = append(names, p.Output)
		}
	}
	return names
}

// Schedule expands repeat groups into the flat list of passes run each
// frame.
func (d Descriptor) Schedule() []PassDescriptor {
	var out []PassDescriptor
	for i := 0; i < len(d.Passes); {
		n := d.Passes[i].Repeat
		j := i + 1
		if n > 1 {
			for j < len(d.Passes) && d.Passes[j].Repeat == n {
				j++
			}
		}
		times := max(n, 1)
		for range times {
			out = append(out, d.Passes[i:j]...)
		}
		i = j
	}
	return out
}
