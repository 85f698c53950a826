package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/bloom/gpucore"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrCompile matches every *CompileError.
	ErrCompile = errors.New("shader: compile failed")

	// ErrLink matches every *LinkError.
	ErrLink = errors.New("shader: link failed")

	// ErrUnknownProgram is returned by Lookup for names outside the catalog.
	ErrUnknownProgram = errors.New("shader: unknown program")
)

// CompileError reports a stage that failed to compile.
type CompileError struct {
	Program string
	Stage   gpucore.Stage
	Log     string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shader: compile %s stage of %q: %s", e.Stage, e.Program, e.Log)
}

// Unwrap returns ErrCompile.
func (e *CompileError) Unwrap() error { return ErrCompile }

// LinkError reports a program that failed to link.
type LinkError struct {
	Program string
	Log     string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("shader: link %q: %s", e.Program, e.Log)
}

// Unwrap returns ErrLink.
func (e *LinkError) Unwrap() error { return ErrLink }
