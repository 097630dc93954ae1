package gpu

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidStageSet is returned when a program is built from anything
	// other than a lone compute stage or a vertex+fragment pair.
	ErrInvalidStageSet = errors.New("stage set must be {compute} or {vertex, fragment}")

	// ErrEmptyDomain is returned by Dispatch when a work-group count is zero.
	ErrEmptyDomain = errors.New("dispatch domain is empty")
)

// CompilationError reports a stage that failed to compile.
type CompilationError struct {
	Stage Stage
	File  string
	Log   string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("%s: %s shader compile failed: %s", e.File, e.Stage, strings.TrimSpace(e.Log))
}

// LinkError reports a program that failed to link.
type LinkError struct {
	Files []string
	Log   string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s: link failed: %s", strings.Join(e.Files, "+"), strings.TrimSpace(e.Log))
}

// BindingKind distinguishes attribute lookups from uniform lookups.
type BindingKind int

const (
	BindingAttribute BindingKind = iota
	BindingUniform
)

func (k BindingKind) String() string {
	if k == BindingAttribute {
		return "attribute"
	}
	return "uniform"
}

// BindingError reports a named attribute or uniform that the linked program
// does not expose. It means the shader assets and the code disagree.
type BindingError struct {
	Kind BindingKind
	Name string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("could not bind %s %q", e.Kind, e.Name)
}

// ResourceCreationError reports a window, context or GPU object that could
// not be acquired.
type ResourceCreationError struct {
	Resource string
	Err      error
}

func (e *ResourceCreationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to create %s", e.Resource)
	}
	return fmt.Sprintf("failed to create %s: %v", e.Resource, e.Err)
}

func (e *ResourceCreationError) Unwrap() error { return e.Err }

// SourceNotFoundError reports a shader source file that could not be read.
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("couldn't read shader source %s: %v", e.Path, e.Err)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }
