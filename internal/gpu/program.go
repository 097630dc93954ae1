package gpu

import (
	"fmt"
	"log/slog"
)

// ShaderProgram owns a linked GPU program and caches the binding slots it has
// resolved. A ShaderProgram is only ever returned fully linked.
type ShaderProgram struct {
	dev      Device
	handle   uint32
	files    []string
	attribs  map[string]int32
	uniforms map[string]int32
}

// NewProgram compiles every stage, links them and returns the program. The
// stages must be a single compute stage or a vertex and fragment pair. On
// failure every GL object created so far is released.
func NewProgram(dev Device, stages ...StageSource) (*ShaderProgram, error) {
	if !validStageSet(stages) {
		return nil, ErrInvalidStageSet
	}

	shaders := make([]uint32, 0, len(stages))
	release := func() {
		for _, s := range shaders {
			dev.DeleteShader(s)
		}
	}

	files := make([]string, 0, len(stages))
	for _, st := range stages {
		s, err := compileShader(dev, st)
		if err != nil {
			release()
			return nil, err
		}
		shaders = append(shaders, s)
		files = append(files, st.File)
	}

	prog := dev.CreateProgram()
	if prog == 0 {
		release()
		return nil, &ResourceCreationError{Resource: "shader program"}
	}
	for _, s := range shaders {
		dev.AttachShader(prog, s)
	}
	ok, log := dev.LinkProgram(prog)
	// Attached shaders are flagged for deletion and go away with the program.
	release()
	if !ok {
		dev.DeleteProgram(prog)
		return nil, &LinkError{Files: files, Log: log}
	}

	slog.Debug("linked shader program", "handle", prog, "files", files)
	return &ShaderProgram{
		dev:      dev,
		handle:   prog,
		files:    files,
		attribs:  make(map[string]int32),
		uniforms: make(map[string]int32),
	}, nil
}

func validStageSet(stages []StageSource) bool {
	switch len(stages) {
	case 1:
		return stages[0].Stage == StageCompute
	case 2:
		a, b := stages[0].Stage, stages[1].Stage
		return (a == StageVertex && b == StageFragment) || (a == StageFragment && b == StageVertex)
	}
	return false
}

func compileShader(dev Device, st StageSource) (uint32, error) {
	shader := dev.CreateShader(st.Stage)
	if shader == 0 {
		return 0, &ResourceCreationError{Resource: fmt.Sprintf("%s shader", st.Stage)}
	}
	dev.ShaderSource(shader, VersionHeader, st.Source)
	ok, log := dev.CompileShader(shader)
	if !ok {
		dev.DeleteShader(shader)
		return 0, &CompilationError{Stage: st.Stage, File: st.File, Log: log}
	}
	return shader, nil
}

// Attrib returns the slot of the named vertex attribute.
func (p *ShaderProgram) Attrib(name string) (int32, error) {
	if loc, ok := p.attribs[name]; ok {
		return loc, nil
	}
	loc := p.dev.AttribLocation(p.handle, name)
	if loc < 0 {
		return -1, &BindingError{Kind: BindingAttribute, Name: name}
	}
	p.attribs[name] = loc
	return loc, nil
}

// Uniform returns the slot of the named uniform.
func (p *ShaderProgram) Uniform(name string) (int32, error) {
	if loc, ok := p.uniforms[name]; ok {
		return loc, nil
	}
	loc := p.dev.UniformLocation(p.handle, name)
	if loc < 0 {
		return -1, &BindingError{Kind: BindingUniform, Name: name}
	}
	p.uniforms[name] = loc
	return loc, nil
}

// resolveUniforms resolves a list of uniform names in order.
func (p *ShaderProgram) resolveUniforms(names ...string) ([]int32, error) {
	locs := make([]int32, len(names))
	for i, name := range names {
		loc, err := p.Uniform(name)
		if err != nil {
			return nil, err
		}
		locs[i] = loc
	}
	return locs, nil
}

// Use makes the program current for subsequent draws and dispatches.
func (p *ShaderProgram) Use() {
	p.dev.UseProgram(p.handle)
}

func (p *ShaderProgram) Handle() uint32 { return p.handle }

// Files returns the source files the program was built from.
func (p *ShaderProgram) Files() []string { return p.files }

// Destroy releases the program. It is safe to call more than once.
func (p *ShaderProgram) Destroy() {
	if p == nil || p.handle == 0 {
		return
	}
	p.dev.DeleteProgram(p.handle)
	p.handle = 0
	p.attribs = nil
	p.uniforms = nil
}
