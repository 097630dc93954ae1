// Package gputest provides a software gpu.Device for tests. It keeps enough
// state to check what the pipelines ask of the GPU: compile and link results
// derived from the GLSL text, symbol tables, uniform values, texture storage,
// vertex arrays and draw/dispatch history. Image writes made by a dispatch
// stay invisible to sampling and readback until a memory barrier is issued.
package gputest

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"ray-tracer/internal/gpu"
)

// Uniforms maps uniform names of the program in use to their last uploaded
// value (int32, float32, mgl32.Vec2, mgl32.Vec3 or mgl32.Mat4).
type Uniforms map[string]any

// Kernel computes the RGBA value a compute invocation stores at (x, y).
type Kernel func(x, y int, u Uniforms) [4]float32

// DrawCall records what a DrawArrays call consumed.
type DrawCall struct {
	Mode    gpu.Primitive
	First   int32
	Count   int32
	Program uint32
	Texture uint32
	// Attribs holds the buffer data sourced by each enabled attribute index.
	Attribs map[uint32][]float32
}

type shader struct {
	stage    gpu.Stage
	source   string
	compiled bool
}

type program struct {
	shaders   []*shader
	linked    bool
	compute   bool
	localSize [3]int
	attribs   map[string]int32
	uniforms  map[string]int32
	// types maps uniform names to their GLSL type.
	types  map[string]string
	values map[int32]any
}

type texture struct {
	format gpu.Format
	width  int
	height int
	params map[gpu.TexParam]int32
	data   []float32
	// pending holds image stores not yet made visible by a barrier.
	pending []float32
}

type vertexArray struct {
	attribs map[uint32]uint32
	enabled map[uint32]bool
}

type imageBinding struct {
	texture uint32
	access  gpu.Access
	format  gpu.Format
}

// Device is a recording, single-threaded gpu.Device.
type Device struct {
	// Kernel runs for every in-bounds invocation of a dispatch and writes
	// to the texture bound at image unit 0. Nil kernels write nothing.
	Kernel Kernel
	// FailLink, when non-empty, makes every link fail with this log.
	FailLink string

	// Calls lists every command issued, by method name.
	Calls []string
	// Errors collects invalid operations, the way glGetError would.
	Errors []string

	LastDraw *DrawCall
	// Framebuffer holds RGBA values of the last draw, top row first.
	Framebuffer []float32
	FBWidth     int
	FBHeight    int
	ClearValue  [4]float32
	ViewportBox [4]int32
	Enabled     map[gpu.Capability]bool

	nextID   uint32
	shaders  map[uint32]*shader
	programs map[uint32]*program
	textures map[uint32]*texture
	vaos     map[uint32]*vertexArray
	buffers  map[uint32][]float32

	current    uint32
	activeUnit uint32
	units      map[uint32]uint32
	images     map[uint32]imageBinding
	boundVAO   uint32
}

// New returns an empty device.
func New() *Device {
	return &Device{
		Enabled:  make(map[gpu.Capability]bool),
		shaders:  make(map[uint32]*shader),
		programs: make(map[uint32]*program),
		textures: make(map[uint32]*texture),
		vaos:     make(map[uint32]*vertexArray),
		buffers:  make(map[uint32][]float32),
		units:    make(map[uint32]uint32),
		images:   make(map[uint32]imageBinding),
	}
}

var _ gpu.Device = (*Device)(nil)

func (d *Device) record(call string) { d.Calls = append(d.Calls, call) }

func (d *Device) errorf(format string, args ...any) {
	d.Errors = append(d.Errors, fmt.Sprintf(format, args...))
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

// Count returns how many times the named command was issued.
func (d *Device) Count(call string) int {
	n := 0
	for _, c := range d.Calls {
		if c == call {
			n++
		}
	}
	return n
}

// Live returns the number of GPU objects that have not been deleted.
func (d *Device) Live() int {
	return len(d.shaders) + len(d.programs) + len(d.textures) + len(d.vaos) + len(d.buffers)
}

// UniformValue returns the last value uploaded to the named uniform of prog.
func (d *Device) UniformValue(prog uint32, name string) (any, bool) {
	p, ok := d.programs[prog]
	if !ok {
		return nil, false
	}
	loc, ok := p.uniforms[name]
	if !ok {
		return nil, false
	}
	v, ok := p.values[loc]
	return v, ok
}

// TextureParam returns a parameter set on texture.
func (d *Device) TextureParam(tex uint32, param gpu.TexParam) (int32, bool) {
	t, ok := d.textures[tex]
	if !ok {
		return 0, false
	}
	v, ok := t.params[param]
	return v, ok
}

// ImageBinding reports what is bound at an image unit.
func (d *Device) ImageBinding(unit uint32) (tex uint32, access gpu.Access, format gpu.Format) {
	b := d.images[unit]
	return b.texture, b.access, b.format
}

// Shaders and programs

func (d *Device) CreateShader(stage gpu.Stage) uint32 {
	d.record("CreateShader")
	id := d.id()
	d.shaders[id] = &shader{stage: stage}
	return id
}

func (d *Device) ShaderSource(sh uint32, sources ...string) {
	d.record("ShaderSource")
	s, ok := d.shaders[sh]
	if !ok {
		d.errorf("ShaderSource: unknown shader %d", sh)
		return
	}
	s.source = strings.Join(sources, "")
}

func (d *Device) CompileShader(sh uint32) (bool, string) {
	d.record("CompileShader")
	s, ok := d.shaders[sh]
	if !ok {
		d.errorf("CompileShader: unknown shader %d", sh)
		return false, "invalid shader"
	}
	if msg := checkSource(s.source); msg != "" {
		return false, msg
	}
	s.compiled = true
	return true, ""
}

func (d *Device) DeleteShader(sh uint32) {
	d.record("DeleteShader")
	if _, ok := d.shaders[sh]; !ok {
		d.errorf("DeleteShader: unknown shader %d", sh)
		return
	}
	delete(d.shaders, sh)
}

func (d *Device) CreateProgram() uint32 {
	d.record("CreateProgram")
	id := d.id()
	d.programs[id] = &program{values: make(map[int32]any)}
	return id
}

func (d *Device) AttachShader(prog, sh uint32) {
	d.record("AttachShader")
	p, ok := d.programs[prog]
	if !ok {
		d.errorf("AttachShader: unknown program %d", prog)
		return
	}
	s, ok := d.shaders[sh]
	if !ok {
		d.errorf("AttachShader: unknown shader %d", sh)
		return
	}
	p.shaders = append(p.shaders, s)
}

func (d *Device) LinkProgram(prog uint32) (bool, string) {
	d.record("LinkProgram")
	p, ok := d.programs[prog]
	if !ok {
		d.errorf("LinkProgram: unknown program %d", prog)
		return false, "invalid program"
	}
	if d.FailLink != "" {
		return false, d.FailLink
	}
	if len(p.shaders) == 0 {
		return false, "error: no shaders attached"
	}

	var compute, graphics bool
	for _, s := range p.shaders {
		if !s.compiled {
			return false, "error: linking with uncompiled shader"
		}
		if s.stage == gpu.StageCompute {
			compute = true
		} else {
			graphics = true
		}
	}
	if compute && graphics {
		return false, "error: compute shader may not be linked with other stages"
	}

	p.attribs = make(map[string]int32)
	p.uniforms = make(map[string]int32)
	p.types = make(map[string]string)
	for _, s := range p.shaders {
		for _, u := range uniformDecls(s.source) {
			if _, ok := p.uniforms[u.name]; !ok {
				p.uniforms[u.name] = int32(len(p.uniforms))
				p.types[u.name] = u.typ
			}
		}
		if s.stage == gpu.StageVertex {
			for _, name := range attribNames(s.source) {
				if _, ok := p.attribs[name]; !ok {
					p.attribs[name] = int32(len(p.attribs))
				}
			}
		}
		if s.stage == gpu.StageCompute {
			p.localSize = localSize(s.source)
		}
	}
	p.compute = compute
	p.linked = true
	return true, ""
}

func (d *Device) UseProgram(prog uint32) {
	d.record("UseProgram")
	if prog != 0 {
		p, ok := d.programs[prog]
		if !ok || !p.linked {
			d.errorf("UseProgram: program %d is not linked", prog)
			return
		}
	}
	d.current = prog
}

func (d *Device) DeleteProgram(prog uint32) {
	d.record("DeleteProgram")
	if _, ok := d.programs[prog]; !ok {
		d.errorf("DeleteProgram: unknown program %d", prog)
		return
	}
	delete(d.programs, prog)
	if d.current == prog {
		d.current = 0
	}
}

func (d *Device) AttribLocation(prog uint32, name string) int32 {
	d.record("AttribLocation")
	p, ok := d.programs[prog]
	if !ok || !p.linked {
		return -1
	}
	if loc, ok := p.attribs[name]; ok {
		return loc
	}
	return -1
}

func (d *Device) UniformLocation(prog uint32, name string) int32 {
	d.record("UniformLocation")
	p, ok := d.programs[prog]
	if !ok || !p.linked {
		return -1
	}
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	return -1
}

func (d *Device) setUniform(call string, loc int32, v any) {
	d.record(call)
	p, ok := d.programs[d.current]
	if !ok {
		d.errorf("%s: no program in use", call)
		return
	}
	if loc == -1 {
		return
	}
	p.values[loc] = v
}

func (d *Device) Uniform1i(loc int32, v int32)            { d.setUniform("Uniform1i", loc, v) }
func (d *Device) Uniform1f(loc int32, v float32)          { d.setUniform("Uniform1f", loc, v) }
func (d *Device) Uniform2f(loc int32, v mgl32.Vec2)       { d.setUniform("Uniform2f", loc, v) }
func (d *Device) Uniform3f(loc int32, v mgl32.Vec3)       { d.setUniform("Uniform3f", loc, v) }
func (d *Device) UniformMatrix4f(loc int32, m mgl32.Mat4) { d.setUniform("UniformMatrix4f", loc, m) }

// Textures

func (d *Device) CreateTexture() uint32 {
	d.record("CreateTexture")
	id := d.id()
	d.textures[id] = &texture{params: make(map[gpu.TexParam]int32)}
	return id
}

func (d *Device) ActiveTexture(unit uint32) {
	d.record("ActiveTexture")
	d.activeUnit = unit
}

func (d *Device) BindTexture(tex uint32) {
	d.record("BindTexture")
	if tex != 0 {
		if _, ok := d.textures[tex]; !ok {
			d.errorf("BindTexture: unknown texture %d", tex)
			return
		}
	}
	d.units[d.activeUnit] = tex
}

func (d *Device) bound(call string) *texture {
	t, ok := d.textures[d.units[d.activeUnit]]
	if !ok {
		d.errorf("%s: no texture bound to unit %d", call, d.activeUnit)
		return nil
	}
	return t
}

func (d *Device) TexParameter(param gpu.TexParam, value int32) {
	d.record("TexParameter")
	if t := d.bound("TexParameter"); t != nil {
		t.params[param] = value
	}
}

func (d *Device) TexImage2D(format gpu.Format, width, height int32) {
	d.record("TexImage2D")
	t := d.bound("TexImage2D")
	if t == nil {
		return
	}
	t.format = format
	t.width, t.height = int(width), int(height)
	t.data = make([]float32, 4*t.width*t.height)
	t.pending = nil
}

func (d *Device) BindImageTexture(unit, tex uint32, access gpu.Access, format gpu.Format) {
	d.record("BindImageTexture")
	t, ok := d.textures[tex]
	if !ok {
		d.errorf("BindImageTexture: unknown texture %d", tex)
		return
	}
	if t.format != format {
		d.errorf("BindImageTexture: format %s does not match texture format %s", format, t.format)
		return
	}
	d.images[unit] = imageBinding{texture: tex, access: access, format: format}
}

func (d *Device) ReadTexImage(tex uint32, dst []float32) {
	d.record("ReadTexImage")
	t, ok := d.textures[tex]
	if !ok {
		d.errorf("ReadTexImage: unknown texture %d", tex)
		return
	}
	if len(dst) < len(t.data) {
		d.errorf("ReadTexImage: destination holds %d values, need %d", len(dst), len(t.data))
		return
	}
	copy(dst, t.data)
}

func (d *Device) DeleteTexture(tex uint32) {
	d.record("DeleteTexture")
	if _, ok := d.textures[tex]; !ok {
		d.errorf("DeleteTexture: unknown texture %d", tex)
		return
	}
	delete(d.textures, tex)
	for unit, bound := range d.units {
		if bound == tex {
			d.units[unit] = 0
		}
	}
	for unit, b := range d.images {
		if b.texture == tex {
			delete(d.images, unit)
		}
	}
}

// Geometry

func (d *Device) CreateVertexArray() uint32 {
	d.record("CreateVertexArray")
	id := d.id()
	d.vaos[id] = &vertexArray{attribs: make(map[uint32]uint32), enabled: make(map[uint32]bool)}
	return id
}

func (d *Device) BindVertexArray(vao uint32) {
	d.record("BindVertexArray")
	if vao != 0 {
		if _, ok := d.vaos[vao]; !ok {
			d.errorf("BindVertexArray: unknown vertex array %d", vao)
			return
		}
	}
	d.boundVAO = vao
}

func (d *Device) DeleteVertexArray(vao uint32) {
	d.record("DeleteVertexArray")
	if _, ok := d.vaos[vao]; !ok {
		d.errorf("DeleteVertexArray: unknown vertex array %d", vao)
		return
	}
	delete(d.vaos, vao)
	if d.boundVAO == vao {
		d.boundVAO = 0
	}
}

func (d *Device) CreateBuffer() uint32 {
	d.record("CreateBuffer")
	id := d.id()
	d.buffers[id] = nil
	return id
}

func (d *Device) BufferData(buf uint32, data []float32) {
	d.record("BufferData")
	if _, ok := d.buffers[buf]; !ok {
		d.errorf("BufferData: unknown buffer %d", buf)
		return
	}
	d.buffers[buf] = append([]float32(nil), data...)
}

func (d *Device) VertexAttribPointer(index uint32, components int32, buf uint32) {
	d.record("VertexAttribPointer")
	vao, ok := d.vaos[d.boundVAO]
	if !ok {
		d.errorf("VertexAttribPointer: no vertex array bound")
		return
	}
	if _, ok := d.buffers[buf]; !ok {
		d.errorf("VertexAttribPointer: unknown buffer %d", buf)
		return
	}
	vao.attribs[index] = buf
}

func (d *Device) EnableVertexAttribArray(index uint32) {
	d.record("EnableVertexAttribArray")
	vao, ok := d.vaos[d.boundVAO]
	if !ok {
		d.errorf("EnableVertexAttribArray: no vertex array bound")
		return
	}
	vao.enabled[index] = true
}

func (d *Device) DeleteBuffer(buf uint32) {
	d.record("DeleteBuffer")
	if _, ok := d.buffers[buf]; !ok {
		d.errorf("DeleteBuffer: unknown buffer %d", buf)
		return
	}
	delete(d.buffers, buf)
}

// Commands

func (d *Device) Enable(c gpu.Capability) {
	d.record("Enable")
	d.Enabled[c] = true
}

func (d *Device) Viewport(x, y, width, height int32) {
	d.record("Viewport")
	d.ViewportBox = [4]int32{x, y, width, height}
}

func (d *Device) ClearColor(r, g, b, a float32) {
	d.record("ClearColor")
	d.ClearValue = [4]float32{r, g, b, a}
}

func (d *Device) Clear(mask gpu.ClearMask) {
	d.record("Clear")
	if mask&gpu.ClearColor != 0 {
		for i := range d.Framebuffer {
			d.Framebuffer[i] = d.ClearValue[i%4]
		}
	}
}

// DrawArrays rasterizes the bound vertex array with the program in use. The
// program's first vertex input is taken as the position and its second as
// the texture coordinate; positions go through the program's mat4 uniform
// (identity if none is set) and the fragment colour is the nearest texel of
// the texture its sampler2D uniform points at. The framebuffer has the size
// of that texture and is stored top row first, as it appears on screen.
func (d *Device) DrawArrays(mode gpu.Primitive, first, count int32) {
	d.record("DrawArrays")
	p, ok := d.programs[d.current]
	if !ok || p.compute {
		d.errorf("DrawArrays: no graphics program in use")
		return
	}
	vao, ok := d.vaos[d.boundVAO]
	if !ok {
		d.errorf("DrawArrays: no vertex array bound")
		return
	}

	call := &DrawCall{Mode: mode, First: first, Count: count, Program: d.current, Attribs: make(map[uint32][]float32)}
	for index, buf := range vao.attribs {
		if vao.enabled[index] {
			call.Attribs[index] = append([]float32(nil), d.buffers[buf]...)
		}
	}

	unit := uint32(0)
	mvp := mgl32.Ident4()
	for name, loc := range p.uniforms {
		switch v := p.values[loc].(type) {
		case int32:
			if strings.HasPrefix(p.types[name], "sampler") {
				unit = uint32(v)
			}
		case mgl32.Mat4:
			if p.types[name] == "mat4" {
				mvp = v
			}
		}
	}
	call.Texture = d.units[unit]
	d.LastDraw = call

	t, ok := d.textures[call.Texture]
	if !ok {
		return
	}
	pos, hasPos := call.Attribs[0]
	uv, hasUV := call.Attribs[1]
	if !hasPos || !hasUV {
		d.errorf("DrawArrays: position and texture coordinate inputs must be enabled")
		return
	}

	if d.FBWidth != t.width || d.FBHeight != t.height || len(d.Framebuffer) != 4*t.width*t.height {
		d.Framebuffer = make([]float32, 4*t.width*t.height)
		d.FBWidth, d.FBHeight = t.width, t.height
		for i := range d.Framebuffer {
			d.Framebuffer[i] = d.ClearValue[i%4]
		}
	}
	if err := rasterize(mode, int(first), int(count), pos, uv, mvp, t, d.Framebuffer, t.width, t.height); err != nil {
		d.errorf("DrawArrays: %v", err)
	}
}

// DispatchCompute runs Kernel over every in-bounds global invocation. The
// results land in the pending copy of the image at unit 0.
func (d *Device) DispatchCompute(x, y, z uint32) {
	d.record("DispatchCompute")
	p, ok := d.programs[d.current]
	if !ok || !p.compute {
		d.errorf("DispatchCompute: no compute program in use")
		return
	}
	if d.Kernel == nil {
		return
	}
	b, ok := d.images[0]
	if !ok || b.access == gpu.AccessReadOnly {
		return
	}
	t := d.textures[b.texture]

	u := make(Uniforms, len(p.uniforms))
	for name, loc := range p.uniforms {
		if v, ok := p.values[loc]; ok {
			u[name] = v
		}
	}

	if t.pending == nil {
		t.pending = append([]float32(nil), t.data...)
	}
	w := int(x) * p.localSize[0]
	h := int(y) * p.localSize[1]
	for gy := 0; gy < h && gy < t.height; gy++ {
		for gx := 0; gx < w && gx < t.width; gx++ {
			c := d.Kernel(gx, gy, u)
			copy(t.pending[4*(gy*t.width+gx):], c[:])
		}
	}
}

// MemoryBarrier publishes pending image stores when the bits cover texture
// fetches or texture updates.
func (d *Device) MemoryBarrier(bits gpu.Barrier) {
	d.record("MemoryBarrier")
	if bits&(gpu.BarrierTextureFetch|gpu.BarrierTextureUpdate) == 0 {
		return
	}
	for _, t := range d.textures {
		if t.pending != nil {
			t.data = t.pending
			t.pending = nil
		}
	}
}
