package opengl

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"ray-tracer/internal/gpu"
)

// Device issues gpu commands to the OpenGL context current on the calling
// thread.
type Device struct {
	Info Info
}

var _ gpu.Device = (*Device)(nil)

// Info describes the context the device talks to.
type Info struct {
	Version     string
	Renderer    string
	Vendor      string
	GLSLVersion string
}

// NewDevice loads the GL entry points. Must be called after the GLFW window
// context is made current.
func NewDevice() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, &gpu.ResourceCreationError{Resource: "OpenGL context", Err: err}
	}
	return &Device{Info: Info{
		Version:     gl.GoStr(gl.GetString(gl.VERSION)),
		Renderer:    gl.GoStr(gl.GetString(gl.RENDERER)),
		Vendor:      gl.GoStr(gl.GetString(gl.VENDOR)),
		GLSLVersion: gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)),
	}}, nil
}

// CheckError drains the GL error queue and reports the first error seen.
func (d *Device) CheckError() error {
	var first uint32
	for {
		e := gl.GetError()
		if e == gl.NO_ERROR {
			break
		}
		if first == 0 {
			first = e
		}
	}
	if first != 0 {
		return fmt.Errorf("gl error 0x%04X", first)
	}
	return nil
}

// ── Shaders and programs ─────────────────────────────────────────────────────

func (d *Device) CreateShader(stage gpu.Stage) uint32 {
	return gl.CreateShader(uint32(stage))
}

func (d *Device) ShaderSource(shader uint32, sources ...string) {
	terminated := make([]string, len(sources))
	for i, s := range sources {
		terminated[i] = s + "\x00"
	}
	csrc, free := gl.Strs(terminated...)
	defer free()
	gl.ShaderSource(shader, int32(len(terminated)), csrc, nil)
}

func (d *Device) CompileShader(shader uint32) (bool, string) {
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		return false, strings.TrimRight(log, "\x00")
	}
	return true, ""
}

func (d *Device) DeleteShader(shader uint32) { gl.DeleteShader(shader) }

func (d *Device) CreateProgram() uint32 { return gl.CreateProgram() }

func (d *Device) AttachShader(program, shader uint32) { gl.AttachShader(program, shader) }

func (d *Device) LinkProgram(program uint32) (bool, string) {
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(log))
		return false, strings.TrimRight(log, "\x00")
	}
	return true, ""
}

func (d *Device) UseProgram(program uint32)    { gl.UseProgram(program) }
func (d *Device) DeleteProgram(program uint32) { gl.DeleteProgram(program) }

func (d *Device) AttribLocation(program uint32, name string) int32 {
	return gl.GetAttribLocation(program, gl.Str(name+"\x00"))
}

func (d *Device) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *Device) Uniform1i(loc int32, v int32)      { gl.Uniform1i(loc, v) }
func (d *Device) Uniform1f(loc int32, v float32)    { gl.Uniform1f(loc, v) }
func (d *Device) Uniform2f(loc int32, v mgl32.Vec2) { gl.Uniform2fv(loc, 1, &v[0]) }
func (d *Device) Uniform3f(loc int32, v mgl32.Vec3) { gl.Uniform3fv(loc, 1, &v[0]) }

func (d *Device) UniformMatrix4f(loc int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(loc, 1, false, &m[0])
}

// ── Textures ─────────────────────────────────────────────────────────────────

func (d *Device) CreateTexture() uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	return id
}

func (d *Device) ActiveTexture(unit uint32) { gl.ActiveTexture(gl.TEXTURE0 + unit) }

func (d *Device) BindTexture(texture uint32) { gl.BindTexture(gl.TEXTURE_2D, texture) }

func (d *Device) TexParameter(param gpu.TexParam, value int32) {
	gl.TexParameteri(gl.TEXTURE_2D, uint32(param), value)
}

func (d *Device) TexImage2D(format gpu.Format, width, height int32) {
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(format), width, height, 0, gl.RGBA, gl.FLOAT, nil)
}

func (d *Device) BindImageTexture(unit, texture uint32, access gpu.Access, format gpu.Format) {
	gl.BindImageTexture(unit, texture, 0, false, 0, uint32(access), uint32(format))
}

func (d *Device) ReadTexImage(texture uint32, dst []float32) {
	if len(dst) == 0 {
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, texture)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 4)
	gl.GetTexImage(gl.TEXTURE_2D, 0, gl.RGBA, gl.FLOAT, gl.Ptr(&dst[0]))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (d *Device) DeleteTexture(texture uint32) { gl.DeleteTextures(1, &texture) }

// ── Geometry ─────────────────────────────────────────────────────────────────

func (d *Device) CreateVertexArray() uint32 {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return vao
}

func (d *Device) BindVertexArray(vao uint32)   { gl.BindVertexArray(vao) }
func (d *Device) DeleteVertexArray(vao uint32) { gl.DeleteVertexArrays(1, &vao) }

func (d *Device) CreateBuffer() uint32 {
	var buf uint32
	gl.GenBuffers(1, &buf)
	return buf
}

func (d *Device) BufferData(buffer uint32, data []float32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, buffer)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
}

func (d *Device) VertexAttribPointer(index uint32, components int32, buffer uint32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, buffer)
	gl.VertexAttribPointer(index, components, gl.FLOAT, false, components*4, gl.PtrOffset(0))
}

func (d *Device) EnableVertexAttribArray(index uint32) { gl.EnableVertexAttribArray(index) }

func (d *Device) DeleteBuffer(buffer uint32) { gl.DeleteBuffers(1, &buffer) }

// ── Commands ─────────────────────────────────────────────────────────────────

func (d *Device) Enable(c gpu.Capability) { gl.Enable(uint32(c)) }

func (d *Device) Viewport(x, y, width, height int32) { gl.Viewport(x, y, width, height) }

func (d *Device) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }

func (d *Device) Clear(mask gpu.ClearMask) { gl.Clear(uint32(mask)) }

func (d *Device) DrawArrays(mode gpu.Primitive, first, count int32) {
	gl.DrawArrays(uint32(mode), first, count)
}

func (d *Device) DispatchCompute(x, y, z uint32) { gl.DispatchCompute(x, y, z) }

func (d *Device) MemoryBarrier(bits gpu.Barrier) { gl.MemoryBarrier(uint32(bits)) }
