package gpu

import "github.com/go-gl/mathgl/mgl32"

// Stage identifies a shader stage. Values match the GL shader type enums.
type Stage uint32

const (
	StageVertex   Stage = 0x8B31
	StageFragment Stage = 0x8B30
	StageCompute  Stage = 0x91B9
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	}
	return "unknown"
}

// Format is a sized internal texture format.
type Format uint32

const (
	FormatRGBA8   Format = 0x8058
	FormatRGBA16F Format = 0x881A
	FormatRGBA32F Format = 0x8814
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	case FormatRGBA16F:
		return "rgba16f"
	case FormatRGBA32F:
		return "rgba32f"
	}
	return "unknown"
}

// Access is the access mode of an image unit binding.
type Access uint32

const (
	AccessReadOnly  Access = 0x88B8
	AccessWriteOnly Access = 0x88B9
	AccessReadWrite Access = 0x88BA
)

// Barrier is a set of memory barrier bits.
type Barrier uint32

const (
	BarrierTextureFetch      Barrier = 0x00000008
	BarrierShaderImageAccess Barrier = 0x00000020
	BarrierTextureUpdate     Barrier = 0x00000100
	BarrierAll               Barrier = 0xFFFFFFFF
)

// TexParam names a texture parameter.
type TexParam uint32

const (
	TexWrapS     TexParam = 0x2802
	TexWrapT     TexParam = 0x2803
	TexMagFilter TexParam = 0x2800
	TexMinFilter TexParam = 0x2801
)

// Texture parameter values.
const (
	ClampToEdge int32 = 0x812F
	Linear      int32 = 0x2601
	Nearest     int32 = 0x2600
)

// ClearMask selects the buffers cleared by Device.Clear.
type ClearMask uint32

const (
	ClearDepth ClearMask = 0x00000100
	ClearColor ClearMask = 0x00004000
)

// Primitive is a draw mode.
type Primitive uint32

const (
	Triangles     Primitive = 0x0004
	TriangleStrip Primitive = 0x0005
)

// Capability is a server-side capability toggled by Device.Enable.
type Capability uint32

const DepthTest Capability = 0x0B71

// Device is the set of GPU commands the pipelines issue. All calls go to the
// context current on the calling thread; handles are only valid while that
// context is alive.
type Device interface {
	CreateShader(stage Stage) uint32
	ShaderSource(shader uint32, sources ...string)
	// CompileShader compiles and reports the compile status and info log.
	CompileShader(shader uint32) (ok bool, infoLog string)
	DeleteShader(shader uint32)

	CreateProgram() uint32
	AttachShader(program, shader uint32)
	// LinkProgram links and reports the link status and info log.
	LinkProgram(program uint32) (ok bool, infoLog string)
	UseProgram(program uint32)
	DeleteProgram(program uint32)
	AttribLocation(program uint32, name string) int32
	UniformLocation(program uint32, name string) int32

	// Uniform uploads target the program in use.
	Uniform1i(location int32, v int32)
	Uniform1f(location int32, v float32)
	Uniform2f(location int32, v mgl32.Vec2)
	Uniform3f(location int32, v mgl32.Vec3)
	UniformMatrix4f(location int32, m mgl32.Mat4)

	CreateTexture() uint32
	ActiveTexture(unit uint32)
	// BindTexture binds a 2D texture to the active unit; 0 unbinds.
	BindTexture(texture uint32)
	TexParameter(param TexParam, value int32)
	// TexImage2D allocates storage for the bound texture without uploading data.
	TexImage2D(format Format, width, height int32)
	BindImageTexture(unit, texture uint32, access Access, format Format)
	// ReadTexImage reads level 0 of texture as RGBA float32 into dst.
	ReadTexImage(texture uint32, dst []float32)
	DeleteTexture(texture uint32)

	CreateVertexArray() uint32
	BindVertexArray(vao uint32)
	DeleteVertexArray(vao uint32)
	CreateBuffer() uint32
	// BufferData uploads static vertex data into buffer.
	BufferData(buffer uint32, data []float32)
	// VertexAttribPointer sources attribute index of the bound VAO from
	// buffer as tightly packed float components.
	VertexAttribPointer(index uint32, components int32, buffer uint32)
	EnableVertexAttribArray(index uint32)
	DeleteBuffer(buffer uint32)

	Enable(c Capability)
	Viewport(x, y, width, height int32)
	ClearColor(r, g, b, a float32)
	Clear(mask ClearMask)
	DrawArrays(mode Primitive, first, count int32)

	DispatchCompute(x, y, z uint32)
	MemoryBarrier(bits Barrier)
}
