package gpu

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// QuadPositions is a triangle strip covering normalized device space.
var QuadPositions = [8]float32{
	-1, -1,
	-1, 1,
	1, -1,
	1, 1,
}

// QuadUVs maps each quad corner to the matching texture corner.
var QuadUVs = [8]float32{
	0, 0,
	0, 1,
	1, 0,
	1, 1,
}

// QuadMVP returns the fixed transform used to present the quad: an
// orthographic box one unit deep in front of a camera at z=1 looking at the
// origin with -Y up. The quad needs no model placement.
func QuadMVP() mgl32.Mat4 {
	proj := mgl32.Ortho(-1, 1, -1, 1, 0, 2)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, -1, 0})
	model := mgl32.Ident4()
	return proj.Mul4(view).Mul4(model)
}

// PresentPipeline draws a texture over the whole viewport.
type PresentPipeline struct {
	dev     Device
	program *ShaderProgram

	vao uint32
	vbo uint32
	uvb uint32

	samplerLoc int32
	mvpLoc     int32
	mvp        mgl32.Mat4
}

// NewPresentPipeline builds the quad program and uploads the quad geometry.
func NewPresentPipeline(dev Device, vertex, fragment StageSource) (*PresentPipeline, error) {
	prog, err := NewProgram(dev, vertex, fragment)
	if err != nil {
		return nil, fmt.Errorf("present pipeline: %w", err)
	}

	p := &PresentPipeline{dev: dev, program: prog, mvp: QuadMVP()}
	if err := p.init(); err != nil {
		p.Destroy()
		return nil, fmt.Errorf("present pipeline: %w", err)
	}
	return p, nil
}

func (p *PresentPipeline) init() error {
	pos, err := p.program.Attrib("pos")
	if err != nil {
		return err
	}
	uv, err := p.program.Attrib("uv")
	if err != nil {
		return err
	}
	locs, err := p.program.resolveUniforms("mySampler", "mvp")
	if err != nil {
		return err
	}
	p.samplerLoc, p.mvpLoc = locs[0], locs[1]

	p.vao = p.dev.CreateVertexArray()
	if p.vao == 0 {
		return &ResourceCreationError{Resource: "quad vertex array"}
	}
	p.dev.BindVertexArray(p.vao)

	p.vbo = p.dev.CreateBuffer()
	p.uvb = p.dev.CreateBuffer()
	if p.vbo == 0 || p.uvb == 0 {
		p.dev.BindVertexArray(0)
		return &ResourceCreationError{Resource: "quad vertex buffer"}
	}

	p.dev.BufferData(p.vbo, QuadPositions[:])
	p.dev.VertexAttribPointer(uint32(pos), 2, p.vbo)
	p.dev.EnableVertexAttribArray(uint32(pos))

	p.dev.BufferData(p.uvb, QuadUVs[:])
	p.dev.VertexAttribPointer(uint32(uv), 2, p.uvb)
	p.dev.EnableVertexAttribArray(uint32(uv))

	p.dev.BindVertexArray(0)
	return nil
}

// Draw clears the target and presents tex across the viewport.
func (p *PresentPipeline) Draw(tex *Texture) {
	p.dev.ClearColor(0, 0, 0, 1)
	p.dev.Clear(ClearColor | ClearDepth)

	p.program.Use()
	p.dev.UniformMatrix4f(p.mvpLoc, p.mvp)

	p.dev.ActiveTexture(0)
	tex.Bind()
	p.dev.Uniform1i(p.samplerLoc, 0)

	p.dev.BindVertexArray(p.vao)
	p.dev.DrawArrays(TriangleStrip, 0, 4)

	p.dev.BindVertexArray(0)
	p.dev.BindTexture(0)
}

// MVP returns the transform uploaded on every draw.
func (p *PresentPipeline) MVP() mgl32.Mat4 { return p.mvp }

func (p *PresentPipeline) Program() *ShaderProgram { return p.program }

// Destroy frees the quad buffers, vertex array and program.
func (p *PresentPipeline) Destroy() {
	if p == nil {
		return
	}
	if p.vbo != 0 {
		p.dev.DeleteBuffer(p.vbo)
		p.vbo = 0
	}
	if p.uvb != 0 {
		p.dev.DeleteBuffer(p.uvb)
		p.uvb = 0
	}
	if p.vao != 0 {
		p.dev.DeleteVertexArray(p.vao)
		p.vao = 0
	}
	p.program.Destroy()
}
