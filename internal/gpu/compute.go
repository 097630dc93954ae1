package gpu

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// LocalSize is the work-group edge length the tracing kernel declares with
// layout(local_size_x = 8, local_size_y = 8).
const LocalSize = 8

// OutputImageUnit is the image unit the kernel writes its result to.
const OutputImageUnit = 0

// SceneParams configures a single trace pass.
type SceneParams struct {
	Eye        mgl32.Vec3
	Center     mgl32.Vec3
	Up         mgl32.Vec3
	ScreenSize mgl32.Vec2
	Near       float32
}

// DefaultScene returns the camera set-up of the demo scene.
func DefaultScene() SceneParams {
	return SceneParams{
		Eye:        mgl32.Vec3{1.5, 0, -3},
		Center:     mgl32.Vec3{0, -2, 0},
		Up:         mgl32.Vec3{0, 1, 0},
		ScreenSize: mgl32.Vec2{2, 2},
		Near:       1,
	}
}

// ComputePipeline runs the tracing kernel over its output texture.
type ComputePipeline struct {
	dev     Device
	program *ShaderProgram
	output  *Texture

	eyeLoc        int32
	centerLoc     int32
	upLoc         int32
	screenSizeLoc int32
	nearLoc       int32
}

// NewComputePipeline builds the kernel program from a compute stage and
// resolves the scene uniforms it must expose.
func NewComputePipeline(dev Device, src StageSource, output *Texture) (*ComputePipeline, error) {
	if output == nil {
		return nil, fmt.Errorf("compute pipeline: nil output texture")
	}
	prog, err := NewProgram(dev, src)
	if err != nil {
		return nil, fmt.Errorf("compute pipeline: %w", err)
	}

	locs, err := prog.resolveUniforms("eye", "scene_center", "raw_up", "screen_size", "near")
	if err != nil {
		prog.Destroy()
		return nil, fmt.Errorf("compute pipeline: %w", err)
	}

	return &ComputePipeline{
		dev:           dev,
		program:       prog,
		output:        output,
		eyeLoc:        locs[0],
		centerLoc:     locs[1],
		upLoc:         locs[2],
		screenSizeLoc: locs[3],
		nearLoc:       locs[4],
	}, nil
}

// WorkGroups returns the number of work groups needed to cover a
// width x height image.
func WorkGroups(width, height int) (x, y, z uint32) {
	x = uint32((width + LocalSize - 1) / LocalSize)
	y = uint32((height + LocalSize - 1) / LocalSize)
	return x, y, 1
}

// Dispatch traces the scene into the output texture over an x*y*z grid of
// work groups. It ends with a memory barrier so that everything sampled or
// read from the texture afterwards sees the finished image.
func (c *ComputePipeline) Dispatch(x, y, z uint32, scene SceneParams) error {
	if x == 0 || y == 0 || z == 0 {
		return fmt.Errorf("dispatch %dx%dx%d: %w", x, y, z, ErrEmptyDomain)
	}

	c.output.BindImage(OutputImageUnit, AccessWriteOnly)

	c.program.Use()
	c.dev.Uniform3f(c.eyeLoc, scene.Eye)
	c.dev.Uniform3f(c.centerLoc, scene.Center)
	c.dev.Uniform3f(c.upLoc, scene.Up)
	c.dev.Uniform2f(c.screenSizeLoc, scene.ScreenSize)
	c.dev.Uniform1f(c.nearLoc, scene.Near)

	c.dev.DispatchCompute(x, y, z)

	// Image stores are incoherent; without this the present pass may sample
	// a partially written image.
	c.dev.MemoryBarrier(BarrierShaderImageAccess | BarrierTextureFetch)
	return nil
}

func (c *ComputePipeline) Program() *ShaderProgram { return c.program }

func (c *ComputePipeline) Output() *Texture { return c.output }

// Destroy releases the program. The output texture belongs to the caller.
func (c *ComputePipeline) Destroy() {
	if c == nil {
		return
	}
	c.program.Destroy()
}
