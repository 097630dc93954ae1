package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"ray-tracer/internal/gpu"
)

var (
	ErrNotInitialized     = errors.New("ray tracer is not initialized")
	ErrAlreadyInitialized = errors.New("ray tracer is already initialized")
	ErrDestroyed          = errors.New("ray tracer has been destroyed")
)

// State is the lifecycle stage of a RayTracer.
type State int

const (
	StateUninitialized State = iota
	StateInitialized         // trace done, nothing presented yet
	StateRendering
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRendering:
		return "rendering"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ShaderPaths locates the three shader stages on disk.
type ShaderPaths struct {
	Vertex   string
	Fragment string
	Compute  string
}

// Options configures a RayTracer.
type Options struct {
	ImageWidth  int
	ImageHeight int
	Format      gpu.Format
	Shaders     ShaderPaths
	Scene       gpu.SceneParams
}

func DefaultOptions() Options {
	return Options{
		ImageWidth:  800,
		ImageHeight: 800,
		Format:      gpu.FormatRGBA16F,
		Shaders: ShaderPaths{
			Vertex:   "shaders/ray_tracer.v.glsl",
			Fragment: "shaders/ray_tracer.f.glsl",
			Compute:  "shaders/ray_tracer.c.glsl",
		},
		Scene: gpu.DefaultScene(),
	}
}

// RayTracer traces the scene once into a texture and presents that texture
// on every frame.
type RayTracer struct {
	dev  gpu.Device
	opts Options

	texture *gpu.Texture
	compute *gpu.ComputePipeline
	present *gpu.PresentPipeline

	state    State
	traces   int
	viewport [4]int32
	resized  bool
}

func New(dev gpu.Device, opts Options) *RayTracer {
	return &RayTracer{dev: dev, opts: opts}
}

// Initialize builds both pipelines and the output texture, then runs the
// trace. On error nothing is left allocated and the tracer stays
// uninitialized.
func (rt *RayTracer) Initialize() error {
	switch rt.state {
	case StateDestroyed:
		return ErrDestroyed
	case StateInitialized, StateRendering:
		return ErrAlreadyInitialized
	}

	if err := rt.build(); err != nil {
		rt.release()
		return err
	}

	gx, gy, gz := gpu.WorkGroups(rt.texture.Width(), rt.texture.Height())
	if err := rt.compute.Dispatch(gx, gy, gz, rt.opts.Scene); err != nil {
		rt.release()
		return fmt.Errorf("trace: %w", err)
	}
	rt.traces++
	rt.state = StateInitialized

	slog.Info("scene traced",
		"width", rt.texture.Width(), "height", rt.texture.Height(),
		"groups", [3]uint32{gx, gy, gz})
	return nil
}

func (rt *RayTracer) build() error {
	vs, err := gpu.LoadSource(gpu.StageVertex, rt.opts.Shaders.Vertex)
	if err != nil {
		return err
	}
	fs, err := gpu.LoadSource(gpu.StageFragment, rt.opts.Shaders.Fragment)
	if err != nil {
		return err
	}
	cs, err := gpu.LoadSource(gpu.StageCompute, rt.opts.Shaders.Compute)
	if err != nil {
		return err
	}

	rt.dev.Enable(gpu.DepthTest)

	rt.present, err = gpu.NewPresentPipeline(rt.dev, vs, fs)
	if err != nil {
		return err
	}

	rt.dev.ActiveTexture(0)
	rt.texture, err = gpu.NewTexture(rt.dev, rt.opts.ImageWidth, rt.opts.ImageHeight, rt.opts.Format)
	if err != nil {
		return err
	}

	rt.compute, err = gpu.NewComputePipeline(rt.dev, cs, rt.texture)
	return err
}

// RenderFrame presents the traced texture. It never re-runs the trace.
func (rt *RayTracer) RenderFrame() error {
	switch rt.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateDestroyed:
		return ErrDestroyed
	}

	if rt.resized {
		v := rt.viewport
		rt.dev.Viewport(v[0], v[1], v[2], v[3])
		rt.resized = false
	}
	rt.present.Draw(rt.texture)
	rt.state = StateRendering
	return nil
}

// Resize sets the viewport used by subsequent frames.
func (rt *RayTracer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	rt.viewport = [4]int32{0, 0, int32(width), int32(height)}
	rt.resized = true
}

// Snapshot reads the traced image back, laid out the way the present pass
// shows it: the quad transform turns the texture half a revolution, so
// texel row 0 is the top row and texel columns run right to left. Values are
// clamped to [0, 1].
func (rt *RayTracer) Snapshot() (*image.NRGBA64, error) {
	switch rt.state {
	case StateUninitialized:
		return nil, ErrNotInitialized
	case StateDestroyed:
		return nil, ErrDestroyed
	}

	px, err := rt.texture.ReadPixels()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	w, h := rt.texture.Width(), rt.texture.Height()
	img := image.NewNRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := px[4*w*y:]
		for x := 0; x < w; x++ {
			p := row[4*(w-1-x):]
			img.SetNRGBA64(x, y, color.NRGBA64{
				R: unorm16(p[0]),
				G: unorm16(p[1]),
				B: unorm16(p[2]),
				A: unorm16(p[3]),
			})
		}
	}
	return img, nil
}

func unorm16(v float32) uint16 {
	if v <= 0 || v != v {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}

func (rt *RayTracer) State() State { return rt.state }

// Traces reports how many times the compute pass has been dispatched.
func (rt *RayTracer) Traces() int { return rt.traces }

func (rt *RayTracer) release() {
	rt.compute.Destroy()
	rt.compute = nil
	rt.present.Destroy()
	rt.present = nil
	rt.texture.Destroy()
	rt.texture = nil
}

// Destroy frees every GPU object. The context must still be current.
func (rt *RayTracer) Destroy() {
	if rt.state == StateDestroyed {
		return
	}
	rt.release()
	rt.state = StateDestroyed
}
