package renderer_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ray-tracer/internal/gpu"
	"ray-tracer/internal/gpu/gputest"
	"ray-tracer/renderer"
)

func testOptions(w, h int) renderer.Options {
	opts := renderer.DefaultOptions()
	opts.ImageWidth, opts.ImageHeight = w, h
	opts.Shaders = renderer.ShaderPaths{
		Vertex:   filepath.Join("..", opts.Shaders.Vertex),
		Fragment: filepath.Join("..", opts.Shaders.Fragment),
		Compute:  filepath.Join("..", opts.Shaders.Compute),
	}
	return opts
}

func solid(r, g, b, a float32) gputest.Kernel {
	return func(x, y int, u gputest.Uniforms) [4]float32 { return [4]float32{r, g, b, a} }
}

func TestDefaultOptions(t *testing.T) {
	opts := renderer.DefaultOptions()
	assert.Equal(t, 800, opts.ImageWidth)
	assert.Equal(t, 800, opts.ImageHeight)
	assert.Equal(t, gpu.FormatRGBA16F, opts.Format)
	assert.Equal(t, gpu.DefaultScene(), opts.Scene)
}

func TestInitializeTracesOnce(t *testing.T) {
	dev := gputest.New()
	dev.Kernel = solid(0.2, 0.4, 0.6, 1)
	rt := renderer.New(dev, testOptions(16, 16))
	assert.Equal(t, renderer.StateUninitialized, rt.State())

	require.NoError(t, rt.Initialize())
	defer rt.Destroy()

	assert.Equal(t, renderer.StateInitialized, rt.State())
	assert.Equal(t, 1, rt.Traces())
	assert.Equal(t, 1, dev.Count("DispatchCompute"))
	assert.True(t, dev.Enabled[gpu.DepthTest])
	assert.Empty(t, dev.Errors)

	for i := 0; i < 100; i++ {
		require.NoError(t, rt.RenderFrame())
	}
	assert.Equal(t, renderer.StateRendering, rt.State())
	assert.Equal(t, 100, dev.Count("DrawArrays"))
	assert.Equal(t, 1, dev.Count("DispatchCompute"), "frames must reuse the traced image")
	assert.Equal(t, 1, rt.Traces())
}

func TestInitializeWithDefaultImageSize(t *testing.T) {
	dev := gputest.New()
	def := renderer.DefaultOptions()
	rt := renderer.New(dev, testOptions(def.ImageWidth, def.ImageHeight))

	require.NoError(t, rt.Initialize())
	defer rt.Destroy()

	require.NoError(t, rt.RenderFrame())
	assert.Equal(t, 800, dev.FBWidth)
	assert.Equal(t, 800, dev.FBHeight)
}

func TestFramePresentsTracedImage(t *testing.T) {
	dev := gputest.New()
	dev.Kernel = solid(0.2, 0.4, 0.6, 1)
	rt := renderer.New(dev, testOptions(12, 10))
	require.NoError(t, rt.Initialize())
	defer rt.Destroy()

	require.NoError(t, rt.RenderFrame())

	assert.Equal(t, 12, dev.FBWidth)
	assert.Equal(t, 10, dev.FBHeight)
	for i := 0; i < len(dev.Framebuffer); i += 4 {
		require.Equal(t, []float32{0.2, 0.4, 0.6, 1}, dev.Framebuffer[i:i+4], "pixel %d", i/4)
	}
}

func TestRenderFrameBeforeInitialize(t *testing.T) {
	dev := gputest.New()
	rt := renderer.New(dev, testOptions(8, 8))

	assert.ErrorIs(t, rt.RenderFrame(), renderer.ErrNotInitialized)
	_, err := rt.Snapshot()
	assert.ErrorIs(t, err, renderer.ErrNotInitialized)
	assert.Empty(t, dev.Calls)
}

func TestInitializeTwice(t *testing.T) {
	dev := gputest.New()
	rt := renderer.New(dev, testOptions(8, 8))
	require.NoError(t, rt.Initialize())
	defer rt.Destroy()

	assert.ErrorIs(t, rt.Initialize(), renderer.ErrAlreadyInitialized)
	require.NoError(t, rt.RenderFrame())
	assert.ErrorIs(t, rt.Initialize(), renderer.ErrAlreadyInitialized)
	assert.Equal(t, 1, rt.Traces())
}

func TestInitializeMissingShader(t *testing.T) {
	dev := gputest.New()
	opts := testOptions(8, 8)
	opts.Shaders.Fragment = filepath.Join(t.TempDir(), "missing.f.glsl")
	rt := renderer.New(dev, opts)

	err := rt.Initialize()
	var nf *gpu.SourceNotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, opts.Shaders.Fragment, nf.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.Equal(t, renderer.StateUninitialized, rt.State())
	assert.Zero(t, dev.Live())
	assert.Zero(t, rt.Traces())
}

func TestInitializeCompileError(t *testing.T) {
	dev := gputest.New()
	opts := testOptions(8, 8)
	opts.Shaders.Compute = filepath.Join(t.TempDir(), "broken.c.glsl")
	require.NoError(t, os.WriteFile(opts.Shaders.Compute, []byte("layout(local_size_x = 8) in;\nvoid main( {\n"), 0o644))
	rt := renderer.New(dev, opts)

	err := rt.Initialize()
	var cerr *gpu.CompilationError
	require.True(t, errors.As(err, &cerr), "got %v", err)
	assert.Equal(t, gpu.StageCompute, cerr.Stage)
	assert.Equal(t, opts.Shaders.Compute, cerr.File)

	assert.Equal(t, renderer.StateUninitialized, rt.State())
	assert.Zero(t, dev.Live(), "a failed initialization must not leak GPU objects")
	assert.Zero(t, dev.Count("DispatchCompute"))
	assert.Empty(t, dev.Errors)

	// The tracer can be initialized once the source is fixed.
	opts.Shaders.Compute = testOptions(8, 8).Shaders.Compute
	rt = renderer.New(dev, opts)
	require.NoError(t, rt.Initialize())
	rt.Destroy()
}

func TestInitializeLinkError(t *testing.T) {
	dev := gputest.New()
	dev.FailLink = "error: vertex output frag_uv not consumed"
	rt := renderer.New(dev, testOptions(8, 8))

	err := rt.Initialize()
	var lerr *gpu.LinkError
	require.True(t, errors.As(err, &lerr), "got %v", err)
	assert.Contains(t, lerr.Log, "frag_uv")
	assert.Zero(t, dev.Live())
}

func TestSnapshotMatchesPresentedLayout(t *testing.T) {
	dev := gputest.New()
	// Red marks texel column 0, green texel row 0.
	dev.Kernel = func(x, y int, u gputest.Uniforms) [4]float32 {
		var c [4]float32
		if x == 0 {
			c[0] = 1
		}
		if y == 0 {
			c[1] = 1
		}
		c[2], c[3] = 0.5, 1
		return c
	}
	const w, h = 6, 4
	rt := renderer.New(dev, testOptions(w, h))
	require.NoError(t, rt.Initialize())
	defer rt.Destroy()

	img, err := rt.Snapshot()
	require.NoError(t, err)
	require.Equal(t, w, img.Bounds().Dx())
	require.Equal(t, h, img.Bounds().Dy())

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.NRGBA64At(x, y)
			assert.Equal(t, x == w-1, c.R == 0xffff, "red at %d,%d", x, y)
			assert.Equal(t, y == 0, c.G == 0xffff, "green at %d,%d", x, y)
			assert.Equal(t, uint16(0x8000), c.B)
			assert.Equal(t, uint16(0xffff), c.A)
		}
	}
}

func TestSnapshotMatchesPresentedFrame(t *testing.T) {
	dev := gputest.New()
	dev.Kernel = func(x, y int, u gputest.Uniforms) [4]float32 {
		var c [4]float32
		if x == 0 {
			c[0] = 1
		}
		if y == 0 {
			c[1] = 1
		}
		if x == 1 && y == 2 {
			c[2] = 1
		}
		c[3] = 1
		return c
	}
	const w, h = 7, 5
	rt := renderer.New(dev, testOptions(w, h))
	require.NoError(t, rt.Initialize())
	defer rt.Destroy()
	require.NoError(t, rt.RenderFrame())

	img, err := rt.Snapshot()
	require.NoError(t, err)
	require.Equal(t, w, dev.FBWidth)
	require.Equal(t, h, dev.FBHeight)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fb := dev.Framebuffer[4*(y*w+x):]
			c := img.NRGBA64At(x, y)
			assert.Equal(t, fb[0] == 1, c.R == 0xffff, "red at %d,%d", x, y)
			assert.Equal(t, fb[1] == 1, c.G == 0xffff, "green at %d,%d", x, y)
			assert.Equal(t, fb[2] == 1, c.B == 0xffff, "blue at %d,%d", x, y)
		}
	}
}

func TestSnapshotClampsHDR(t *testing.T) {
	dev := gputest.New()
	dev.Kernel = solid(3.5, -1, 0, 1)
	rt := renderer.New(dev, testOptions(8, 8))
	require.NoError(t, rt.Initialize())
	defer rt.Destroy()

	img, err := rt.Snapshot()
	require.NoError(t, err)
	c := img.NRGBA64At(3, 3)
	assert.Equal(t, uint16(0xffff), c.R)
	assert.Equal(t, uint16(0), c.G)
	assert.Equal(t, uint16(0), c.B)
}

func TestResizeAppliesViewport(t *testing.T) {
	dev := gputest.New()
	rt := renderer.New(dev, testOptions(8, 8))
	require.NoError(t, rt.Initialize())
	defer rt.Destroy()

	rt.Resize(300, 200)
	require.NoError(t, rt.RenderFrame())
	assert.Equal(t, [4]int32{0, 0, 300, 200}, dev.ViewportBox)
	assert.Equal(t, 1, dev.Count("Viewport"))

	require.NoError(t, rt.RenderFrame())
	assert.Equal(t, 1, dev.Count("Viewport"), "viewport is only set after a resize")

	rt.Resize(0, 200)
	require.NoError(t, rt.RenderFrame())
	assert.Equal(t, [4]int32{0, 0, 300, 200}, dev.ViewportBox)
}

func TestDestroy(t *testing.T) {
	dev := gputest.New()
	rt := renderer.New(dev, testOptions(8, 8))
	require.NoError(t, rt.Initialize())
	require.NoError(t, rt.RenderFrame())
	require.NotZero(t, dev.Live())

	rt.Destroy()
	rt.Destroy()

	assert.Zero(t, dev.Live())
	assert.Empty(t, dev.Errors)
	assert.Equal(t, renderer.StateDestroyed, rt.State())
	assert.ErrorIs(t, rt.RenderFrame(), renderer.ErrDestroyed)
	assert.ErrorIs(t, rt.Initialize(), renderer.ErrDestroyed)
	_, err := rt.Snapshot()
	assert.ErrorIs(t, err, renderer.ErrDestroyed)
}

func TestDestroyBeforeInitialize(t *testing.T) {
	dev := gputest.New()
	rt := renderer.New(dev, testOptions(8, 8))
	rt.Destroy()
	assert.Equal(t, renderer.StateDestroyed, rt.State())
	assert.Empty(t, dev.Calls)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", renderer.StateUninitialized.String())
	assert.Equal(t, "rendering", renderer.StateRendering.String())
	assert.Equal(t, "State(9)", renderer.State(9).String())
}
