package gpu_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ray-tracer/internal/gpu"
	"ray-tracer/internal/gpu/gputest"
)

func TestNewTextureParameters(t *testing.T) {
	dev := gputest.New()
	tex, err := gpu.NewTexture(dev, 800, 600, gpu.FormatRGBA16F)
	require.NoError(t, err)
	defer tex.Destroy()

	assert.NotZero(t, tex.ID())
	assert.Equal(t, 800, tex.Width())
	assert.Equal(t, 600, tex.Height())
	assert.Equal(t, gpu.FormatRGBA16F, tex.Format())

	for param, want := range map[gpu.TexParam]int32{
		gpu.TexWrapS:     gpu.ClampToEdge,
		gpu.TexWrapT:     gpu.ClampToEdge,
		gpu.TexMinFilter: gpu.Linear,
		gpu.TexMagFilter: gpu.Linear,
	} {
		got, ok := dev.TextureParam(tex.ID(), param)
		require.True(t, ok, "parameter %#x not set", param)
		assert.Equal(t, want, got)
	}
	assert.Empty(t, dev.Errors)
}

func TestNewTextureRejectsEmptySize(t *testing.T) {
	dev := gputest.New()
	for _, size := range [][2]int{{0, 800}, {800, 0}, {-1, -1}} {
		_, err := gpu.NewTexture(dev, size[0], size[1], gpu.FormatRGBA16F)
		var rerr *gpu.ResourceCreationError
		require.True(t, errors.As(err, &rerr), "size %v", size)
		assert.Equal(t, "texture", rerr.Resource)
	}
	assert.Zero(t, dev.Live())
}

func TestTextureBindImage(t *testing.T) {
	dev := gputest.New()
	tex, err := gpu.NewTexture(dev, 4, 4, gpu.FormatRGBA16F)
	require.NoError(t, err)

	tex.BindImage(0, gpu.AccessWriteOnly)
	id, access, format := dev.ImageBinding(0)
	assert.Equal(t, tex.ID(), id)
	assert.Equal(t, gpu.AccessWriteOnly, access)
	assert.Equal(t, gpu.FormatRGBA16F, format)
}

func TestTextureReadPixels(t *testing.T) {
	dev := gputest.New()
	tex, err := gpu.NewTexture(dev, 2, 3, gpu.FormatRGBA16F)
	require.NoError(t, err)

	px, err := tex.ReadPixels()
	require.NoError(t, err)
	assert.Len(t, px, 2*3*4)

	tex.Destroy()
	tex.Destroy()
	assert.Zero(t, tex.ID())
	assert.Zero(t, dev.Live())

	_, err = tex.ReadPixels()
	assert.Error(t, err)
}

func TestLoadSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quad.v.glsl")
	require.NoError(t, os.WriteFile(path, []byte(quadVert), 0o644))

	src, err := gpu.LoadSource(gpu.StageVertex, path)
	require.NoError(t, err)
	assert.Equal(t, gpu.StageVertex, src.Stage)
	assert.Equal(t, path, src.File)
	assert.Equal(t, quadVert, src.Source)
}

func TestLoadSourceMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.c.glsl")

	_, err := gpu.LoadSource(gpu.StageCompute, path)
	var serr *gpu.SourceNotFoundError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, path, serr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var cerr *gpu.CompilationError
	assert.False(t, errors.As(err, &cerr), "a missing file is not a compile error")
}
