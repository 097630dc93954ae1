package gpu

import "fmt"

// Texture owns a 2D GPU image. Its size and sampling parameters are fixed at
// creation: clamp-to-edge wrapping and linear filtering, suited to sampling
// across a full-screen quad.
type Texture struct {
	dev    Device
	id     uint32
	width  int32
	height int32
	format Format
}

// NewTexture allocates uninitialised storage of the given size and format.
// The texture is left bound to the active unit.
func NewTexture(dev Device, width, height int, format Format) (*Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, &ResourceCreationError{
			Resource: "texture",
			Err:      fmt.Errorf("invalid size %dx%d", width, height),
		}
	}

	id := dev.CreateTexture()
	if id == 0 {
		return nil, &ResourceCreationError{Resource: "texture"}
	}
	dev.BindTexture(id)

	dev.TexParameter(TexWrapS, ClampToEdge)
	dev.TexParameter(TexWrapT, ClampToEdge)
	dev.TexParameter(TexMagFilter, Linear)
	dev.TexParameter(TexMinFilter, Linear)

	dev.TexImage2D(format, int32(width), int32(height))

	return &Texture{
		dev:    dev,
		id:     id,
		width:  int32(width),
		height: int32(height),
		format: format,
	}, nil
}

// Bind makes the texture current on the active texture unit.
func (t *Texture) Bind() {
	t.dev.BindTexture(t.id)
}

// BindImage attaches level 0 of the texture to an image unit.
func (t *Texture) BindImage(unit uint32, access Access) {
	t.dev.BindImageTexture(unit, t.id, access, t.format)
}

// ID returns the raw handle, for calls that take it directly.
func (t *Texture) ID() uint32 { return t.id }

func (t *Texture) Width() int  { return int(t.width) }
func (t *Texture) Height() int { return int(t.height) }

func (t *Texture) Format() Format { return t.format }

// ReadPixels returns the texture contents as RGBA float32 values, bottom row
// first. Image writes made before the call are made visible first.
func (t *Texture) ReadPixels() ([]float32, error) {
	if t.id == 0 {
		return nil, fmt.Errorf("read pixels: texture destroyed")
	}
	buf := make([]float32, 4*int(t.width)*int(t.height))
	t.dev.MemoryBarrier(BarrierTextureUpdate)
	t.dev.ReadTexImage(t.id, buf)
	return buf, nil
}

// Destroy frees the GPU image and zeroes the handle.
func (t *Texture) Destroy() {
	if t == nil || t.id == 0 {
		return
	}
	t.dev.DeleteTexture(t.id)
	t.id = 0
}
