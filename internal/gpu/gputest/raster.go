package gputest

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"ray-tracer/internal/gpu"
)

type vertex struct {
	ndc mgl32.Vec2
	uv  mgl32.Vec2
}

// rasterize fills the pixels of fb (w x h, top row first) whose centres fall
// inside the primitives, sampling t at the interpolated texture coordinate.
func rasterize(mode gpu.Primitive, first, count int, pos, uv []float32, mvp mgl32.Mat4, t *texture, fb []float32, w, h int) error {
	if first < 0 || count < 0 || 2*(first+count) > len(pos) || 2*(first+count) > len(uv) {
		return fmt.Errorf("vertices %d..%d out of range", first, first+count)
	}

	verts := make([]vertex, count)
	for i := range verts {
		j := 2 * (first + i)
		clip := mvp.Mul4x1(mgl32.Vec4{pos[j], pos[j+1], 0, 1})
		if clip.W() == 0 {
			return fmt.Errorf("vertex %d has w = 0", first+i)
		}
		verts[i] = vertex{
			ndc: mgl32.Vec2{clip.X() / clip.W(), clip.Y() / clip.W()},
			uv:  mgl32.Vec2{uv[j], uv[j+1]},
		}
	}

	var tris [][3]vertex
	switch mode {
	case gpu.TriangleStrip:
		for i := 2; i < len(verts); i++ {
			tris = append(tris, [3]vertex{verts[i-2], verts[i-1], verts[i]})
		}
	case gpu.Triangles:
		for i := 2; i < len(verts); i += 3 {
			tris = append(tris, [3]vertex{verts[i-2], verts[i-1], verts[i]})
		}
	default:
		return fmt.Errorf("unsupported primitive 0x%X", uint32(mode))
	}

	for row := 0; row < h; row++ {
		y := 1 - 2*(float32(row)+0.5)/float32(h)
		for col := 0; col < w; col++ {
			x := -1 + 2*(float32(col)+0.5)/float32(w)
			for _, tri := range tris {
				tc, ok := coverage(tri, mgl32.Vec2{x, y})
				if !ok {
					continue
				}
				copy(fb[4*(row*w+col):], t.sample(tc))
				break
			}
		}
	}
	return nil
}

// coverage returns the interpolated texture coordinate at p, or false when
// p lies outside the triangle.
func coverage(tri [3]vertex, p mgl32.Vec2) (mgl32.Vec2, bool) {
	a, b, c := tri[0].ndc, tri[1].ndc, tri[2].ndc
	area := edge(a, b, c)
	if area == 0 {
		return mgl32.Vec2{}, false
	}
	const eps = 1e-6
	l0 := edge(b, c, p) / area
	l1 := edge(c, a, p) / area
	l2 := edge(a, b, p) / area
	if l0 < -eps || l1 < -eps || l2 < -eps {
		return mgl32.Vec2{}, false
	}
	return tri[0].uv.Mul(l0).Add(tri[1].uv.Mul(l1)).Add(tri[2].uv.Mul(l2)), true
}

func edge(a, b, p mgl32.Vec2) float32 {
	return (b.X()-a.X())*(p.Y()-a.Y()) - (b.Y()-a.Y())*(p.X()-a.X())
}

// sample returns the nearest texel with clamp-to-edge addressing. Texel row 0
// is at v = 0.
func (t *texture) sample(uv mgl32.Vec2) []float32 {
	x := clampIndex(int(math.Floor(float64(uv.X()*float32(t.width)))), t.width)
	y := clampIndex(int(math.Floor(float64(uv.Y()*float32(t.height)))), t.height)
	i := 4 * (y*t.width + x)
	return t.data[i : i+4]
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
