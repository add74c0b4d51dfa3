package soft

import (
	"math"

	"github.com/chewxy/math32"
)

// vertex is a projected vertex: pixel-space x, y, normalised depth z and
// the clip-space w kept for perspective correction.
type vertex struct {
	x, y, z, w float32
}

// project maps clip-space positions to pixel space.
// Pixel centres sit on integer coordinates.
func project(data []float32, dims, width, height int) []vertex {
	n := len(data) / dims
	out := make([]vertex, n)
	for i := 0; i < n; i++ {
		p := data[i*dims : i*dims+dims]
		w := float32(1)
		if dims == 4 {
			w = p[3]
		}
		out[i] = vertex{
			x: (p[0]/w*0.5+0.5)*float32(width-1) + 0.5,
			y: (p[1]/w*0.5+0.5)*float32(height-1) + 0.5,
			z: p[2]/w*0.49999 + 0.5,
			w: w,
		}
	}
	return out
}

// setup holds the per-triangle edge constants shared by both passes.
type setup struct {
	v0, v1, v2 vertex
	dy12, dx21 float32
	dy20, dx02 float32
	invDet     float32
	minX, maxX int
	minY, maxY int
}

// newSetup returns false for degenerate or fully off-screen triangles,
// and for triangles with a vertex at or behind the eye (w <= 0). There is
// no near-plane clipping: such triangles are dropped whole.
func newSetup(v0, v1, v2 vertex, width, height int) (setup, bool) {
	if v0.w <= 0 || v1.w <= 0 || v2.w <= 0 {
		return setup{}, false
	}
	det := (v1.y-v2.y)*(v0.x-v2.x) + (v2.x-v1.x)*(v0.y-v2.y)
	if det > -1e-8 && det < 1e-8 {
		return setup{}, false
	}

	s := setup{
		v0: v0, v1: v1, v2: v2,
		dy12:   v1.y - v2.y,
		dx21:   v2.x - v1.x,
		dy20:   v2.y - v0.y,
		dx02:   v0.x - v2.x,
		invDet: 1 / det,
		minX:   int(math32.Floor(math32.Min(math32.Min(v0.x, v1.x), v2.x))),
		maxX:   int(math32.Ceil(math32.Max(math32.Max(v0.x, v1.x), v2.x))),
		minY:   int(math32.Floor(math32.Min(math32.Min(v0.y, v1.y), v2.y))),
		maxY:   int(math32.Ceil(math32.Max(math32.Max(v0.y, v1.y), v2.y))),
	}

	if s.minX < 0 {
		s.minX = 0
	}
	if s.maxX >= width {
		s.maxX = width - 1
	}
	if s.minY < 0 {
		s.minY = 0
	}
	if s.maxY >= height {
		s.maxY = height - 1
	}
	if s.minX > s.maxX || s.minY > s.maxY {
		return setup{}, false
	}
	return s, true
}

// bary returns the screen-space barycentric weights at pixel (px, py).
func (s *setup) bary(px, py int) (w0, w1, w2 float32) {
	dsx := float32(px) - s.v2.x
	dsy := float32(py) - s.v2.y
	w0 = (s.dy12*dsx + s.dx21*dsy) * s.invDet
	w1 = (s.dy20*dsx + s.dx02*dsy) * s.invDet
	w2 = 1 - w0 - w1
	return w0, w1, w2
}

func inside(w0, w1, w2 float32) bool {
	return w0 >= 0 && w0 <= 1 && w1 >= 0 && w1 <= 1 && w2 >= 0 && w2 <= 1
}

// depthScale quantises depth for the packed z-buffer token.
const depthScale = 2 << 17

const emptyToken = math.MaxInt64

// token packs quantised depth above the 1-based face id so that a
// plain minimum picks the nearest fragment, lowest id on ties. depth must
// lie in [0, 1]; larger values overflow the packed field.
func token(depth float32, faceID int32) int64 {
	return int64(depth*depthScale)<<32 | int64(uint32(faceID))
}

func tokenFace(t int64) int32 {
	return int32(uint32(t))
}

// depthPass writes the nearest fragment of face f into zbuf.
//
// Fragments outside the [0, 1] depth range are clipped. With a depth
// prior, fragments closer than the prior (shifted by
// epsilon) are discarded.
func depthPass(zbuf []int64, s *setup, f int32, width int, prior []float32, epsilon float32) {
	for py := s.minY; py <= s.maxY; py++ {
		rowOff := py * width
		for px := s.minX; px <= s.maxX; px++ {
			w0, w1, w2 := s.bary(px, py)
			if !inside(w0, w1, w2) {
				continue
			}

			pix := rowOff + px
			depth := w0*s.v0.z + w1*s.v1.z + w2*s.v2.z
			if depth < 0 || depth > 1 {
				continue
			}
			if prior != nil {
				thres := prior[pix]*0.49999 + 0.5 + epsilon
				if depth < thres {
					continue
				}
			}

			if t := token(depth, f+1); t < zbuf[pix] {
				zbuf[pix] = t
			}
		}
	}
}

// resolve fills the barycentric weights of pixel (px, py) for the winning
// triangle, corrected for perspective by the clip-space w.
func resolve(dst []float32, s *setup, px, py int) {
	w0, w1, w2 := s.bary(px, py)
	w0 /= s.v0.w
	w1 /= s.v1.w
	w2 /= s.v2.w
	sum := w0 + w1 + w2
	if sum == 0 {
		return
	}
	inv := 1 / sum
	dst[0] = w0 * inv
	dst[1] = w1 * inv
	dst[2] = w2 * inv
}
