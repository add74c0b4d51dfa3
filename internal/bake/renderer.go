package bake

import (
	"fmt"
	"image"
	"math"

	"github.com/fogleman/fauxgl"

	"custom-rasterizer/internal/mesh"
	"custom-rasterizer/internal/raster"
	"custom-rasterizer/internal/texture"
)

// Mode selects what a bake writes into each covered pixel.
type Mode string

const (
	ModeMask     Mode = "mask"     // opaque white where covered
	ModeNormal   Mode = "normal"   // interpolated normal, [-1,1] → [0,255]
	ModePosition Mode = "position" // object-space position, [-1,1] → [0,255]
	ModeUV       Mode = "uv"       // u in red, v in green
	ModeColor    Mode = "color"    // interpolated vertex color
	ModeTexture  Mode = "texture"  // texture sampled at the interpolated uv
	ModeShaded   Mode = "shaded"   // lit base color or texture
)

// Modes lists every valid mode.
var Modes = []Mode{ModeMask, ModeNormal, ModePosition, ModeUV, ModeColor, ModeTexture, ModeShaded}

// ParseMode validates s.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("bake: unknown mode %q", s)
}

// attr returns the vertex attribute the mode interpolates.
func (m Mode) attr() (mesh.Attr, bool) {
	switch m {
	case ModeNormal, ModeShaded:
		return mesh.AttrNormal, true
	case ModePosition:
		return mesh.AttrPosition, true
	case ModeUV, ModeTexture:
		return mesh.AttrUV, true
	case ModeColor:
		return mesh.AttrColor, true
	default:
		return 0, false
	}
}

// Options configures Render.
type Options struct {
	Size        int
	Supersample int
	Mode        Mode
	Camera      mesh.Camera
	Device      raster.Device
	// Texture is required by ModeTexture and optional for ModeShaded.
	Texture *image.NRGBA
	// Rasterizer defaults to the process-wide capability.
	Rasterizer *raster.Rasterizer
	Light      *LightConfig
}

// Stats describes one render.
type Stats struct {
	Faces   int
	Covered int
	// KernelAvailable reports a loaded kernel; Fallback reports that this
	// render got the empty fallback images, including when a loaded
	// kernel failed.
	KernelAvailable bool
	Fallback        bool
}

// Render projects m through the camera, rasterizes it and writes the
// interpolated attribute for opts.Mode into a square image of
// Size*Supersample pixels. Uncovered pixels are transparent.
func Render(m *mesh.Mesh, opts Options) (*image.NRGBA, Stats, error) {
	if opts.Size <= 0 {
		return nil, Stats{}, fmt.Errorf("bake: invalid size %d", opts.Size)
	}
	if opts.Supersample <= 0 {
		opts.Supersample = 1
	}
	if opts.Mode == "" {
		opts.Mode = ModeNormal
	}
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, Stats{}, err
	}
	if opts.Mode == ModeTexture && opts.Texture == nil {
		return nil, Stats{}, fmt.Errorf("bake: mode %s needs a texture", opts.Mode)
	}
	if opts.Device == "" {
		opts.Device = raster.CPU
	}
	if opts.Camera == (mesh.Camera{}) {
		opts.Camera = mesh.DefaultCamera()
	}
	r := opts.Rasterizer
	if r == nil {
		r = raster.New(raster.Default())
	}
	lc := opts.Light
	if lc == nil {
		d := DefaultLightConfig()
		lc = &d
	}

	renderSize := opts.Size * opts.Supersample
	res := raster.Resolution{Height: renderSize, Width: renderSize}

	pos := m.Project(opts.Camera, 1, opts.Device)
	tri := m.Triangles(opts.Device)
	out := r.Run(pos, tri, res)
	faces, bary := out.Faces, out.Bary

	stats := Stats{
		Faces:           tri.Faces,
		Covered:         faces.Covered(),
		KernelAvailable: r.Capability().Available(),
		Fallback:        out.Fallback,
	}

	var values, uvs raster.AttrImage
	if a, ok := opts.Mode.attr(); ok {
		values = raster.Interpolate(m.Attribute(a), faces, bary, tri)
	}
	if opts.Mode == ModeShaded && opts.Texture != nil {
		uvs = raster.Interpolate(m.Attribute(mesh.AttrUV), faces, bary, tri)
	}

	img := image.NewNRGBA(image.Rect(0, 0, renderSize, renderSize))
	for y := 0; y < renderSize; y++ {
		// Clip-space y points up; image rows go down.
		row := renderSize - 1 - y
		for x := 0; x < renderSize; x++ {
			if _, ok := faces.Face(x, y); !ok {
				continue
			}
			var v, uv []float32
			if values.Data != nil {
				v = values.At(x, y)
			}
			if uvs.Data != nil {
				uv = uvs.At(x, y)
			}
			i := img.PixOffset(x, row)
			writePixel(img.Pix[i:i+4:i+4], opts.Mode, v, uv, opts.Texture, lc)
		}
	}

	return img, stats, nil
}

// Default base color for untextured shading.
const baseR, baseG, baseB = 160, 160, 170

// writePixel fills one RGBA pixel. uv is only set for textured shading.
func writePixel(px []uint8, mode Mode, v, uv []float32, tex *image.NRGBA, lc *LightConfig) {
	px[3] = 255
	switch mode {
	case ModeMask:
		px[0], px[1], px[2] = 255, 255, 255
	case ModeNormal, ModePosition:
		px[0] = unitToByte(v[0])
		px[1] = unitToByte(v[1])
		px[2] = unitToByte(v[2])
	case ModeUV:
		px[0] = clamp255(float64(v[0]) * 255)
		px[1] = clamp255(float64(v[1]) * 255)
		px[2] = 0
	case ModeColor:
		px[0] = clamp255(float64(v[0]) * 255)
		px[1] = clamp255(float64(v[1]) * 255)
		px[2] = clamp255(float64(v[2]) * 255)
		px[3] = clamp255(float64(v[3]) * 255)
	case ModeTexture:
		px[0], px[1], px[2], px[3] = texture.SampleBilinear(tex, float64(v[0]), float64(v[1]))
	case ModeShaded:
		n := fauxgl.V(float64(v[0]), float64(v[1]), float64(v[2]))
		if n.Length() > 1e-9 {
			n = n.Normalize()
		}
		r, g, b := uint8(baseR), uint8(baseG), uint8(baseB)
		if uv != nil {
			r, g, b, px[3] = texture.SampleBilinear(tex, float64(uv[0]), float64(uv[1]))
		}
		px[0], px[1], px[2] = lc.Shade(r, g, b, lc.ComputeShade(n))
	}
}

// unitToByte maps [-1, 1] to [0, 255].
func unitToByte(f float32) uint8 {
	return clamp255(math.Round((float64(f)*0.5 + 0.5) * 255))
}
