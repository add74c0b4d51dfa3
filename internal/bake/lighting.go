package bake

import (
	"math"

	"github.com/fogleman/fauxgl"
)

// LightConfig is the light rig for ModeShaded bakes. Directions are in
// the same space as the mesh normals, which the bake does not transform,
// so the rig stays fixed relative to the object whatever the camera.
type LightConfig struct {
	LightDir  fauxgl.Vector
	RimDir    fauxgl.Vector
	ViewDir   fauxgl.Vector
	HalfMain  fauxgl.Vector // precomputed half-vector for Blinn-Phong
	Ambient   float64
	Hemi      float64
	Direct    float64
	Rim       float64
	SpecInt   float64
	SpecPow   float64
	Exposure  float64
	SRGBGamma float64
	InvGamma  float64
}

// DefaultLightConfig lights a bi-unit mesh seen by mesh.DefaultCamera:
// key from the upper right front, rim from behind, hemisphere fill.
func DefaultLightConfig() LightConfig {
	lightDir := fauxgl.V(0.45, 0.65, 0.35).Normalize()
	rimDir := fauxgl.V(-0.40, 0.33, -0.52).Normalize()
	viewDir := fauxgl.V(0, -0.25, -1).Normalize()

	halfMain := lightDir.Sub(viewDir).Normalize()

	return LightConfig{
		LightDir:  lightDir,
		RimDir:    rimDir,
		ViewDir:   viewDir,
		HalfMain:  halfMain,
		Ambient:   0.35,
		Hemi:      0.40,
		Direct:    1.10,
		Rim:       0.45,
		SpecInt:   0.35,
		SpecPow:   16.0,
		Exposure:  1.0,
		SRGBGamma: 2.2,
		InvGamma:  1.0 / 2.2,
	}
}

// ComputeShade returns the light reaching an interpolated unit normal.
// Both sides of a face are lit.
func (lc *LightConfig) ComputeShade(normal fauxgl.Vector) float64 {
	// Lambertian (abs for double-sided)
	ndlMain := math.Abs(normal.Dot(lc.LightDir))
	ndlRim := math.Abs(normal.Dot(lc.RimDir))

	// Hemisphere fill
	hemi := (1.0-math.Abs(normal.Y))*0.5 + 0.5
	hemiLight := hemi * lc.Hemi

	// Blinn-Phong specular
	ndh := normal.Dot(lc.HalfMain)
	if ndh < 0 {
		ndh = 0
	}
	spec := math.Pow(ndh, lc.SpecPow) * lc.SpecInt

	return lc.Ambient + hemiLight + ndlMain*lc.Direct + ndlRim*lc.Rim + spec
}

// Shade applies shade to a base or texel color in linear space and tone
// maps the result back to 8-bit sRGB.
func (lc *LightConfig) Shade(r, g, b uint8, shade float64) (uint8, uint8, uint8) {
	k := shade * lc.Exposure
	enc := func(c uint8) uint8 {
		t := ACESTonemap(srgbToLinear[c] * k)
		return clamp255(math.Pow(t, lc.InvGamma) * 255)
	}
	return enc(r), enc(g), enc(b)
}

// Precomputed sRGB-to-linear lookup table (256 entries).
var srgbToLinear [256]float64

func init() {
	for i := 0; i < 256; i++ {
		srgbToLinear[i] = math.Pow(float64(i)/255.0, 2.2)
	}
}

// ACESTonemap applies ACES Filmic tone mapping to a linear value.
func ACESTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
