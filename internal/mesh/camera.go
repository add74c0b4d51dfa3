package mesh

import (
	"github.com/fogleman/fauxgl"

	"custom-rasterizer/internal/raster"
)

// Camera is a perspective look-at camera.
type Camera struct {
	Eye    fauxgl.Vector
	Center fauxgl.Vector
	Up     fauxgl.Vector
	FovY   float64 // degrees
	Near   float64
	Far    float64
}

// DefaultCamera frames the bi-unit cube from the front, slightly above.
func DefaultCamera() Camera {
	return Camera{
		Eye:    fauxgl.V(0, 0.8, 3.2),
		Center: fauxgl.V(0, 0, 0),
		Up:     fauxgl.V(0, 1, 0),
		FovY:   40,
		Near:   0.1,
		Far:    10,
	}
}

// Matrix returns the view-projection matrix for the given aspect ratio.
func (c Camera) Matrix(aspect float64) fauxgl.Matrix {
	return fauxgl.LookAt(c.Eye, c.Center, c.Up).Perspective(c.FovY, aspect, c.Near, c.Far)
}

// Project transforms the mesh into homogeneous clip space (dims 4) on dev.
func (m *Mesh) Project(c Camera, aspect float64, dev raster.Device) raster.Positions {
	mat := c.Matrix(aspect)
	n := m.NumVerts()
	out := make([]float32, n*4)
	for i := 0; i < n; i++ {
		p := fauxgl.V(float64(m.Positions[i*3]), float64(m.Positions[i*3+1]), float64(m.Positions[i*3+2]))
		q := mat.MulPositionW(p)
		out[i*4] = float32(q.X)
		out[i*4+1] = float32(q.Y)
		out[i*4+2] = float32(q.Z)
		out[i*4+3] = float32(q.W)
	}
	return raster.NewPositions(out, 4, dev)
}
