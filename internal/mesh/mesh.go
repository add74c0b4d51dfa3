package mesh

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/fogleman/fauxgl"

	"custom-rasterizer/internal/raster"
)

// Attr selects a per-vertex attribute buffer.
type Attr int

const (
	AttrPosition Attr = iota // object-space xyz
	AttrNormal               // unit normal xyz
	AttrUV                   // texture uv
	AttrColor                // linear rgba
)

// Channels returns the channel count of the attribute.
func (a Attr) Channels() int {
	switch a {
	case AttrUV:
		return 2
	case AttrColor:
		return 4
	default:
		return 3
	}
}

func (a Attr) String() string {
	switch a {
	case AttrPosition:
		return "position"
	case AttrNormal:
		return "normal"
	case AttrUV:
		return "uv"
	case AttrColor:
		return "color"
	default:
		return fmt.Sprintf("Attr(%d)", int(a))
	}
}

// Mesh is an indexed triangle mesh normalised into the [-1, 1] cube.
// Vertices are not shared between faces, so per-face normals and
// texture seams survive.
type Mesh struct {
	Name      string
	Positions []float32 // 3 per vertex
	Normals   []float32 // 3 per vertex
	UVs       []float32 // 2 per vertex
	Colors    []float32 // 4 per vertex
	Indices   []int32   // 3 per face
}

// Load reads an OBJ, STL, PLY or 3DS file.
func Load(path string) (*Mesh, error) {
	fm, err := fauxgl.LoadMesh(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: load %s: %w", path, err)
	}
	if len(fm.Triangles) == 0 {
		return nil, fmt.Errorf("mesh: %s has no triangles", path)
	}
	m := FromFauxgl(fm)
	m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return m, nil
}

// FromFauxgl flattens a fauxgl mesh and fits it into the bi-unit cube.
func FromFauxgl(fm *fauxgl.Mesh) *Mesh {
	nt := len(fm.Triangles)
	m := &Mesh{
		Positions: make([]float32, 0, nt*9),
		Normals:   make([]float32, 0, nt*9),
		UVs:       make([]float32, 0, nt*6),
		Colors:    make([]float32, 0, nt*12),
		Indices:   make([]int32, 0, nt*3),
	}

	box := fm.BoundingBox()
	center := box.Center()
	size := box.Size()
	span := math.Max(size.X, math.Max(size.Y, size.Z))
	if span < 1e-9 {
		span = 1e-9
	}
	scale := 2 / span

	for _, t := range fm.Triangles {
		faceNormal := t.V2.Position.Sub(t.V1.Position).Cross(t.V3.Position.Sub(t.V1.Position)).Normalize()
		for _, v := range [3]fauxgl.Vertex{t.V1, t.V2, t.V3} {
			p := v.Position.Sub(center).MulScalar(scale)
			n := v.Normal
			if n.Length() < 1e-9 {
				n = faceNormal
			}
			c := v.Color
			if c == (fauxgl.Color{}) {
				c = fauxgl.Color{R: 1, G: 1, B: 1, A: 1}
			}

			m.Indices = append(m.Indices, int32(len(m.Positions)/3))
			m.Positions = append(m.Positions, float32(p.X), float32(p.Y), float32(p.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			m.UVs = append(m.UVs, float32(v.Texture.X), float32(v.Texture.Y))
			m.Colors = append(m.Colors, float32(c.R), float32(c.G), float32(c.B), float32(c.A))
		}
	}
	return m
}

// NumVerts returns the vertex count.
func (m *Mesh) NumVerts() int { return len(m.Positions) / 3 }

// NumFaces returns the triangle count.
func (m *Mesh) NumFaces() int { return len(m.Indices) / 3 }

// Triangles returns the index buffer on dev.
func (m *Mesh) Triangles(dev raster.Device) raster.Triangles {
	return raster.NewTriangles(m.Indices, dev)
}

// Attribute returns the per-vertex buffer for a.
func (m *Mesh) Attribute(a Attr) raster.Attributes {
	var data []float32
	switch a {
	case AttrNormal:
		data = m.Normals
	case AttrUV:
		data = m.UVs
	case AttrColor:
		data = m.Colors
	default:
		data = m.Positions
	}
	return raster.NewAttributes(data, a.Channels())
}
