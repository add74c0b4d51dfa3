package raster

// Device identifies the compute device a buffer lives on ("cpu", "cuda:0").
// Rasterize only compares tags; it never moves data between devices.
type Device string

// CPU is the host device.
const CPU Device = "cpu"

// Positions holds batched vertex positions as a flat slice,
// shape (Batch, Verts, Dims). Dims is 4 for homogeneous clip-space
// positions or 3 when w is implicitly 1.
type Positions struct {
	Data   []float32
	Batch  int
	Verts  int
	Dims   int
	Device Device
}

// NewPositions wraps a single-batch position slice.
func NewPositions(data []float32, dims int, dev Device) Positions {
	return Positions{
		Data:   data,
		Batch:  1,
		Verts:  len(data) / dims,
		Dims:   dims,
		Device: dev,
	}
}

// First returns batch 0 without copying.
func (p Positions) First() Positions {
	n := p.Verts * p.Dims
	return Positions{
		Data:   p.Data[:n:n],
		Batch:  1,
		Verts:  p.Verts,
		Dims:   p.Dims,
		Device: p.Device,
	}
}

// Triangles holds vertex indices, shape (Faces, 3).
type Triangles struct {
	Data   []int32
	Faces  int
	Device Device
}

// NewTriangles wraps a flat index slice of length 3*faces.
func NewTriangles(data []int32, dev Device) Triangles {
	return Triangles{Data: data, Faces: len(data) / 3, Device: dev}
}

// Resolution fixes the output pixel grid.
type Resolution struct {
	Height int
	Width  int
}

// Pixels returns Height*Width.
func (r Resolution) Pixels() int { return r.Height * r.Width }

// FaceImage stores, per pixel, the 1-based id of the covering triangle.
// Zero marks an empty pixel. Row-major, len = Height*Width.
type FaceImage struct {
	Data   []int32
	Height int
	Width  int
	Device Device
}

// NewFaceImage allocates an all-empty face image.
func NewFaceImage(res Resolution, dev Device) FaceImage {
	return FaceImage{
		Data:   make([]int32, res.Pixels()),
		Height: res.Height,
		Width:  res.Width,
		Device: dev,
	}
}

// Face returns the 0-based triangle index covering (x, y).
// ok is false when the pixel is empty.
func (f FaceImage) Face(x, y int) (face int, ok bool) {
	id := f.Data[y*f.Width+x]
	if id == 0 {
		return 0, false
	}
	return int(id) - 1, true
}

// Covered counts non-empty pixels.
func (f FaceImage) Covered() int {
	n := 0
	for _, id := range f.Data {
		if id != 0 {
			n++
		}
	}
	return n
}

// BaryImage stores per-pixel barycentric weights, shape (Height, Width, 3).
type BaryImage struct {
	Data   []float32
	Height int
	Width  int
	Device Device
}

// NewBaryImage allocates a zeroed barycentric image.
func NewBaryImage(res Resolution, dev Device) BaryImage {
	return BaryImage{
		Data:   make([]float32, res.Pixels()*3),
		Height: res.Height,
		Width:  res.Width,
		Device: dev,
	}
}

// At returns the weights at (x, y).
func (b BaryImage) At(x, y int) [3]float32 {
	i := (y*b.Width + x) * 3
	return [3]float32{b.Data[i], b.Data[i+1], b.Data[i+2]}
}

// Attributes holds per-vertex values, shape (Batch, Verts, Channels).
type Attributes struct {
	Data     []float32
	Batch    int
	Verts    int
	Channels int
}

// NewAttributes wraps a single-batch attribute slice.
func NewAttributes(data []float32, channels int) Attributes {
	return Attributes{
		Data:     data,
		Batch:    1,
		Verts:    len(data) / channels,
		Channels: channels,
	}
}

// AttrImage is an interpolated attribute image, shape (1, Height, Width, Channels).
type AttrImage struct {
	Data     []float32
	Height   int
	Width    int
	Channels int
}

// NewAttrImage allocates a zeroed attribute image.
func NewAttrImage(height, width, channels int) AttrImage {
	return AttrImage{
		Data:     make([]float32, height*width*channels),
		Height:   height,
		Width:    width,
		Channels: channels,
	}
}

// Shape returns (1, Height, Width, Channels).
func (a AttrImage) Shape() [4]int {
	return [4]int{1, a.Height, a.Width, a.Channels}
}

// At returns the channel values at (x, y) without copying.
func (a AttrImage) At(x, y int) []float32 {
	i := (y*a.Width + x) * a.Channels
	return a.Data[i : i+a.Channels : i+a.Channels]
}
