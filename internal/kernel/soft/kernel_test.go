package soft

import (
	"math"
	"slices"
	"testing"

	"github.com/chewxy/math32"

	"custom-rasterizer/internal/config"
	"custom-rasterizer/internal/raster"
)

// bigTriangle covers the whole viewport at clip depth z.
func bigTriangle(z float32) []float32 {
	return []float32{
		-3, -3, z, 1,
		9, -3, z, 1,
		-3, 9, z, 1,
	}
}

func request(pos []float32, tri []int32, w, h int) raster.KernelRequest {
	return raster.KernelRequest{
		Positions: raster.NewPositions(pos, 4, raster.CPU),
		Triangles: raster.NewTriangles(tri, raster.CPU),
		Width:     w,
		Height:    h,
		Epsilon:   raster.Epsilon,
	}
}

func TestRegistered(t *testing.T) {
	if !slices.Contains(raster.Kernels(), Name) {
		t.Fatalf("Kernels() = %v, missing %q", raster.Kernels(), Name)
	}
	c := raster.Probe(config.Kernel{Name: Name})
	if !c.Available() || c.Kernel.Name() != Name {
		t.Fatalf("Probe = %+v", c)
	}
}

func TestFullCoverage(t *testing.T) {
	k := &Kernel{}
	faces, bary, err := k.RasterizeImage(request(bigTriangle(0), []int32{0, 1, 2}, 6, 4))
	if err != nil {
		t.Fatalf("RasterizeImage: %v", err)
	}
	if faces.Width != 6 || faces.Height != 4 {
		t.Fatalf("face image %dx%d, want 6x4", faces.Width, faces.Height)
	}
	for i, id := range faces.Data {
		if id != 1 {
			t.Fatalf("face[%d] = %d, want 1", i, id)
		}
		b := bary.Data[i*3 : i*3+3]
		sum := b[0] + b[1] + b[2]
		if math32.Abs(sum-1) > 1e-5 {
			t.Fatalf("bary[%d] = %v sums to %v", i, b, sum)
		}
		for _, w := range b {
			if w < 0 || w > 1 {
				t.Fatalf("bary[%d] = %v out of [0,1]", i, b)
			}
		}
	}
}

func TestNearestWins(t *testing.T) {
	pos := append(bigTriangle(0.5), bigTriangle(-0.5)...)
	tri := []int32{0, 1, 2, 3, 4, 5}

	// Either submission order must give the nearer face.
	for _, order := range [][]int32{tri, {3, 4, 5, 0, 1, 2}} {
		faces, _, err := (&Kernel{}).RasterizeImage(request(pos, order, 4, 4))
		if err != nil {
			t.Fatal(err)
		}
		wantID := int32(2)
		if order[0] == 3 {
			wantID = 1
		}
		for i, id := range faces.Data {
			if id != wantID {
				t.Fatalf("order %v: face[%d] = %d, want %d", order, i, id, wantID)
			}
		}
	}
}

func TestDepthPrior(t *testing.T) {
	pos := append(bigTriangle(0.5), bigTriangle(-0.5)...)
	req := request(pos, []int32{0, 1, 2, 3, 4, 5}, 3, 3)
	req.ClampDepth = make([]float32, 9)
	req.DepthPrior = 1

	faces, _, err := (&Kernel{}).RasterizeImage(req)
	if err != nil {
		t.Fatal(err)
	}
	// The near face sits in front of the prior and is discarded.
	for i, id := range faces.Data {
		if id != 1 {
			t.Fatalf("face[%d] = %d, want far face 1", i, id)
		}
	}

	// Without the flag the clamp depth is ignored.
	req.DepthPrior = 0
	faces, _, err = (&Kernel{}).RasterizeImage(req)
	if err != nil {
		t.Fatal(err)
	}
	if faces.Data[0] != 2 {
		t.Errorf("face[0] = %d, want near face 2 without prior", faces.Data[0])
	}
}

func TestDepthClipping(t *testing.T) {
	// Tiny w with a large z lands far past the far plane (depth ~1e4).
	const tiny = 1e-4
	farAway := []float32{
		-3 * tiny, -3 * tiny, 2, tiny,
		9 * tiny, -3 * tiny, 2, tiny,
		-3 * tiny, 9 * tiny, 2, tiny,
	}
	tests := []struct {
		name    string
		clipped []float32
	}{
		{"beyond far plane", bigTriangle(1.5)},
		{"before near plane", bigTriangle(-1.5)},
		{"depth overflow", farAway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := append(slices.Clone(tt.clipped), bigTriangle(0.5)...)
			faces, _, err := (&Kernel{}).RasterizeImage(request(pos, []int32{0, 1, 2, 3, 4, 5}, 4, 4))
			if err != nil {
				t.Fatal(err)
			}
			for i, id := range faces.Data {
				if id != 2 {
					t.Fatalf("face[%d] = %d, want in-range face 2", i, id)
				}
			}
		})
	}
}

func TestBehindEyeRejected(t *testing.T) {
	behind := []float32{
		3, 3, 0, -1,
		-9, 3, 0, -1,
		3, -9, 0, -1,
	}
	pos := append(behind, bigTriangle(0.5)...)
	faces, _, err := (&Kernel{}).RasterizeImage(request(pos, []int32{0, 1, 2, 3, 4, 5}, 4, 4))
	if err != nil {
		t.Fatal(err)
	}
	for i, id := range faces.Data {
		if id != 2 {
			t.Fatalf("face[%d] = %d, want visible face 2", i, id)
		}
	}

	zeroW := []float32{0, 0, 0, 0, 1, 0, 0, 1, 0, 1, 0, 1}
	faces, _, err = (&Kernel{}).RasterizeImage(request(zeroW, []int32{0, 1, 2}, 4, 4))
	if err != nil {
		t.Fatal(err)
	}
	if faces.Covered() != 0 {
		t.Errorf("triangle through the eye covered %d pixels", faces.Covered())
	}
}

func TestTokenOrdering(t *testing.T) {
	if token(0, 7) >= token(0.5, 1) || token(0.5, 1) >= token(1, 1) {
		t.Error("tokens do not order by depth")
	}
	if token(0.5, 1) >= token(0.5, 2) {
		t.Error("equal depth does not order by face id")
	}
	if token(1, math.MaxInt32) >= emptyToken {
		t.Error("farthest token collides with the empty marker")
	}
}

func TestPartialCoverage(t *testing.T) {
	// Lower-left half of the viewport.
	pos := []float32{
		-1, -1, 0, 1,
		1, -1, 0, 1,
		-1, 1, 0, 1,
	}
	faces, bary, err := (&Kernel{}).RasterizeImage(request(pos, []int32{0, 1, 2}, 8, 8))
	if err != nil {
		t.Fatal(err)
	}
	covered := faces.Covered()
	if covered == 0 || covered == 64 {
		t.Fatalf("covered %d of 64 pixels, want a partial triangle", covered)
	}
	for i, id := range faces.Data {
		if id == 0 {
			b := bary.Data[i*3 : i*3+3]
			if b[0] != 0 || b[1] != 0 || b[2] != 0 {
				t.Fatalf("empty pixel %d has weights %v", i, b)
			}
		}
	}
}

func TestPerspectiveCorrection(t *testing.T) {
	pos := []float32{
		-3, -3, 0, 1,
		10, -6, 0, 2,
		-6, 10, 0, 2,
	}
	_, bary, err := (&Kernel{}).RasterizeImage(request(pos, []int32{0, 1, 2}, 5, 5))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 25; i++ {
		b := bary.Data[i*3 : i*3+3]
		if sum := b[0] + b[1] + b[2]; math32.Abs(sum-1) > 1e-5 {
			t.Fatalf("pixel %d weights %v sum to %v", i, b, sum)
		}
	}
}

func TestThreeDimensionalPositions(t *testing.T) {
	pos := []float32{
		-3, -3, 0,
		5, -3, 0,
		-3, 5, 0,
	}
	req := request(nil, []int32{0, 1, 2}, 2, 2)
	req.Positions = raster.NewPositions(pos, 3, raster.CPU)

	faces, _, err := (&Kernel{}).RasterizeImage(req)
	if err != nil {
		t.Fatal(err)
	}
	if faces.Covered() != 4 {
		t.Errorf("covered %d, want 4", faces.Covered())
	}
}

func TestRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		req  raster.KernelRequest
	}{
		{"vertex out of range", request(bigTriangle(0), []int32{0, 1, 3}, 2, 2)},
		{"negative vertex", request(bigTriangle(0), []int32{0, -1, 2}, 2, 2)},
		{"bad dims", func() raster.KernelRequest {
			r := request(bigTriangle(0), []int32{0, 1, 2}, 2, 2)
			r.Positions.Dims = 2
			return r
		}()},
		{"zero size", request(bigTriangle(0), []int32{0, 1, 2}, 0, 2)},
		{"short clamp depth", func() raster.KernelRequest {
			r := request(bigTriangle(0), []int32{0, 1, 2}, 2, 2)
			r.DepthPrior = 1
			r.ClampDepth = []float32{0}
			return r
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := (&Kernel{}).RasterizeImage(tt.req); err == nil {
				t.Error("RasterizeImage accepted bad input")
			}
		})
	}
}

func TestRasterizeInterpolate(t *testing.T) {
	c := raster.Probe(config.Kernel{Name: Name})
	r := raster.New(c)

	pos := raster.NewPositions(bigTriangle(0), 4, raster.CPU)
	tri := raster.NewTriangles([]int32{0, 1, 2}, raster.CPU)
	col := raster.NewAttributes([]float32{
		0.25, 0.5,
		0.25, 0.5,
		0.25, 0.5,
	}, 2)

	faces, bary := r.Rasterize(pos, tri, raster.Resolution{Height: 4, Width: 4})
	out := raster.Interpolate(col, faces, bary, tri)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			v := out.At(x, y)
			if math32.Abs(v[0]-0.25) > 1e-5 || math32.Abs(v[1]-0.5) > 1e-5 {
				t.Fatalf("pixel (%d,%d) = %v, want [0.25 0.5]", x, y, v)
			}
		}
	}
}

func BenchmarkRasterizeImage(b *testing.B) {
	k := &Kernel{}
	req := request(bigTriangle(0), []int32{0, 1, 2}, 512, 512)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := k.RasterizeImage(req); err != nil {
			b.Fatal(err)
		}
	}
}
