package postprocess

import "image"

// RemoveSpeckles clears connected groups of covered pixels smaller than
// minRatio of the total coverage. Thin slivers at silhouette edges often
// rasterize into isolated pixels that survive downsampling as noise.
// Pixels are 8-connected; img is not modified.
func RemoveSpeckles(img *image.NRGBA, minRatio float64) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	covered := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 {
			covered++
		}
	}
	if covered == 0 || minRatio <= 0 {
		return img
	}

	comp := components(img)
	if comp.count <= 1 {
		return img
	}
	minSize := int(float64(covered) * minRatio)

	out := image.NewNRGBA(b)
	copy(out.Pix, img.Pix)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := comp.labels[y*w+x]
			if l < 0 || comp.sizes[l] >= minSize {
				continue
			}
			i := out.PixOffset(b.Min.X+x, b.Min.Y+y)
			clear(out.Pix[i : i+4])
		}
	}
	return out
}

// labeling assigns each covered pixel a component id; uncovered pixels
// are -1.
type labeling struct {
	labels []int
	sizes  []int
	count  int
}

var (
	neighborX = [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	neighborY = [8]int{-1, -1, -1, 0, 0, 1, 1, 1}
)

// components labels the 8-connected regions of non-zero alpha with a
// breadth-first flood fill.
func components(img *image.NRGBA) labeling {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	opaque := func(x, y int) bool {
		return img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)+3] > 0
	}

	lb := labeling{labels: make([]int, w*h)}
	for i := range lb.labels {
		lb.labels[i] = -1
	}

	queue := make([]int, 0, 1024)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			start := y*w + x
			if lb.labels[start] >= 0 || !opaque(x, y) {
				continue
			}
			id := lb.count
			lb.count++
			lb.labels[start] = id
			queue = append(queue[:0], start)
			size := 0
			for head := 0; head < len(queue); head++ {
				cur := queue[head]
				size++
				cx, cy := cur%w, cur/w
				for d := range neighborX {
					nx, ny := cx+neighborX[d], cy+neighborY[d]
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					ni := ny*w + nx
					if lb.labels[ni] < 0 && opaque(nx, ny) {
						lb.labels[ni] = id
						queue = append(queue, ni)
					}
				}
			}
			lb.sizes = append(lb.sizes, size)
		}
	}
	return lb
}
