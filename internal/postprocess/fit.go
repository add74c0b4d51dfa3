package postprocess

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Fit crops img to its covered pixels, scales the crop so its longer side
// spans fillRatio of a size×size canvas and centers it. A fully
// transparent img yields an empty canvas.
func Fit(img *image.NRGBA, size int, fillRatio float64) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, size, size))
	box, ok := Coverage(img)
	if !ok || size <= 0 {
		return canvas
	}
	if fillRatio <= 0 || fillRatio > 1 {
		fillRatio = 1
	}

	scale := float64(size) * fillRatio / math.Max(float64(box.Dx()), float64(box.Dy()))
	w := max(1, int(float64(box.Dx())*scale+0.5))
	h := max(1, int(float64(box.Dy())*scale+0.5))

	crop := img.SubImage(box).(*image.NRGBA)
	scaled := resample(crop, image.Rect(0, 0, w, h))

	off := image.Pt((size-w)/2, (size-h)/2)
	draw.Draw(canvas, scaled.Bounds().Add(off), scaled, image.Point{}, draw.Src)
	return canvas
}

// Coverage returns the bounding box of pixels with non-zero alpha.
func Coverage(img *image.NRGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	box := image.Rectangle{}
	found := false
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.Pix[img.PixOffset(x, y)+3] == 0 {
				continue
			}
			px := image.Rect(x, y, x+1, y+1)
			if !found {
				box, found = px, true
				continue
			}
			box = box.Union(px)
		}
	}
	return box, found
}
