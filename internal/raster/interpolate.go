package raster

// Interpolate reconstructs a per-pixel attribute image from per-vertex
// attributes of batch 0, using the face ids and barycentric weights
// produced by Rasterize. The result has shape (1, H, W, C).
//
// Empty pixels are resolved against face 0; their weights are zero so
// they come out as the zero vector. Inputs are not validated: mismatched
// shapes panic on index.
func Interpolate(col Attributes, findices FaceImage, bary BaryImage, tri Triangles) AttrImage {
	dst := NewAttrImage(findices.Height, findices.Width, col.Channels)
	InterpolateInto(dst, col, findices, bary, tri)
	return dst
}

// InterpolateInto is Interpolate writing into a caller-owned dst of shape
// (1, findices.Height, findices.Width, col.Channels).
func InterpolateInto(dst AttrImage, col Attributes, findices FaceImage, bary BaryImage, tri Triangles) {
	c := col.Channels
	for p, id := range findices.Data {
		f := int(id) - 1
		if id == 0 {
			f = 0
		}
		out := dst.Data[p*c : p*c+c]
		clear(out)
		w := bary.Data[p*3 : p*3+3]
		for k := 0; k < 3; k++ {
			v := int(tri.Data[f*3+k])
			src := col.Data[v*c : v*c+c]
			wk := w[k]
			for ch := range out {
				out[ch] += wk * src[ch]
			}
		}
	}
}
