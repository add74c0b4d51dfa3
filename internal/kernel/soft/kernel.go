// Package soft is a pure-Go rasterization kernel with the same contract as
// the native one. It registers itself as "soft":
//
//	import _ "custom-rasterizer/internal/kernel/soft"
//
// Positions are clip-space (x, y, z, w); the nearest fragment wins and
// barycentric weights are perspective-corrected.
package soft

import (
	"fmt"
	"log/slog"

	"custom-rasterizer/internal/config"
	"custom-rasterizer/internal/raster"
)

// Name is the registered kernel name.
const Name = "soft"

func init() {
	raster.RegisterKernel(Name, Open)
}

// Kernel rasterizes on the calling goroutine.
type Kernel struct {
	log *slog.Logger
}

// Open returns a ready kernel. It never fails.
func Open(config.Kernel) (raster.Kernel, error) {
	return &Kernel{log: raster.Logger()}, nil
}

func (k *Kernel) Name() string { return Name }

func (k *Kernel) SetLogger(l *slog.Logger) { k.log = l }

func (k *Kernel) Close() error { return nil }

func (k *Kernel) logger() *slog.Logger {
	if k.log == nil {
		return raster.Logger()
	}
	return k.log
}

// RasterizeImage implements raster.Kernel.
func (k *Kernel) RasterizeImage(req raster.KernelRequest) (raster.FaceImage, raster.BaryImage, error) {
	pos, tri := req.Positions, req.Triangles
	if pos.Dims != 3 && pos.Dims != 4 {
		return raster.FaceImage{}, raster.BaryImage{}, fmt.Errorf("soft: positions have %d dims, want 3 or 4", pos.Dims)
	}
	if req.Width <= 0 || req.Height <= 0 {
		return raster.FaceImage{}, raster.BaryImage{}, fmt.Errorf("soft: invalid resolution %dx%d", req.Width, req.Height)
	}
	nv := int32(pos.Verts)
	for i, v := range tri.Data {
		if v < 0 || v >= nv {
			return raster.FaceImage{}, raster.BaryImage{}, fmt.Errorf("soft: face %d references vertex %d of %d", i/3, v, nv)
		}
	}

	res := raster.Resolution{Height: req.Height, Width: req.Width}
	var prior []float32
	if req.DepthPrior != 0 {
		if len(req.ClampDepth) != res.Pixels() {
			return raster.FaceImage{}, raster.BaryImage{}, fmt.Errorf("soft: clamp depth has %d values, want %d", len(req.ClampDepth), res.Pixels())
		}
		prior = req.ClampDepth
	}

	verts := project(pos.Data[:pos.Verts*pos.Dims], pos.Dims, req.Width, req.Height)

	// Pass 1: nearest fragment per pixel.
	zbuf := make([]int64, res.Pixels())
	for i := range zbuf {
		zbuf[i] = emptyToken
	}
	setups := make([]setup, tri.Faces)
	valid := make([]bool, tri.Faces)
	for f := 0; f < tri.Faces; f++ {
		i0, i1, i2 := tri.Data[f*3], tri.Data[f*3+1], tri.Data[f*3+2]
		s, ok := newSetup(verts[i0], verts[i1], verts[i2], req.Width, req.Height)
		if !ok {
			continue
		}
		setups[f], valid[f] = s, true
		depthPass(zbuf, &setups[f], int32(f), req.Width, prior, req.Epsilon)
	}

	// Pass 2: face ids and perspective-correct weights for the winners.
	faces := raster.NewFaceImage(res, pos.Device)
	bary := raster.NewBaryImage(res, pos.Device)
	covered := 0
	for pix, t := range zbuf {
		if t == emptyToken {
			continue
		}
		id := tokenFace(t)
		f := id - 1
		if !valid[f] {
			continue
		}
		faces.Data[pix] = id
		resolve(bary.Data[pix*3:pix*3+3], &setups[f], pix%req.Width, pix/req.Width)
		covered++
	}

	k.logger().Debug("soft rasterize", "faces", tri.Faces, "covered", covered, "width", req.Width, "height", req.Height)
	return faces, bary, nil
}
