package raster

import (
	"fmt"
)

// Option configures a Rasterize call.
type Option func(*callOptions)

type callOptions struct {
	clampDepth []float32
	depthPrior bool
}

// WithClampDepth passes a per-pixel depth buffer to the kernel. It is
// opaque to this package.
func WithClampDepth(d []float32) Option {
	return func(o *callOptions) { o.clampDepth = d }
}

// WithDepthPrior asks the kernel to use the clamp depth as a visibility prior.
func WithDepthPrior(on bool) Option {
	return func(o *callOptions) { o.depthPrior = on }
}

// Rasterizer serves Rasterize calls from a fixed capability.
type Rasterizer struct {
	cap Capability
}

// New returns a Rasterizer bound to c.
func New(c Capability) *Rasterizer {
	return &Rasterizer{cap: c}
}

// Capability returns the capability the rasterizer was built with.
func (r *Rasterizer) Capability() Capability { return r.cap }

// Rasterize rasterizes tri over batch 0 of pos using the process-wide
// capability. See (*Rasterizer).Rasterize.
func Rasterize(pos Positions, tri Triangles, res Resolution, opts ...Option) (FaceImage, BaryImage) {
	return New(Default()).Rasterize(pos, tri, res, opts...)
}

// Rasterize returns the face-index and barycentric images of tri over
// batch 0 of pos at resolution res.
//
// It panics with ErrDeviceMismatch if pos and tri are on different
// devices. Kernel absence or failure is never reported to the caller:
// the fallback result (all pixels empty) is returned instead. Use Run to
// learn which path served the call.
func (r *Rasterizer) Rasterize(pos Positions, tri Triangles, res Resolution, opts ...Option) (FaceImage, BaryImage) {
	out := r.Run(pos, tri, res, opts...)
	return out.Faces, out.Bary
}

// Result is the outcome of one rasterization.
type Result struct {
	Faces FaceImage
	Bary  BaryImage
	// Fallback is set when the empty fallback images were returned,
	// either because no kernel is loaded or because the kernel failed.
	Fallback bool
}

// Run is Rasterize, additionally reporting whether the fallback served
// the call.
func (r *Rasterizer) Run(pos Positions, tri Triangles, res Resolution, opts ...Option) Result {
	if pos.Device != tri.Device {
		panic(fmt.Errorf("%w: %q vs %q", ErrDeviceMismatch, pos.Device, tri.Device))
	}

	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !r.cap.Available() {
		return fallbackRasterize(pos, res)
	}

	req := KernelRequest{
		Positions:  pos.First(),
		Triangles:  tri,
		ClampDepth: o.clampDepth,
		Width:      res.Width,
		Height:     res.Height,
		Epsilon:    Epsilon,
	}
	if o.depthPrior {
		req.DepthPrior = 1
	}

	out := r.invoke(req)
	if out.fallback {
		Logger().Warn("custom rasterizer failed, falling back", "kernel", r.cap.Kernel.Name(), "err", out.reason)
		return fallbackRasterize(pos, res)
	}
	return Result{Faces: out.faces, Bary: out.bary}
}

// kernelResult is the outcome of one kernel invocation: either the
// kernel's images, or a fallback marker with the reason.
type kernelResult struct {
	faces    FaceImage
	bary     BaryImage
	fallback bool
	reason   error
}

func fallbackResult(err error) kernelResult {
	return kernelResult{fallback: true, reason: fmt.Errorf("%w: %w", ErrFallback, err)}
}

func (r *Rasterizer) invoke(req KernelRequest) (res kernelResult) {
	k := r.cap.Kernel
	defer func() {
		if p := recover(); p != nil {
			res = fallbackResult(fmt.Errorf("kernel %s panicked: %v", k.Name(), p))
		}
	}()

	Logger().Debug("rasterize dispatch",
		"kernel", k.Name(),
		"verts", req.Positions.Verts,
		"faces", req.Triangles.Faces,
		"width", req.Width,
		"height", req.Height)

	faces, bary, err := k.RasterizeImage(req)
	if err != nil {
		return fallbackResult(err)
	}
	if faces.Width != req.Width || faces.Height != req.Height || len(faces.Data) != req.Width*req.Height ||
		bary.Width != req.Width || bary.Height != req.Height || len(bary.Data) != req.Width*req.Height*3 {
		return fallbackResult(fmt.Errorf("kernel %s returned %dx%d images, want %dx%d",
			k.Name(), faces.Width, faces.Height, req.Width, req.Height))
	}
	return kernelResult{faces: faces, bary: bary}
}

// fallbackRasterize keeps the caller's shape contract when no kernel can
// serve the call. Every pixel is empty.
func fallbackRasterize(pos Positions, res Resolution) Result {
	Logger().Info("using fallback rasterization", "height", res.Height, "width", res.Width)
	return Result{
		Faces:    NewFaceImage(res, pos.Device),
		Bary:     NewBaryImage(res, pos.Device),
		Fallback: true,
	}
}
