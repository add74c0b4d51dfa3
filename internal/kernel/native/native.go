// Package native loads the compiled rasterization kernel from a shared
// library at probe time and registers it as "native".
//
// The library must export:
//
//	int32_t rasterize_image(const float* V, int32_t num_vertices, int32_t dims,
//	                        const int32_t* F, int32_t num_faces,
//	                        const float* D, int32_t num_depth,
//	                        int32_t width, int32_t height,
//	                        float occlusion_truncation, int32_t use_depth_prior,
//	                        int32_t* findices, float* barycentric);
//
// findices and barycentric are allocated by the caller (height*width and
// height*width*3 elements) and zero-initialised. A non-zero return value
// is reported as *raster.KernelError.
package native

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"

	"custom-rasterizer/internal/config"
	"custom-rasterizer/internal/raster"
)

// Name is the registered kernel name.
const Name = "native"

// Symbol is the exported entry point looked up in the library.
const Symbol = "rasterize_image"

func init() {
	raster.RegisterKernel(Name, Open)
}

// rasterizeFunc mirrors the C entry point.
type rasterizeFunc func(
	v *float32, numVertices, dims int32,
	f *int32, numFaces int32,
	d *float32, numDepth int32,
	width, height int32,
	occlusionTruncation float32, useDepthPrior int32,
	findices *int32, barycentric *float32,
) int32

// Kernel is an opened native library.
type Kernel struct {
	path      string
	handle    uintptr
	rasterize rasterizeFunc
	log       *slog.Logger
}

// DefaultLibrary returns the file name searched on the system loader
// path when no library is configured.
func DefaultLibrary() string {
	switch runtime.GOOS {
	case "darwin":
		return "libcustom_rasterizer_kernel.dylib"
	case "windows":
		return "custom_rasterizer_kernel.dll"
	default:
		return "libcustom_rasterizer_kernel.so"
	}
}

// Open loads the library named by cfg.Library, or DefaultLibrary from the
// loader path. A missing file yields an error wrapping
// raster.ErrKernelNotFound.
func Open(cfg config.Kernel) (raster.Kernel, error) {
	path := cfg.Library
	explicit := path != ""
	if explicit {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("native: %w: %s", raster.ErrKernelNotFound, path)
			}
			return nil, fmt.Errorf("native: stat %s: %w", path, err)
		}
	} else {
		path = DefaultLibrary()
	}

	handle, fn, err := openLibrary(path)
	if err != nil {
		if !explicit {
			// The loader cannot tell "absent" from "broken" for a bare
			// name; treat it as absent.
			return nil, fmt.Errorf("native: %w: %s: %v", raster.ErrKernelNotFound, path, err)
		}
		return nil, fmt.Errorf("native: load %s: %w", path, err)
	}

	return &Kernel{
		path:      path,
		handle:    handle,
		rasterize: fn,
		log:       raster.Logger(),
	}, nil
}

func (k *Kernel) Name() string { return Name }

// Path returns the library the kernel was loaded from.
func (k *Kernel) Path() string { return k.path }

func (k *Kernel) SetLogger(l *slog.Logger) { k.log = l }

// Close unloads the library. The kernel must not be used afterwards.
func (k *Kernel) Close() error {
	if k.handle == 0 {
		return nil
	}
	err := closeLibrary(k.handle)
	k.handle = 0
	k.rasterize = nil
	return err
}

// RasterizeImage implements raster.Kernel.
func (k *Kernel) RasterizeImage(req raster.KernelRequest) (raster.FaceImage, raster.BaryImage, error) {
	if k.rasterize == nil {
		return raster.FaceImage{}, raster.BaryImage{}, errors.New("native: kernel is closed")
	}

	res := raster.Resolution{Height: req.Height, Width: req.Width}
	faces := raster.NewFaceImage(res, req.Positions.Device)
	bary := raster.NewBaryImage(res, req.Positions.Device)
	if res.Pixels() == 0 {
		return faces, bary, nil
	}

	pos, tri := req.Positions, req.Triangles
	code := k.rasterize(
		first(pos.Data), int32(pos.Verts), int32(pos.Dims),
		first(tri.Data), int32(tri.Faces),
		first(req.ClampDepth), int32(len(req.ClampDepth)),
		int32(req.Width), int32(req.Height),
		req.Epsilon, req.DepthPrior,
		&faces.Data[0], &bary.Data[0],
	)
	runtime.KeepAlive(pos.Data)
	runtime.KeepAlive(tri.Data)
	runtime.KeepAlive(req.ClampDepth)

	if code != 0 {
		return raster.FaceImage{}, raster.BaryImage{}, &raster.KernelError{Kernel: Name, Code: code}
	}
	if k.log != nil {
		k.log.Debug("native rasterize", "library", k.path, "faces", tri.Faces, "width", req.Width, "height", req.Height)
	}
	return faces, bary, nil
}

// first returns a pointer to s[0], or nil for an empty slice.
func first[T any](s []T) *T {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}
