package raster

import (
	"fmt"
	"sort"
	"sync"

	"custom-rasterizer/internal/config"
)

// Epsilon is the depth/edge tolerance passed to every kernel call.
const Epsilon float32 = 1e-6

// KernelRequest carries the arguments of one kernel invocation.
type KernelRequest struct {
	// Positions of batch 0 only.
	Positions  Positions
	Triangles  Triangles
	ClampDepth []float32
	Width      int
	Height     int
	Epsilon    float32
	// DepthPrior is 1 when ClampDepth should steer visibility, else 0.
	DepthPrior int32
}

// Kernel is a rasterization capability: something that turns triangles
// into a face-index image and a barycentric image.
//
// Implementations live in kernel packages and register themselves from
// init, so binaries opt in with a blank import:
//
//	import _ "custom-rasterizer/internal/kernel/native"
type Kernel interface {
	// Name returns the registered kernel name.
	Name() string

	// RasterizeImage rasterizes req. The returned images must be
	// req.Height x req.Width; face ids are 1-based with 0 meaning empty.
	RasterizeImage(req KernelRequest) (FaceImage, BaryImage, error)

	// Close releases kernel resources.
	Close() error
}

// Opener opens a kernel. Returning an error wrapping ErrKernelNotFound
// marks the kernel as missing rather than failed.
type Opener func(cfg config.Kernel) (Kernel, error)

var (
	kernelsMu sync.RWMutex
	kernels   = make(map[string]Opener)
)

// RegisterKernel makes a kernel available under name.
// It panics if open is nil or name is already registered.
func RegisterKernel(name string, open Opener) {
	if open == nil {
		panic("raster: RegisterKernel opener is nil")
	}
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	if _, dup := kernels[name]; dup {
		panic("raster: RegisterKernel called twice for kernel " + name)
	}
	kernels[name] = open
}

// Kernels returns the sorted names of the registered kernels.
func Kernels() []string {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupKernel(name string) (Opener, bool) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	open, ok := kernels[name]
	return open, ok
}

// openKernel calls open, turning a panic into an error.
func openKernel(open Opener, cfg config.Kernel) (k Kernel, err error) {
	defer func() {
		if p := recover(); p != nil {
			k, err = nil, fmt.Errorf("raster: kernel %s panicked while loading: %v", cfg.Name, p)
		}
	}()
	k, err = open(cfg)
	if err == nil && k == nil {
		err = fmt.Errorf("raster: kernel %s opener returned nil", cfg.Name)
	}
	return k, err
}
