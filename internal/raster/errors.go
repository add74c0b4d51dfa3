package raster

import (
	"errors"
	"fmt"
)

var (
	// ErrKernelNotFound reports that no native kernel could be located.
	// Probe records it as StatusMissing rather than StatusFailed.
	ErrKernelNotFound = errors.New("raster: kernel not found")

	// ErrDeviceMismatch is the panic value when positions and triangles
	// live on different devices.
	ErrDeviceMismatch = errors.New("raster: positions and triangles on different devices")

	// ErrFallback wraps every reason a call was served by the fallback path.
	ErrFallback = errors.New("raster: using fallback rasterization")
)

// KernelError is a non-zero status code returned by a kernel.
type KernelError struct {
	Kernel string
	Code   int32
}

func (e *KernelError) Error() string {
	return fmt.Sprintf("raster: kernel %s returned status %d", e.Kernel, e.Code)
}
