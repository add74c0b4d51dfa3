//go:build !(darwin || freebsd || linux)

package native

import (
	"fmt"
	"runtime"

	"custom-rasterizer/internal/raster"
)

func openLibrary(path string) (uintptr, rasterizeFunc, error) {
	return 0, nil, fmt.Errorf("%w: dynamic loading unsupported on %s", raster.ErrKernelNotFound, runtime.GOOS)
}

func closeLibrary(uintptr) error { return nil }
