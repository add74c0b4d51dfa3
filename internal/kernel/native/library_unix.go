//go:build darwin || freebsd || linux

package native

import (
	"fmt"

	"github.com/ebitengine/purego"
)

func openLibrary(path string) (uintptr, rasterizeFunc, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, nil, err
	}

	sym, err := purego.Dlsym(handle, Symbol)
	if err != nil {
		purego.Dlclose(handle)
		return 0, nil, fmt.Errorf("symbol %s: %w", Symbol, err)
	}

	var fn rasterizeFunc
	purego.RegisterFunc(&fn, sym)
	return handle, fn, nil
}

func closeLibrary(handle uintptr) error {
	return purego.Dlclose(handle)
}
