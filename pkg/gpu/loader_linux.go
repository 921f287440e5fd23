//go:build linux

package gpu

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// loadEGLLibrary locates libEGL from the driver or mesa installation.
func loadEGLLibrary() (uintptr, error) {
	names := []string{
		"libEGL.so.1",
		"libEGL.so",
	}
	for _, name := range names {
		lib, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return lib, nil
		}
	}
	return 0, fmt.Errorf("libEGL not found (tried %v)", names)
}
