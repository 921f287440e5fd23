//go:build darwin

package gpu

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// loadEGLLibrary locates an EGL implementation. macOS has no system EGL;
// ANGLE (Homebrew or a bundled copy) provides one.
func loadEGLLibrary() (uintptr, error) {
	names := []string{
		"libEGL.dylib",
		"/opt/homebrew/lib/libEGL.dylib",
		"/usr/local/lib/libEGL.dylib",
	}
	for _, name := range names {
		lib, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return lib, nil
		}
	}
	return 0, fmt.Errorf("libEGL not found (tried %v)", names)
}
