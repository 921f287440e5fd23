//go:build windows

package gpu

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// loadEGLLibrary locates libEGL.dll (shipped with GPU drivers or ANGLE).
func loadEGLLibrary() (uintptr, error) {
	names := []string{
		"libEGL.dll",
		"EGL.dll",
	}
	for _, name := range names {
		handle, err := windows.LoadLibrary(name)
		if err == nil {
			return uintptr(handle), nil
		}
	}
	return 0, fmt.Errorf("libEGL.dll not found (tried %v)", names)
}
