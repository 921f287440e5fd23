// Package gpu drives compute kernels through an offscreen OpenGL 4.6 core
// context obtained via EGL.
//
// The implementation uses purego for FFI to dynamically load libEGL and
// resolve GL entry points through eglGetProcAddress, enabling GPU dispatch
// without CGO compilation. The library is detected from standard driver
// locations per platform (see loader_*.go).
//
// Host-side execution is single-threaded and synchronous: Dispatch blocks
// until the device completes and every output buffer has been read back.
// Parallelism exists only on the device.
package gpu

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

// EGL constants
const (
	EGL_FALSE = 0
	EGL_TRUE  = 1

	EGL_DEFAULT_DISPLAY = 0
	EGL_NO_CONTEXT      = 0
	EGL_NO_SURFACE      = 0

	EGL_SUCCESS = 0x3000

	EGL_OPENGL_API = 0x30A2

	EGL_SURFACE_TYPE    = 0x3033
	EGL_PBUFFER_BIT     = 0x0001
	EGL_RENDERABLE_TYPE = 0x3040
	EGL_OPENGL_BIT      = 0x0008
	EGL_NONE            = 0x3038

	EGL_WIDTH  = 0x3057
	EGL_HEIGHT = 0x3056

	EGL_CONTEXT_MAJOR_VERSION           = 0x3098
	EGL_CONTEXT_MINOR_VERSION           = 0x30FB
	EGL_CONTEXT_OPENGL_PROFILE_MASK     = 0x30FD
	EGL_CONTEXT_OPENGL_CORE_PROFILE_BIT = 0x0001
)

// EGL function pointers (loaded from libEGL by initEGL)
var (
	eglLib uintptr
	eglMu  sync.Mutex
	eglErr error

	eglGetDisplay           func(displayID uintptr) uintptr
	eglInitialize           func(dpy uintptr, major, minor *int32) uint32
	eglBindAPI              func(api uint32) uint32
	eglChooseConfig         func(dpy uintptr, attribs *int32, configs *uintptr, configSize int32, numConfig *int32) uint32
	eglCreatePbufferSurface func(dpy, config uintptr, attribs *int32) uintptr
	eglCreateContext        func(dpy, config, shareContext uintptr, attribs *int32) uintptr
	eglMakeCurrent          func(dpy, draw, read, ctx uintptr) uint32
	eglDestroySurface       func(dpy, surface uintptr) uint32
	eglDestroyContext       func(dpy, ctx uintptr) uint32
	eglTerminate            func(dpy uintptr) uint32
	eglGetError             func() int32
	eglGetProcAddress       func(name string) uintptr
)

// initEGL loads libEGL and registers its entry points. Safe to call more
// than once; a previous failure is sticky.
func initEGL() error {
	eglMu.Lock()
	defer eglMu.Unlock()

	if eglLib != 0 {
		return nil
	}
	if eglErr != nil {
		return eglErr
	}

	lib, err := loadEGLLibrary()
	if err != nil {
		eglErr = fmt.Errorf("%w: %v", ErrNotAvailable, err)
		return eglErr
	}
	eglLib = lib

	purego.RegisterLibFunc(&eglGetDisplay, lib, "eglGetDisplay")
	purego.RegisterLibFunc(&eglInitialize, lib, "eglInitialize")
	purego.RegisterLibFunc(&eglBindAPI, lib, "eglBindAPI")
	purego.RegisterLibFunc(&eglChooseConfig, lib, "eglChooseConfig")
	purego.RegisterLibFunc(&eglCreatePbufferSurface, lib, "eglCreatePbufferSurface")
	purego.RegisterLibFunc(&eglCreateContext, lib, "eglCreateContext")
	purego.RegisterLibFunc(&eglMakeCurrent, lib, "eglMakeCurrent")
	purego.RegisterLibFunc(&eglDestroySurface, lib, "eglDestroySurface")
	purego.RegisterLibFunc(&eglDestroyContext, lib, "eglDestroyContext")
	purego.RegisterLibFunc(&eglTerminate, lib, "eglTerminate")
	purego.RegisterLibFunc(&eglGetError, lib, "eglGetError")
	purego.RegisterLibFunc(&eglGetProcAddress, lib, "eglGetProcAddress")

	return nil
}

// IsAvailable reports whether an EGL display with OpenGL support can be
// reached on this system.
func IsAvailable() bool {
	if err := initEGL(); err != nil {
		return false
	}
	dpy := eglGetDisplay(EGL_DEFAULT_DISPLAY)
	if dpy == 0 {
		return false
	}
	var major, minor int32
	if eglInitialize(dpy, &major, &minor) == EGL_FALSE {
		return false
	}
	return eglBindAPI(EGL_OPENGL_API) != EGL_FALSE
}
