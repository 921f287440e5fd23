package gpu

import (
	"fmt"
	"sync"
)

// Context owns the GPU execution session: the EGL display, the 1x1 offscreen
// pbuffer surface, and the OpenGL 4.6 core context made current on it. It is
// created once by the caller, passed to every Program factory call, and
// released explicitly at the caller's terminating scope.
//
// Construction is fatal if the required API version/profile cannot be
// obtained or the offscreen surface cannot be created or made current; these
// are unrecoverable preconditions and are never retried.
type Context struct {
	display uintptr
	surface uintptr
	context uintptr
	mu      sync.Mutex
}

// NewContext obtains an EGL display, creates an offscreen pbuffer surface
// and an OpenGL 4.6 core profile context, and makes it current.
func NewContext() (*Context, error) {
	if err := initEGL(); err != nil {
		return nil, err
	}

	dpy := eglGetDisplay(EGL_DEFAULT_DISPLAY)
	if dpy == 0 {
		return nil, fmt.Errorf("%w: no EGL display", ErrContextCreation)
	}

	var major, minor int32
	if eglInitialize(dpy, &major, &minor) == EGL_FALSE {
		return nil, fmt.Errorf("%w: eglInitialize failed (0x%04x)", ErrContextCreation, eglGetError())
	}

	if eglBindAPI(EGL_OPENGL_API) == EGL_FALSE {
		return nil, fmt.Errorf("%w: desktop OpenGL API not supported (0x%04x)", ErrContextCreation, eglGetError())
	}

	configAttribs := []int32{
		EGL_SURFACE_TYPE, EGL_PBUFFER_BIT,
		EGL_RENDERABLE_TYPE, EGL_OPENGL_BIT,
		EGL_NONE,
	}
	var config uintptr
	var numConfigs int32
	if eglChooseConfig(dpy, &configAttribs[0], &config, 1, &numConfigs) == EGL_FALSE || numConfigs == 0 {
		return nil, fmt.Errorf("%w: no EGL config with pbuffer + OpenGL support", ErrContextCreation)
	}

	surfaceAttribs := []int32{EGL_WIDTH, 1, EGL_HEIGHT, 1, EGL_NONE}
	surface := eglCreatePbufferSurface(dpy, config, &surfaceAttribs[0])
	if surface == EGL_NO_SURFACE {
		return nil, fmt.Errorf("%w: failed to create offscreen pbuffer surface (0x%04x)", ErrContextCreation, eglGetError())
	}

	contextAttribs := []int32{
		EGL_CONTEXT_MAJOR_VERSION, 4,
		EGL_CONTEXT_MINOR_VERSION, 6,
		EGL_CONTEXT_OPENGL_PROFILE_MASK, EGL_CONTEXT_OPENGL_CORE_PROFILE_BIT,
		EGL_NONE,
	}
	context := eglCreateContext(dpy, config, EGL_NO_CONTEXT, &contextAttribs[0])
	if context == EGL_NO_CONTEXT {
		eglDestroySurface(dpy, surface)
		return nil, fmt.Errorf("%w: OpenGL 4.6 core context not available (0x%04x)", ErrContextCreation, eglGetError())
	}

	if eglMakeCurrent(dpy, surface, surface, context) == EGL_FALSE {
		eglDestroyContext(dpy, context)
		eglDestroySurface(dpy, surface)
		return nil, fmt.Errorf("%w: failed to make context current (0x%04x)", ErrContextCreation, eglGetError())
	}

	if err := registerGLFunctions(); err != nil {
		eglDestroyContext(dpy, context)
		eglDestroySurface(dpy, surface)
		return nil, err
	}

	return &Context{display: dpy, surface: surface, context: context}, nil
}

// Version returns the GL_VERSION string of the current context.
func (c *Context) Version() string { return goString(glGetString(GL_VERSION)) }

// Renderer returns the GL_RENDERER string of the current context.
func (c *Context) Renderer() string { return goString(glGetString(GL_RENDERER)) }

// Vendor returns the GL_VENDOR string of the current context.
func (c *Context) Vendor() string { return goString(glGetString(GL_VENDOR)) }

// Release tears down the context, surface, and display binding. Safe to
// call more than once.
func (c *Context) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.display == 0 {
		return
	}
	eglMakeCurrent(c.display, EGL_NO_SURFACE, EGL_NO_SURFACE, EGL_NO_CONTEXT)
	if c.context != 0 {
		eglDestroyContext(c.display, c.context)
	}
	if c.surface != 0 {
		eglDestroySurface(c.display, c.surface)
	}
	c.context = 0
	c.surface = 0
	c.display = 0
}
