package gpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// OpenGL constants
const (
	GL_FALSE = 0
	GL_TRUE  = 1

	GL_NO_ERROR = 0

	GL_VENDOR   = 0x1F00
	GL_RENDERER = 0x1F01
	GL_VERSION  = 0x1F02

	GL_COMPUTE_SHADER = 0x91B9

	GL_COMPILE_STATUS  = 0x8B81
	GL_LINK_STATUS     = 0x8B82
	GL_INFO_LOG_LENGTH = 0x8B84

	GL_SHADER_STORAGE_BUFFER = 0x90D2

	GL_STATIC_DRAW  = 0x88E4
	GL_DYNAMIC_DRAW = 0x88E8
	GL_DYNAMIC_READ = 0x88E9

	GL_SHADER_STORAGE_BARRIER_BIT = 0x00002000
	GL_ALL_BARRIER_BITS           = 0xFFFFFFFF
)

// OpenGL function pointers, resolved through eglGetProcAddress once a
// context is current.
var (
	glFunctionsRegistered bool
	glFunctionsMu         sync.Mutex

	glGetError   func() uint32
	glGetString  func(name uint32) uintptr
	glGetIntegerv func(pname uint32, params *int32)

	glCreateShader       func(shaderType uint32) uint32
	glShaderSource       func(shader uint32, count int32, sources **byte, lengths *int32)
	glCompileShader      func(shader uint32)
	glGetShaderiv        func(shader uint32, pname uint32, params *int32)
	glGetShaderInfoLog   func(shader uint32, bufSize int32, length *int32, infoLog *byte)
	glDeleteShader       func(shader uint32)
	glCreateProgram      func() uint32
	glAttachShader       func(program, shader uint32)
	glLinkProgram        func(program uint32)
	glGetProgramiv       func(program uint32, pname uint32, params *int32)
	glGetProgramInfoLog  func(program uint32, bufSize int32, length *int32, infoLog *byte)
	glDeleteProgram      func(program uint32)
	glUseProgram         func(program uint32)
	glGetUniformLocation func(program uint32, name string) int32

	glUniform1i         func(location, v int32)
	glUniform1ui        func(location int32, v uint32)
	glUniform1f         func(location int32, v float32)
	glUniform1d         func(location int32, v float64)
	glUniform4fv        func(location, count int32, value *float32)
	glUniform4dv        func(location, count int32, value *float64)
	glUniformMatrix4fv  func(location, count int32, transpose uint32, value *float32)

	glGenBuffers       func(n int32, buffers *uint32)
	glDeleteBuffers    func(n int32, buffers *uint32)
	glBindBuffer       func(target, buffer uint32)
	glBufferData       func(target uint32, size uintptr, data *byte, usage uint32)
	glBindBufferBase   func(target, index, buffer uint32)
	glGetBufferSubData func(target uint32, offset, size uintptr, data *byte)

	glDispatchCompute func(numGroupsX, numGroupsY, numGroupsZ uint32)
	glMemoryBarrier   func(barriers uint32)
	glFinish          func()
)

// registerGLFunctions resolves every GL entry point the harness uses. Must
// run with a context current; resolution failures are context errors since
// they mean the required API version/profile was not obtained.
func registerGLFunctions() error {
	glFunctionsMu.Lock()
	defer glFunctionsMu.Unlock()

	if glFunctionsRegistered {
		return nil
	}

	for _, f := range []struct {
		ptr  any
		name string
	}{
		{&glGetError, "glGetError"},
		{&glGetString, "glGetString"},
		{&glGetIntegerv, "glGetIntegerv"},
		{&glCreateShader, "glCreateShader"},
		{&glShaderSource, "glShaderSource"},
		{&glCompileShader, "glCompileShader"},
		{&glGetShaderiv, "glGetShaderiv"},
		{&glGetShaderInfoLog, "glGetShaderInfoLog"},
		{&glDeleteShader, "glDeleteShader"},
		{&glCreateProgram, "glCreateProgram"},
		{&glAttachShader, "glAttachShader"},
		{&glLinkProgram, "glLinkProgram"},
		{&glGetProgramiv, "glGetProgramiv"},
		{&glGetProgramInfoLog, "glGetProgramInfoLog"},
		{&glDeleteProgram, "glDeleteProgram"},
		{&glUseProgram, "glUseProgram"},
		{&glGetUniformLocation, "glGetUniformLocation"},
		{&glUniform1i, "glUniform1i"},
		{&glUniform1ui, "glUniform1ui"},
		{&glUniform1f, "glUniform1f"},
		{&glUniform1d, "glUniform1d"},
		{&glUniform4fv, "glUniform4fv"},
		{&glUniform4dv, "glUniform4dv"},
		{&glUniformMatrix4fv, "glUniformMatrix4fv"},
		{&glGenBuffers, "glGenBuffers"},
		{&glDeleteBuffers, "glDeleteBuffers"},
		{&glBindBuffer, "glBindBuffer"},
		{&glBufferData, "glBufferData"},
		{&glBindBufferBase, "glBindBufferBase"},
		{&glGetBufferSubData, "glGetBufferSubData"},
		{&glDispatchCompute, "glDispatchCompute"},
		{&glMemoryBarrier, "glMemoryBarrier"},
		{&glFinish, "glFinish"},
	} {
		addr := eglGetProcAddress(f.name)
		if addr == 0 {
			return fmt.Errorf("%w: missing GL entry point %s", ErrContextCreation, f.name)
		}
		purego.RegisterFunc(f.ptr, addr)
	}

	glFunctionsRegistered = true
	return nil
}

// goString copies a NUL-terminated C string returned by the driver.
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	var b []byte
	for i := uintptr(0); ; i++ {
		c := *(*byte)(unsafe.Pointer(p + i))
		if c == 0 {
			break
		}
		b = append(b, c)
	}
	return string(b)
}
