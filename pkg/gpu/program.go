package gpu

import (
	"fmt"
)

// Program is one compiled compute kernel plus the device buffers it has
// allocated so far. Buffers are keyed by binding index and reused across
// dispatches of the same program; their contents are rewritten every
// dispatch.
type Program struct {
	ctx    *Context
	path   string
	source string
	handle uint32
	ssbos  map[uint32]uint32
}

// NewProgram loads path, expands includes, injects defines after the
// #version line, and compiles and links the result as a compute shader.
// Compile and link failures carry the driver info log and the full expanded
// source with line numbers.
func (c *Context) NewProgram(path string, defines []string) (*Program, error) {
	source, err := LoadSource(path)
	if err != nil {
		return nil, err
	}
	source = InjectDefines(source, defines)

	shader := glCreateShader(GL_COMPUTE_SHADER)
	src := append([]byte(source), 0)
	srcPtr := &src[0]
	length := int32(len(source))
	glShaderSource(shader, 1, &srcPtr, &length)
	glCompileShader(shader)

	var status int32
	glGetShaderiv(shader, GL_COMPILE_STATUS, &status)
	if status == GL_FALSE {
		log := shaderInfoLog(shader)
		glDeleteShader(shader)
		return nil, fmt.Errorf("%w: %s\n%s\n%s", ErrCompile, path, log, NumberSource(source))
	}

	program := glCreateProgram()
	glAttachShader(program, shader)
	glLinkProgram(program)
	glDeleteShader(shader)

	glGetProgramiv(program, GL_LINK_STATUS, &status)
	if status == GL_FALSE {
		log := programInfoLog(program)
		glDeleteProgram(program)
		return nil, fmt.Errorf("%w: %s\n%s", ErrLink, path, log)
	}

	return &Program{
		ctx:    c,
		path:   path,
		source: source,
		handle: program,
		ssbos:  make(map[uint32]uint32),
	}, nil
}

// Source returns the fully expanded shader source as compiled.
func (p *Program) Source() string { return p.source }

// GroupCount returns the number of workgroups needed to cover n invocations
// at the given group size, rounding up.
func GroupCount(n, groupSize int) int {
	return (n + groupSize - 1) / groupSize
}

// Dispatch uploads the input buffers, sets the uniforms, runs the kernel
// over ceil(invocations/groupSize) workgroups, blocks until the device
// finishes, and reads back every Out/InOut buffer. The returned map is keyed
// by binding index.
//
// All descriptor validation happens before any device call; a validation
// error leaves device state untouched.
func (p *Program) Dispatch(buffers []BufferSpec, uniforms []UniformSpec, invocations, groupSize int) (map[uint32][]byte, error) {
	if invocations <= 0 || groupSize <= 0 {
		return nil, fmt.Errorf("%w: invocations %d, group size %d", ErrDispatch, invocations, groupSize)
	}
	if err := validateDescriptors(buffers, uniforms); err != nil {
		return nil, err
	}

	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	glUseProgram(p.handle)

	for _, b := range buffers {
		ssbo := p.ssbo(b.Binding)
		glBindBuffer(GL_SHADER_STORAGE_BUFFER, ssbo)
		usage := uint32(GL_DYNAMIC_READ)
		var data *byte
		if b.Mode != Out {
			usage = GL_DYNAMIC_DRAW
			data = &b.Initial[0]
		}
		glBufferData(GL_SHADER_STORAGE_BUFFER, uintptr(b.ByteSize()), data, usage)
		glBindBufferBase(GL_SHADER_STORAGE_BUFFER, b.Binding, ssbo)
	}

	for _, u := range uniforms {
		loc := glGetUniformLocation(p.handle, u.Name)
		if loc == -1 {
			// the compiler eliminates unreferenced uniforms
			continue
		}
		uniformSetters[u.Type].apply(loc, u.Value)
	}

	groups := GroupCount(invocations, groupSize)
	glDispatchCompute(uint32(groups), 1, 1)
	glMemoryBarrier(GL_ALL_BARRIER_BITS)
	glFinish()

	if code := glGetError(); code != GL_NO_ERROR {
		return nil, fmt.Errorf("%w: GL error 0x%04x after dispatch of %s", ErrDispatch, code, p.path)
	}

	out := make(map[uint32][]byte, len(buffers))
	for _, b := range buffers {
		if b.Mode == In {
			continue
		}
		result := make([]byte, b.ByteSize())
		glBindBuffer(GL_SHADER_STORAGE_BUFFER, p.ssbos[b.Binding])
		glGetBufferSubData(GL_SHADER_STORAGE_BUFFER, 0, uintptr(len(result)), &result[0])
		out[b.Binding] = result
	}
	return out, nil
}

// ssbo returns the device buffer for a binding, creating it on first use.
func (p *Program) ssbo(binding uint32) uint32 {
	if id, ok := p.ssbos[binding]; ok {
		return id
	}
	var id uint32
	glGenBuffers(1, &id)
	p.ssbos[binding] = id
	return id
}

// Release frees the program object and every device buffer it allocated.
func (p *Program) Release() {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	for _, id := range p.ssbos {
		id := id
		glDeleteBuffers(1, &id)
	}
	p.ssbos = make(map[uint32]uint32)
	if p.handle != 0 {
		glDeleteProgram(p.handle)
		p.handle = 0
	}
}

func shaderInfoLog(shader uint32) string {
	var length int32
	glGetShaderiv(shader, GL_INFO_LOG_LENGTH, &length)
	if length <= 0 {
		return ""
	}
	buf := make([]byte, length)
	glGetShaderInfoLog(shader, length, &length, &buf[0])
	return string(buf[:length])
}

func programInfoLog(program uint32) string {
	var length int32
	glGetProgramiv(program, GL_INFO_LOG_LENGTH, &length)
	if length <= 0 {
		return ""
	}
	buf := make([]byte, length)
	glGetProgramInfoLog(program, length, &length, &buf[0])
	return string(buf[:length])
}
