package gpu

import "errors"

// Errors. None of these are retried; each aborts the operation and carries
// enough context (info logs, expected vs actual sizes, expanded source) to
// reproduce and fix the root cause.
var (
	ErrNotAvailable       = errors.New("gpu: OpenGL/EGL is not available (library not found)")
	ErrContextCreation    = errors.New("gpu: failed to create GL execution context")
	ErrCompile            = errors.New("gpu: compute shader compilation failed")
	ErrLink               = errors.New("gpu: compute program link failed")
	ErrInclude            = errors.New("gpu: unresolvable or malformed include directive")
	ErrDescriptor         = errors.New("gpu: invalid buffer descriptor")
	ErrPayloadSize        = errors.New("gpu: initial payload size does not match allocation size")
	ErrUnknownUniformType = errors.New("gpu: unknown uniform type tag")
	ErrDispatch           = errors.New("gpu: dispatch failed")
)
