package gpu

import "fmt"

// Direction declares how a buffer moves between host and device.
type Direction int

const (
	// In buffers are uploaded before dispatch and never read back.
	In Direction = iota
	// Out buffers are allocated on the device and read back after dispatch.
	Out
	// InOut buffers are uploaded before dispatch and read back after.
	InOut
)

func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	case InOut:
		return "inout"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// BufferSpec declaratively describes one device memory region for a
// dispatch: where it binds, how large it is, which way data flows, and the
// initial payload for input directions.
//
// A spec fully determines the device allocation size (ElemSize x Count
// bytes). Device memory is retained across dispatches keyed by binding index
// purely as an allocation optimization; contents are rewritten on every
// dispatch, so correctness never depends on stale data.
type BufferSpec struct {
	Binding  uint32
	ElemSize int // bytes per element; 1 for raw byte buffers
	Count    int
	Mode     Direction
	Initial  []byte // required for In/InOut, forbidden for Out
}

// ByteSize returns the device allocation size this spec determines.
func (s BufferSpec) ByteSize() int {
	return s.ElemSize * s.Count
}

// Validate checks the spec before any device call.
func (s BufferSpec) Validate() error {
	if s.ElemSize <= 0 || s.Count <= 0 {
		return fmt.Errorf("%w: binding %d has elem size %d, count %d", ErrDescriptor, s.Binding, s.ElemSize, s.Count)
	}
	switch s.Mode {
	case In, InOut:
		if s.Initial == nil {
			return fmt.Errorf("%w: binding %d is %s but has no initial payload", ErrDescriptor, s.Binding, s.Mode)
		}
		if len(s.Initial) != s.ByteSize() {
			return fmt.Errorf("%w: binding %d expects %d bytes, payload is %d",
				ErrPayloadSize, s.Binding, s.ByteSize(), len(s.Initial))
		}
	case Out:
		if s.Initial != nil {
			return fmt.Errorf("%w: binding %d is output-only but supplies an initial payload", ErrDescriptor, s.Binding)
		}
	default:
		return fmt.Errorf("%w: binding %d has unknown direction %d", ErrDescriptor, s.Binding, int(s.Mode))
	}
	return nil
}

// UniformSpec declaratively describes one scalar/vector/matrix parameter.
// The type tag selects the setter from the registered table; an unknown tag
// is a configuration error surfaced before any device call.
type UniformSpec struct {
	Name  string
	Value any
	Type  UniformType
}

// Validate checks that the type tag is registered and the value matches it.
func (u UniformSpec) Validate() error {
	setter, ok := uniformSetters[u.Type]
	if !ok {
		return fmt.Errorf("%w: %q (uniform %q)", ErrUnknownUniformType, string(u.Type), u.Name)
	}
	return setter.check(u)
}

// validateDescriptors runs all pre-dispatch validation: per-spec checks,
// binding uniqueness, and uniform type tags.
func validateDescriptors(buffers []BufferSpec, uniforms []UniformSpec) error {
	seen := make(map[uint32]bool, len(buffers))
	for _, b := range buffers {
		if err := b.Validate(); err != nil {
			return err
		}
		if seen[b.Binding] {
			return fmt.Errorf("%w: binding %d declared twice", ErrDescriptor, b.Binding)
		}
		seen[b.Binding] = true
	}
	for _, u := range uniforms {
		if err := u.Validate(); err != nil {
			return err
		}
	}
	return nil
}
