package gpu

import "fmt"

// UniformType tags select among scalar/vector/matrix, signed/unsigned,
// single/double precision uniform variants. Each tag maps to exactly one
// setter registered in uniformSetters; adding a type adds one table entry.
type UniformType string

const (
	Uniform1i  UniformType = "1i"  // int32
	Uniform1ui UniformType = "1ui" // uint32
	Uniform1f  UniformType = "1f"  // float32
	Uniform1d  UniformType = "1d"  // float64
	Uniform4f  UniformType = "4f"  // [4]float32
	Uniform4d  UniformType = "4d"  // [4]float64
	UniformM4  UniformType = "m4"  // [16]float32, column-major
)

type uniformSetter struct {
	check func(u UniformSpec) error
	apply func(loc int32, value any)
}

func typeErr(u UniformSpec, want string) error {
	return fmt.Errorf("%w: uniform %q tagged %q needs %s, got %T",
		ErrDescriptor, u.Name, string(u.Type), want, u.Value)
}

// uniformSetters is the tag dispatch table, registered once. Values are
// coerced from the common Go literal types so call sites can pass untyped
// constants.
var uniformSetters = map[UniformType]uniformSetter{
	Uniform1i: {
		check: func(u UniformSpec) error {
			if _, ok := asInt32(u.Value); !ok {
				return typeErr(u, "a signed integer")
			}
			return nil
		},
		apply: func(loc int32, value any) {
			v, _ := asInt32(value)
			glUniform1i(loc, v)
		},
	},
	Uniform1ui: {
		check: func(u UniformSpec) error {
			if _, ok := asUint32(u.Value); !ok {
				return typeErr(u, "an unsigned integer")
			}
			return nil
		},
		apply: func(loc int32, value any) {
			v, _ := asUint32(value)
			glUniform1ui(loc, v)
		},
	},
	Uniform1f: {
		check: func(u UniformSpec) error {
			if _, ok := asFloat64(u.Value); !ok {
				return typeErr(u, "a float")
			}
			return nil
		},
		apply: func(loc int32, value any) {
			v, _ := asFloat64(value)
			glUniform1f(loc, float32(v))
		},
	},
	Uniform1d: {
		check: func(u UniformSpec) error {
			if _, ok := asFloat64(u.Value); !ok {
				return typeErr(u, "a float")
			}
			return nil
		},
		apply: func(loc int32, value any) {
			v, _ := asFloat64(value)
			glUniform1d(loc, v)
		},
	},
	Uniform4f: {
		check: func(u UniformSpec) error {
			if _, ok := asVec4f(u.Value); !ok {
				return typeErr(u, "[4]float32")
			}
			return nil
		},
		apply: func(loc int32, value any) {
			v, _ := asVec4f(value)
			glUniform4fv(loc, 1, &v[0])
		},
	},
	Uniform4d: {
		check: func(u UniformSpec) error {
			if _, ok := asVec4d(u.Value); !ok {
				return typeErr(u, "[4]float64")
			}
			return nil
		},
		apply: func(loc int32, value any) {
			v, _ := asVec4d(value)
			glUniform4dv(loc, 1, &v[0])
		},
	},
	UniformM4: {
		check: func(u UniformSpec) error {
			if _, ok := asMat4(u.Value); !ok {
				return typeErr(u, "[16]float32")
			}
			return nil
		},
		apply: func(loc int32, value any) {
			v, _ := asMat4(value)
			glUniformMatrix4fv(loc, 1, 0, &v[0])
		},
	},
}

func asInt32(v any) (int32, bool) {
	switch x := v.(type) {
	case int32:
		return x, true
	case int:
		return int32(x), true
	case int64:
		return int32(x), true
	}
	return 0, false
}

func asUint32(v any) (uint32, bool) {
	switch x := v.(type) {
	case uint32:
		return x, true
	case uint:
		return uint32(x), true
	case uint64:
		return uint32(x), true
	case int:
		if x >= 0 {
			return uint32(x), true
		}
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}

func asVec4f(v any) ([4]float32, bool) {
	switch x := v.(type) {
	case [4]float32:
		return x, true
	case []float32:
		if len(x) == 4 {
			return [4]float32{x[0], x[1], x[2], x[3]}, true
		}
	}
	return [4]float32{}, false
}

func asVec4d(v any) ([4]float64, bool) {
	switch x := v.(type) {
	case [4]float64:
		return x, true
	case []float64:
		if len(x) == 4 {
			return [4]float64{x[0], x[1], x[2], x[3]}, true
		}
	}
	return [4]float64{}, false
}

func asMat4(v any) ([16]float32, bool) {
	switch x := v.(type) {
	case [16]float32:
		return x, true
	case []float32:
		if len(x) == 16 {
			var m [16]float32
			copy(m[:], x)
			return m, true
		}
	}
	return [16]float32{}, false
}
