package ir

import (
	"fmt"
	"strings"
)

// ElementType identifies the storage type of one tensor element.
type ElementType int

const (
	// Dynamic means the element type is not (yet) known.
	Dynamic ElementType = iota
	F64
	F32
	F16
	BF16
	I64
	I32
	I16
	I8
	I4
	U64
	U32
	U16
	U8
	U4
	U1
	Boolean
)

var elementNames = map[ElementType]string{
	Dynamic: "dynamic",
	F64:     "f64",
	F32:     "f32",
	F16:     "f16",
	BF16:    "bf16",
	I64:     "i64",
	I32:     "i32",
	I16:     "i16",
	I8:      "i8",
	I4:      "i4",
	U64:     "u64",
	U32:     "u32",
	U16:     "u16",
	U8:      "u8",
	U4:      "u4",
	U1:      "u1",
	Boolean: "boolean",
}

// Serialized precision aliases accepted in addition to the canonical
// names above.
var elementAliases = map[string]ElementType{
	"fp64":      F64,
	"fp32":      F32,
	"fp16":      F16,
	"float64":   F64,
	"float32":   F32,
	"float16":   F16,
	"double":    F64,
	"float":     F32,
	"half":      F16,
	"int64":     I64,
	"int32":     I32,
	"int16":     I16,
	"int8":      I8,
	"int4":      I4,
	"uint64":    U64,
	"uint32":    U32,
	"uint16":    U16,
	"uint8":     U8,
	"uint4":     U4,
	"bin":       U1,
	"bool":      Boolean,
	"undefined": Dynamic,
}

// ParseElementType resolves a serialized precision name.
func ParseElementType(s string) (ElementType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for et, n := range elementNames {
		if n == name {
			return et, nil
		}
	}
	if et, ok := elementAliases[name]; ok {
		return et, nil
	}
	return Dynamic, fmt.Errorf("unknown element type %q", s)
}

// String returns the canonical serialized name.
func (t ElementType) String() string {
	if n, ok := elementNames[t]; ok {
		return n
	}
	return fmt.Sprintf("ElementType(%d)", int(t))
}

// BitWidth returns the number of bits one element occupies, or 0 for
// Dynamic.
func (t ElementType) BitWidth() int {
	switch t {
	case F64, I64, U64:
		return 64
	case F32, I32, U32:
		return 32
	case F16, BF16, I16, U16:
		return 16
	case I8, U8, Boolean:
		return 8
	case I4, U4:
		return 4
	case U1:
		return 1
	}
	return 0
}
