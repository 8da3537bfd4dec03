package hive

import (
	"fmt"

	"github.com/joshuapare/tracekit/internal/format"
)

// Type enumerates the Windows registry value types. The numbers align with
// the REG_* definitions.
type Type uint32

const (
	TypeNone         Type = 0
	TypeSZ           Type = 1
	TypeExpandSZ     Type = 2
	TypeBinary       Type = 3
	TypeDword        Type = 4
	TypeDwordBE      Type = 5
	TypeLink         Type = 6
	TypeMultiSZ      Type = 7
	TypeResourceList Type = 8
	TypeQword        Type = 11
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "REG_NONE"
	case TypeSZ:
		return "REG_SZ"
	case TypeExpandSZ:
		return "REG_EXPAND_SZ"
	case TypeBinary:
		return "REG_BINARY"
	case TypeDword:
		return "REG_DWORD"
	case TypeDwordBE:
		return "REG_DWORD_BIG_ENDIAN"
	case TypeLink:
		return "REG_LINK"
	case TypeMultiSZ:
		return "REG_MULTI_SZ"
	case TypeResourceList:
		return "REG_RESOURCE_LIST"
	case TypeQword:
		return "REG_QWORD"
	default:
		return fmt.Sprintf("UNKNOWN_TYPE_%d", uint32(t))
	}
}

// Value is a decoded registry value: a name, a type tag, and the payload
// variant the tag selects. The two always agree; a mismatch between tag and
// stored payload is a decoding error and never produces a Value.
type Value struct {
	Name string
	Type Type

	str   string
	strs  []string
	bytes []byte
	u32   uint32
	u64   uint64
}

// AsString returns the payload of an SZ, EXPAND_SZ or LINK value.
func (v Value) AsString() (string, error) {
	switch v.Type {
	case TypeSZ, TypeExpandSZ, TypeLink:
		return v.str, nil
	}
	return "", &InvalidValueAccessError{Name: v.Name, Requested: TypeSZ, Actual: v.Type}
}

// AsStrings returns the payload of a MULTI_SZ value.
func (v Value) AsStrings() ([]string, error) {
	if v.Type != TypeMultiSZ {
		return nil, &InvalidValueAccessError{Name: v.Name, Requested: TypeMultiSZ, Actual: v.Type}
	}
	return v.strs, nil
}

// AsBytes returns the payload of a BINARY or RESOURCE_LIST value.
func (v Value) AsBytes() ([]byte, error) {
	switch v.Type {
	case TypeBinary, TypeResourceList:
		return v.bytes, nil
	}
	return nil, &InvalidValueAccessError{Name: v.Name, Requested: TypeBinary, Actual: v.Type}
}

// AsDword returns the payload of a DWORD or DWORD_BIG_ENDIAN value.
func (v Value) AsDword() (uint32, error) {
	switch v.Type {
	case TypeDword, TypeDwordBE:
		return v.u32, nil
	}
	return 0, &InvalidValueAccessError{Name: v.Name, Requested: TypeDword, Actual: v.Type}
}

// AsQword returns the payload of a QWORD value.
func (v Value) AsQword() (uint64, error) {
	if v.Type != TypeQword {
		return 0, &InvalidValueAccessError{Name: v.Name, Requested: TypeQword, Actual: v.Type}
	}
	return v.u64, nil
}

// DataString renders the payload for display and report columns: strings
// verbatim, multi-strings comma-joined, integers in decimal, binary as a
// hex dump. Never fails.
func (v Value) DataString() string {
	switch v.Type {
	case TypeSZ, TypeExpandSZ, TypeLink:
		return v.str
	case TypeMultiSZ:
		out := ""
		for i, s := range v.strs {
			if i > 0 {
				out += ", "
			}
			out += s
		}
		return out
	case TypeDword, TypeDwordBE:
		return fmt.Sprintf("%d", v.u32)
	case TypeQword:
		return fmt.Sprintf("%d", v.u64)
	case TypeBinary, TypeResourceList:
		return fmt.Sprintf("%X", v.bytes)
	default:
		return ""
	}
}

// decodeValue builds a Value from a VK type tag and raw payload bytes. The
// switch is exhaustive over the supported set; anything else is an
// UnsupportedTypeError and the caller skips the value.
func decodeValue(name string, tag uint32, data []byte) (Value, error) {
	v := Value{Name: name, Type: Type(tag)}
	switch v.Type {
	case TypeNone:
		// Empty payload.
	case TypeSZ, TypeExpandSZ, TypeLink:
		v.str = format.DecodeUTF16String(data)
	case TypeMultiSZ:
		v.strs = format.DecodeUTF16MultiString(data)
	case TypeBinary, TypeResourceList:
		v.bytes = append([]byte(nil), data...)
	case TypeDword:
		if len(data) < 4 {
			return Value{}, fmt.Errorf("hive: value %q too short for DWORD: %w", name, ErrCorrupt)
		}
		v.u32 = format.U32(data)
	case TypeDwordBE:
		if len(data) < 4 {
			return Value{}, fmt.Errorf("hive: value %q too short for DWORD: %w", name, ErrCorrupt)
		}
		v.u32 = format.U32BE(data)
	case TypeQword:
		if len(data) < 8 {
			return Value{}, fmt.Errorf("hive: value %q too short for QWORD: %w", name, ErrCorrupt)
		}
		v.u64 = format.U64(data)
	default:
		return Value{}, &UnsupportedTypeError{Tag: tag}
	}
	return v, nil
}
