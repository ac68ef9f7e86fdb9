package descriptor

import (
	"fmt"
	"strings"
)

// TypeCode identifies the element type of a field or function.
type TypeCode uint8

// Type codes.
const (
	TypeVoid        TypeCode = 1
	TypeInt32       TypeCode = 2
	TypeInt16       TypeCode = 3
	TypeInt8        TypeCode = 4
	TypeUint32      TypeCode = 5
	TypeUint16      TypeCode = 6
	TypeUint8       TypeCode = 7
	TypeFloat       TypeCode = 8
	TypeShortString TypeCode = 9
	TypeLongString  TypeCode = 10
	TypeBool        TypeCode = 11
	TypeEnum1       TypeCode = 12
)

type typeInfo struct {
	name string
	size int
}

var typeInfos = map[TypeCode]typeInfo{
	TypeVoid:        {"void", 0},
	TypeInt32:       {"int32", 4},
	TypeInt16:       {"int16", 2},
	TypeInt8:        {"int8", 1},
	TypeUint32:      {"uint32", 4},
	TypeUint16:      {"uint16", 2},
	TypeUint8:       {"uint8", 1},
	TypeFloat:       {"float", 4},
	TypeShortString: {"shortstring", 32},
	TypeLongString:  {"longstring", 255},
	TypeBool:        {"bool", 1},
	TypeEnum1:       {"enum1", 1},
}

// IsValid tells whether t is a known type code.
func (t TypeCode) IsValid() bool {
	_, ok := typeInfos[t]
	return ok
}

// Size returns the encoded size of one element, 0 for unknown types.
func (t TypeCode) Size() int {
	return typeInfos[t].size
}

// IsString tells whether t is a string type.
func (t TypeCode) IsString() bool {
	return t == TypeShortString || t == TypeLongString
}

func (t TypeCode) String() string {
	if info, ok := typeInfos[t]; ok {
		return info.name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseTypeCode parses the name of a type.
func ParseTypeCode(name string) (TypeCode, error) {
	for code, info := range typeInfos {
		if strings.EqualFold(info.name, name) {
			return code, nil
		}
	}
	return 0, fmt.Errorf("unknown type %q", name)
}

// Access is the access mode of a field, from the host's point of view.
type Access uint8

// Access modes.
const (
	AccessReadOnly  Access = 1
	AccessWriteOnly Access = 2
	AccessReadWrite Access = 3
)

// IsValid tells whether a is a known access mode.
func (a Access) IsValid() bool {
	return a >= AccessReadOnly && a <= AccessReadWrite
}

// Readable tells whether the board publishes the field.
func (a Access) Readable() bool {
	return a == AccessReadOnly || a == AccessReadWrite
}

// Writable tells whether the host may write the field.
func (a Access) Writable() bool {
	return a == AccessWriteOnly || a == AccessReadWrite
}

func (a Access) String() string {
	switch a {
	case AccessReadOnly:
		return "ro"
	case AccessWriteOnly:
		return "wo"
	case AccessReadWrite:
		return "rw"
	}
	return fmt.Sprintf("access(%d)", uint8(a))
}

// Kind distinguishes fields from functions.
type Kind uint8

// Entry kinds.
const (
	KindField Kind = iota + 1
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindFunction:
		return "function"
	}
	return "unknown"
}
