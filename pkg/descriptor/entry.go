package descriptor

import (
	"fmt"
	"strings"
)

// Entry describes a field or a function of a board.
// Fields use Access, functions use OutType. SubNames are the sub-field
// names of a field or the argument names of a function.
type Entry struct {
	Index    int
	Kind     Kind
	Name     string
	Type     TypeCode
	Access   Access
	SubNames []string
	OutType  TypeCode
}

// Count is the number of elements carried by the entry.
func (e *Entry) Count() int {
	if n := len(e.SubNames); n > 1 {
		return n
	}
	return 1
}

// Size is the byte size of the entry's data.
func (e *Entry) Size() int {
	return e.Type.Size() * e.Count()
}

// Complete tells whether the entry has been named.
func (e *Entry) Complete() bool {
	return e.Name != ""
}

// Equal compares the structure of two entries.
func (e *Entry) Equal(o *Entry) bool {
	return e.diff(o) == ""
}

func (e *Entry) diff(o *Entry) string {
	switch {
	case e.Kind != o.Kind:
		return fmt.Sprintf("kind %s != %s", e.Kind, o.Kind)
	case e.Name != o.Name:
		return fmt.Sprintf("name %q != %q", e.Name, o.Name)
	case e.Type != o.Type:
		return fmt.Sprintf("type %s != %s", e.Type, o.Type)
	case e.Access != o.Access:
		return fmt.Sprintf("access %s != %s", e.Access, o.Access)
	case e.OutType != o.OutType:
		return fmt.Sprintf("output type %s != %s", e.OutType, o.OutType)
	case strings.Join(e.SubNames, ",") != strings.Join(o.SubNames, ","):
		return fmt.Sprintf("names [%s] != [%s]", strings.Join(e.SubNames, ","), strings.Join(o.SubNames, ","))
	}
	return ""
}

func (e *Entry) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s %s %s", e.Index, e.Kind, e.Name, e.Type)
	if len(e.SubNames) > 0 {
		fmt.Fprintf(&sb, "[%s]", strings.Join(e.SubNames, ","))
	}
	if e.Kind == KindField {
		fmt.Fprintf(&sb, " %s", e.Access)
	} else {
		fmt.Fprintf(&sb, " -> %s", e.OutType)
	}
	return sb.String()
}
