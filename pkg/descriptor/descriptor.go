package descriptor

import (
	"errors"
	"fmt"

	"github.com/robotalks/rubi.go/pkg/protocol"
)

var (
	// ErrNoEntry indicates entry info arrived before any entry name.
	ErrNoEntry = errors.New("descriptor: no entry to apply info")
	// ErrIncomplete indicates a new entry started before the previous one was named.
	ErrIncomplete = errors.New("descriptor: previous entry incomplete")
	// ErrKindMismatch indicates field info applied to a function or vice versa.
	ErrKindMismatch = errors.New("descriptor: info doesn't match entry kind")
	// ErrUnknownInfo indicates an unknown info sub-id.
	ErrUnknownInfo = errors.New("descriptor: unknown info")
)

// Descriptor describes a board type. It's built incrementally from
// info messages and is read-only once registered.
type Descriptor struct {
	Name        string
	Version     string
	Driver      string
	Description string
	Entries     []*Entry
}

// Complete tells whether the board is named and so is its last entry.
func (d *Descriptor) Complete() bool {
	if d.Name == "" {
		return false
	}
	if n := len(d.Entries); n > 0 {
		return d.Entries[n-1].Complete()
	}
	return true
}

// Entry returns the entry at index, or nil.
func (d *Descriptor) Entry(index int) *Entry {
	if index < 0 || index >= len(d.Entries) {
		return nil
	}
	return d.Entries[index]
}

// Lookup finds an entry by name.
func (d *Descriptor) Lookup(name string) *Entry {
	for _, e := range d.Entries {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Apply applies one info message. BoardID isn't part of the
// descriptor and is rejected with ErrUnknownInfo.
func (d *Descriptor) Apply(info uint8, data []byte) error {
	value := DataToString(data)
	switch info {
	case protocol.InfoBoardName:
		d.Name = value
		return nil
	case protocol.InfoVersion:
		d.Version = value
		return nil
	case protocol.InfoDriver:
		d.Driver = value
		return nil
	case protocol.InfoDescription:
		d.Description = value
		return nil
	case protocol.InfoFieldName:
		return d.addEntry(KindField, value)
	case protocol.InfoFuncName:
		return d.addEntry(KindFunction, value)
	}

	kind := KindField
	switch info {
	case protocol.InfoFieldType, protocol.InfoFieldAccess,
		protocol.InfoSubfieldCount, protocol.InfoSubfieldNames:
	case protocol.InfoFuncOutType, protocol.InfoFuncArgType,
		protocol.InfoFuncArgCount, protocol.InfoFuncArgNames:
		kind = KindFunction
	default:
		return fmt.Errorf("%w %d", ErrUnknownInfo, info)
	}
	if len(d.Entries) == 0 {
		return ErrNoEntry
	}
	e := d.Entries[len(d.Entries)-1]
	if e.Kind != kind {
		return fmt.Errorf("%w: info %d for %s %q", ErrKindMismatch, info, e.Kind, e.Name)
	}

	var code byte
	if len(data) > 0 {
		code = data[0]
	}
	switch info {
	case protocol.InfoFieldType, protocol.InfoFuncArgType:
		e.Type = TypeCode(code)
	case protocol.InfoFieldAccess:
		e.Access = Access(code)
	case protocol.InfoFuncOutType:
		e.OutType = TypeCode(code)
	case protocol.InfoSubfieldNames, protocol.InfoFuncArgNames:
		e.SubNames = SplitNames(value)
	}
	// counts are implied by the names
	return nil
}

func (d *Descriptor) addEntry(kind Kind, name string) error {
	if n := len(d.Entries); n > 0 && !d.Entries[n-1].Complete() {
		return ErrIncomplete
	}
	d.Entries = append(d.Entries, &Entry{
		Index: len(d.Entries),
		Kind:  kind,
		Name:  name,
	})
	return nil
}

// Equal compares the structure of two descriptors.
func (d *Descriptor) Equal(o *Descriptor) bool {
	return d.Diff(o) == ""
}

// Diff describes the first structural difference, empty if equal.
func (d *Descriptor) Diff(o *Descriptor) string {
	switch {
	case d.Name != o.Name:
		return fmt.Sprintf("name %q != %q", d.Name, o.Name)
	case d.Version != o.Version:
		return fmt.Sprintf("version %q != %q", d.Version, o.Version)
	case d.Driver != o.Driver:
		return fmt.Sprintf("driver %q != %q", d.Driver, o.Driver)
	case d.Description != o.Description:
		return fmt.Sprintf("description %q != %q", d.Description, o.Description)
	case len(d.Entries) != len(o.Entries):
		return fmt.Sprintf("%d entries != %d", len(d.Entries), len(o.Entries))
	}
	for n, e := range d.Entries {
		if diff := e.diff(o.Entries[n]); diff != "" {
			return fmt.Sprintf("entry %d: %s", n, diff)
		}
	}
	return ""
}
