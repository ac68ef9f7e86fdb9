package sim

import (
	"fmt"
	"strings"
	"time"

	"github.com/robotalks/rubi.go/pkg/descriptor"
)

// FieldSpec declares a field of a simulated board.
type FieldSpec struct {
	Name     string              `toml:"name"`
	Type     descriptor.TypeCode `toml:"-"`
	TypeName string              `toml:"type"`
	Access   descriptor.Access   `toml:"-"`
	Mode     string              `toml:"access"`
	SubNames []string            `toml:"subfields"`
	Values   []string            `toml:"values"`
}

// FunctionSpec declares a function of a simulated board.
type FunctionSpec struct {
	Name     string
	ArgType  descriptor.TypeCode
	ArgNames []string
	OutType  descriptor.TypeCode
	// Call computes the output from encoded arguments.
	Call func(args []byte) []byte
}

// BoardSpec declares a simulated board.
type BoardSpec struct {
	Name        string         `toml:"name"`
	Version     string         `toml:"version"`
	Driver      string         `toml:"driver"`
	Description string         `toml:"description"`
	ID          string         `toml:"id"`
	Fields      []FieldSpec    `toml:"fields"`
	Functions   []FunctionSpec `toml:"-"`
	// PublishInterval is the period readable fields are sent at, 0 disables.
	PublishInterval time.Duration `toml:"-"`
	Publish         string        `toml:"publish"`
	// ProtocolVersion overrides the announced version when non-zero.
	ProtocolVersion uint16 `toml:"-"`
}

// Resolve fills the typed fields from their text forms used in
// configuration files.
func (s *BoardSpec) Resolve() error {
	for n := range s.Fields {
		f := &s.Fields[n]
		if f.TypeName != "" {
			t, err := descriptor.ParseTypeCode(f.TypeName)
			if err != nil {
				return fmt.Errorf("board %s field %s: %w", s.Name, f.Name, err)
			}
			f.Type = t
		}
		switch strings.ToLower(f.Mode) {
		case "":
		case "ro":
			f.Access = descriptor.AccessReadOnly
		case "wo":
			f.Access = descriptor.AccessWriteOnly
		case "rw":
			f.Access = descriptor.AccessReadWrite
		default:
			return fmt.Errorf("board %s field %s: unknown access %q", s.Name, f.Name, f.Mode)
		}
		if !f.Type.IsValid() || !f.Access.IsValid() {
			return fmt.Errorf("board %s field %s: type and access required", s.Name, f.Name)
		}
	}
	if s.Publish != "" {
		d, err := time.ParseDuration(s.Publish)
		if err != nil {
			return fmt.Errorf("board %s publish: %w", s.Name, err)
		}
		s.PublishInterval = d
	}
	return nil
}

// Descriptor returns the descriptor the board announces.
func (s *BoardSpec) Descriptor() *descriptor.Descriptor {
	d := &descriptor.Descriptor{
		Name:        s.Name,
		Version:     s.Version,
		Driver:      s.Driver,
		Description: s.Description,
	}
	for _, f := range s.Fields {
		d.Entries = append(d.Entries, &descriptor.Entry{
			Index:    len(d.Entries),
			Kind:     descriptor.KindField,
			Name:     f.Name,
			Type:     f.Type,
			Access:   f.Access,
			SubNames: f.SubNames,
		})
	}
	for _, f := range s.Functions {
		d.Entries = append(d.Entries, &descriptor.Entry{
			Index:    len(d.Entries),
			Kind:     descriptor.KindFunction,
			Name:     f.Name,
			Type:     f.ArgType,
			SubNames: f.ArgNames,
			OutType:  f.OutType,
		})
	}
	return d
}

// Thermo is the temperature controller used in demos and tests.
func Thermo() BoardSpec {
	return BoardSpec{
		Name:        "Thermo",
		Version:     "1.0",
		Driver:      "thermo",
		Description: "Temperature controller",
		Fields: []FieldSpec{
			{Name: "Temp", Type: descriptor.TypeFloat, Access: descriptor.AccessReadOnly, Values: []string{"21.5"}},
			{Name: "Target", Type: descriptor.TypeInt32, Access: descriptor.AccessReadWrite, Values: []string{"20"}},
			{Name: "Heater", Type: descriptor.TypeBool, Access: descriptor.AccessWriteOnly, Values: []string{"false"}},
		},
	}
}
