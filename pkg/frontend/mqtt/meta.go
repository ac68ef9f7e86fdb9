package mqtt

import (
	"github.com/robotalks/rubi.go/pkg/boards"
	"github.com/robotalks/rubi.go/pkg/descriptor"
)

// EntryMeta describes a field or function in BoardMeta.
type EntryMeta struct {
	Index    int      `json:"index"`
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Type     string   `json:"type"`
	Access   string   `json:"access,omitempty"`
	SubNames []string `json:"sub_names,omitempty"`
	OutType  string   `json:"out_type,omitempty"`
	Size     int      `json:"size"`
}

// BoardMeta is the retained meta of a board instance.
type BoardMeta struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Driver      string      `json:"driver"`
	Description string      `json:"description"`
	ID          string      `json:"id,omitempty"`
	Bus         string      `json:"bus"`
	Node        int         `json:"node"`
	Entries     []EntryMeta `json:"entries"`
}

// ServerMeta is the retained meta of the server.
type ServerMeta struct {
	ID    string   `json:"id"`
	Buses []string `json:"buses"`
}

// NewBoardMeta describes an instance and the connection serving it.
func NewBoardMeta(inst *boards.Instance) *BoardMeta {
	d := inst.Descriptor
	m := &BoardMeta{
		Name:        d.Name,
		Version:     d.Version,
		Driver:      d.Driver,
		Description: d.Description,
		ID:          inst.ID,
		Node:        -1,
		Entries:     make([]EntryMeta, len(d.Entries)),
	}
	if c := inst.Connection(); c != nil {
		m.Bus, m.Node = c.Bus().Name, int(c.Node())
	}
	for n, e := range d.Entries {
		em := EntryMeta{
			Index:    e.Index,
			Name:     e.Name,
			Kind:     e.Kind.String(),
			Type:     e.Type.String(),
			SubNames: e.SubNames,
			Size:     e.Size(),
		}
		if e.Kind == descriptor.KindField {
			em.Access = e.Access.String()
		} else {
			em.OutType = e.OutType.String()
		}
		m.Entries[n] = em
	}
	return m
}

// Topic is the board root topic.
func (m *BoardMeta) Topic() string {
	return BoardTopic(m.Name, m.ID)
}

// Entry finds an entry by name.
func (m *BoardMeta) Entry(name string) *EntryMeta {
	for n := range m.Entries {
		if m.Entries[n].Name == name {
			return &m.Entries[n]
		}
	}
	return nil
}

// InstanceName is "name" or "name:id".
func (m *BoardMeta) InstanceName() string {
	if m.ID == "" {
		return m.Name
	}
	return m.Name + ":" + m.ID
}
