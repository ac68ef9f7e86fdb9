package boards

import "github.com/robotalks/rubi.go/pkg/descriptor"

// ConnRef references a Connection by bus slot and generation.
// It resolves to nil once the slot has been reclaimed.
type ConnRef struct {
	Bus  *Bus
	Node uint8
	Gen  uint32
}

// Resolve returns the referenced Connection or nil.
func (r ConnRef) Resolve() *Connection {
	if r.Bus == nil {
		return nil
	}
	return r.Bus.Lookup(r.Node, r.Gen)
}

// IsZero tells whether the reference is empty.
func (r ConnRef) IsZero() bool {
	return r.Bus == nil
}

// Instance is a physical board: a descriptor plus the id the board
// reports, empty if it reports none.
type Instance struct {
	Descriptor *descriptor.Descriptor
	ID         string

	registry *Registry
	conn     ConnRef
	handler  BoardHandler
}

// Connection returns the current connection, nil if absent.
func (i *Instance) Connection() *Connection {
	return i.conn.Resolve()
}

// Handler returns the frontend handler.
func (i *Instance) Handler() BoardHandler {
	return i.handler
}

// Reresolve asks the registry to promote a parked connection.
// It returns the new connection or nil.
func (i *Instance) Reresolve() *Connection {
	return i.registry.RequestNewHandler(i)
}

// String returns "name" or "name:id".
func (i *Instance) String() string {
	return instanceName(i.Descriptor.Name, i.ID)
}

func instanceName(name, id string) string {
	if id == "" {
		return name
	}
	return name + ":" + id
}
