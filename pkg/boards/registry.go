package boards

import (
	"fmt"
	"sort"

	"github.com/robotalks/rubi.go/pkg/descriptor"
)

// Registry interns descriptors and binds board instances to connections.
// There's one per process, passed explicitly to every Bus.
type Registry struct {
	Frontend Frontend

	descriptors map[string]*descriptor.Descriptor
	instances   map[*descriptor.Descriptor][]*Instance
	holden      []ConnRef
}

// NewRegistry creates a Registry reporting to fe.
func NewRegistry(fe Frontend) *Registry {
	return &Registry{
		Frontend:    fe,
		descriptors: make(map[string]*descriptor.Descriptor),
		instances:   make(map[*descriptor.Descriptor][]*Instance),
	}
}

// Descriptor returns the interned descriptor of a board name.
func (r *Registry) Descriptor(name string) *descriptor.Descriptor {
	return r.descriptors[name]
}

// Descriptors returns all interned descriptors ordered by name.
func (r *Registry) Descriptors() []*descriptor.Descriptor {
	descs := make([]*descriptor.Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		descs = append(descs, d)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs
}

// Instances returns the instances of a descriptor in discovery order.
func (r *Registry) Instances(d *descriptor.Descriptor) []*Instance {
	return r.instances[d]
}

// FindInstance looks up an instance by board name and id.
func (r *Registry) FindInstance(name, id string) *Instance {
	d := r.descriptors[name]
	if d == nil {
		return nil
	}
	for _, inst := range r.instances[d] {
		if inst.ID == id {
			return inst
		}
	}
	return nil
}

// Holden returns the parked connections that still exist.
func (r *Registry) Holden() []*Connection {
	var conns []*Connection
	for _, ref := range r.holden {
		if c := ref.Resolve(); c != nil {
			conns = append(conns, c)
		}
	}
	return conns
}

// Register handles a connection completing discovery. The descriptor it
// built is interned or checked against the interned one, then the
// connection either serves a new instance, replaces a dead connection
// of an existing instance or is parked.
func (r *Registry) Register(c *Connection) error {
	if c.desc == nil || !c.desc.Complete() {
		r.Frontend.LogWarning(fmt.Sprintf("Board %s completed init with an incomplete descriptor", c))
		return nil
	}
	if c.inst != nil {
		r.Frontend.LogWarning(fmt.Sprintf("Board %s completed init twice", c))
		return nil
	}

	name := c.desc.Name
	canonical := r.descriptors[name]
	if canonical == nil {
		canonical = c.desc
		r.descriptors[name] = canonical
	} else if diff := canonical.Diff(c.desc); diff != "" {
		err := &ConflictError{Board: name, Detail: diff}
		r.Frontend.LogError(fmt.Sprintf("Descriptor conflict for board %s: %s", name, diff))
		return err
	}
	c.desc = canonical
	r.Frontend.LogInfo(fmt.Sprintf("Handshake complete for board %s!", c))

	var inst *Instance
	for _, i := range r.instances[canonical] {
		if i.ID == c.boardID {
			inst = i
			break
		}
	}
	if inst == nil {
		inst = &Instance{Descriptor: canonical, ID: c.boardID, registry: r}
		r.instances[canonical] = append(r.instances[canonical], inst)
		inst.conn, c.inst = c.Ref(), inst
		inst.handler = r.Frontend.NewBoard(inst)
		c.Launch(inst.handler)
		return nil
	}

	c.inst = inst
	if old := inst.Connection(); old != nil && !old.IsDead() {
		r.Frontend.LogWarning(fmt.Sprintf("Handler for %s already exists. Putting new connection on hold.", inst))
		r.holden = append(r.holden, c.Ref())
		return nil
	}
	r.Frontend.LogInfo(fmt.Sprintf("Replacing dead handler for board %s", inst))
	inst.conn = c.Ref()
	inst.handler.ReplaceBackend(c)
	c.Launch(inst.handler)
	return nil
}

// RequestNewHandler promotes a parked connection claiming inst that is
// neither dead nor lost. A still living previous connection is put on
// hold. It returns the promoted connection or nil.
func (r *Registry) RequestNewHandler(inst *Instance) *Connection {
	var promoted *Connection
	holden := r.holden[:0]
	for _, ref := range r.holden {
		c := ref.Resolve()
		if c == nil || c.IsDead() {
			continue
		}
		if promoted == nil && !c.IsLost() && c.inst == inst {
			promoted = c
			continue
		}
		holden = append(holden, ref)
	}
	r.holden = holden
	if promoted == nil {
		return nil
	}

	old := inst.Connection()
	inst.conn = promoted.Ref()
	promoted.Launch(inst.handler)
	inst.handler.ReplaceBackend(promoted)
	r.Frontend.LogInfo(fmt.Sprintf("Promoted connection %s for board %s", promoted, inst))

	if old != nil && !old.IsDead() {
		old.Hold()
		r.holden = append(r.holden, old.Ref())
		r.Frontend.LogWarning(fmt.Sprintf("Putting active handler for board %s on hold on replacement.", inst))
	}
	return promoted
}

// recovered promotes a parked connection that answers keep-alives
// again while its instance has no living connection.
func (r *Registry) recovered(c *Connection) {
	inst := c.inst
	if inst == nil || !r.parked(c) {
		return
	}
	if cur := inst.Connection(); cur != nil && !cur.IsDead() {
		return
	}
	r.RequestNewHandler(inst)
}

func (r *Registry) parked(c *Connection) bool {
	ref := c.Ref()
	for _, h := range r.holden {
		if h == ref {
			return true
		}
	}
	return false
}

// references tells whether an instance is bound to the connection.
func (r *Registry) references(c *Connection) bool {
	if c.inst != nil {
		return c.inst.conn == c.Ref()
	}
	return false
}

// forget drops a parked reference of a reclaimed connection.
func (r *Registry) forget(c *Connection) {
	ref := c.Ref()
	for n, h := range r.holden {
		if h == ref {
			r.holden = append(r.holden[:n], r.holden[n+1:]...)
			return
		}
	}
}
