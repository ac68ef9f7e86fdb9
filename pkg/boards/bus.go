package boards

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/rubi.go/pkg/can"
	"github.com/robotalks/rubi.go/pkg/protocol"
)

// DefaultKeepAliveInterval is the period of keep-alive rounds.
const DefaultKeepAliveInterval = time.Second

// BusOptions tunes a Bus.
type BusOptions struct {
	KeepAliveInterval time.Duration
	DeadAfter         int
	// Blocking makes sends retry until the transport accepts the frame.
	Blocking bool
}

// Bus coordinates the boards on one CAN segment.
type Bus struct {
	Name string
	BusOptions

	transport can.Transport
	sender    *protocol.TransportSender
	registry  *Registry

	slots [protocol.MaxNodes]*Connection
	gens  [protocol.MaxNodes]uint32

	lastKeepAlive time.Time
	lastTraffic   uint64
}

// NewBus takes over a transport and broadcasts a reboot so every board
// restarts discovery.
func NewBus(name string, t can.Transport, reg *Registry, opts BusOptions) (*Bus, error) {
	if opts.KeepAliveInterval <= 0 {
		opts.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if opts.DeadAfter <= 0 {
		opts.DeadAfter = DefaultDeadAfter
	}
	b := &Bus{
		Name:       name,
		BusOptions: opts,
		transport:  t,
		sender:     &protocol.TransportSender{Transport: t, Block: opts.Blocking},
		registry:   reg,
	}
	f, _ := can.NewFrame(protocol.BroadcastID, []byte{byte(protocol.ClassCommand), protocol.CmdReboot})
	if err := t.Send(f, true); err != nil {
		return nil, fmt.Errorf("bus %s reset: %w", name, err)
	}
	return b, nil
}

// Registry returns the registry the bus reports to.
func (b *Bus) Registry() *Registry {
	return b.registry
}

// Connection returns the connection at node, or nil.
func (b *Bus) Connection(node uint8) *Connection {
	if int(node) >= len(b.slots) {
		return nil
	}
	return b.slots[node]
}

// Connections returns all occupied slots in node order.
func (b *Bus) Connections() []*Connection {
	var conns []*Connection
	for _, c := range b.slots {
		if c != nil {
			conns = append(conns, c)
		}
	}
	return conns
}

// Lookup resolves a node and generation to a connection.
func (b *Bus) Lookup(node uint8, gen uint32) *Connection {
	if c := b.Connection(node); c != nil && c.gen == gen {
		return c
	}
	return nil
}

// TakeTraffic returns the bytes sent and received since the last call.
func (b *Bus) TakeTraffic() uint64 {
	total := b.transport.TotalBytesSent() + b.transport.TotalBytesReceived()
	delta := total - b.lastTraffic
	b.lastTraffic = total
	return delta
}

// Close closes the transport.
func (b *Bus) Close() error {
	return b.transport.Close()
}

// Tick runs keep-alives when due, dispatches every pending frame and
// flushes the transmit rings. Only configuration conflicts are returned.
func (b *Bus) Tick(now time.Time) error {
	if now.Sub(b.lastKeepAlive) >= b.KeepAliveInterval {
		for _, c := range b.slots {
			switch {
			case c == nil || c.dead:
			case c.state == StateUnaddressed:
				c.unconfirmedRound()
			default:
				c.KeepAliveRequest()
			}
		}
		b.lastKeepAlive = now
	}

	for {
		f, ok, err := b.transport.Receive(0)
		if err != nil {
			glog.Errorf("bus %s receive: %v", b.Name, err)
			break
		}
		if !ok {
			break
		}
		if err := b.dispatch(&f); err != nil {
			return err
		}
	}

	for _, c := range b.slots {
		if c == nil {
			continue
		}
		if err := c.framer.Flush(); err != nil {
			glog.Warningf("bus %s flush %s: %v", b.Name, c, err)
		}
	}
	return nil
}

func (b *Bus) dispatch(f *can.Frame) error {
	switch {
	case f.Extended:
		glog.V(2).Infof("bus %s: drop extended frame %s", b.Name, f)
	case protocol.IsLottery(f.ID):
		return b.lottery(f.ID-protocol.LotteryLow, f.Payload())
	case protocol.IsAddressed(f.ID):
		node := uint8(f.ID - protocol.AddressedLow)
		c := b.slots[node]
		switch {
		case c == nil:
			b.registry.Frontend.LogWarning(fmt.Sprintf("Message for empty slot %d on bus %s", node, b.Name))
		case c.dead:
			glog.V(2).Infof("bus %s: drop frame from dead board %s", b.Name, c)
		default:
			return c.HandleFrame(f.Payload())
		}
	case f.ID == protocol.BroadcastID:
		glog.V(2).Infof("bus %s: ignore broadcast %s", b.Name, f)
	default:
		b.registry.Frontend.LogWarning(fmt.Sprintf("Unknown message received on bus %s: %s", b.Name, f))
	}
	return nil
}

// lottery assigns a node to a board announcing lotteryID.
func (b *Bus) lottery(lotteryID uint32, data []byte) error {
	if len(data) != protocol.LotteryAnnounceLen {
		b.registry.Frontend.LogWarning(fmt.Sprintf("Malformed lottery announcement %d on bus %s", lotteryID, b.Name))
		return nil
	}
	if v := binary.LittleEndian.Uint16(data[2:]); v != protocol.ProtocolVersion {
		b.registry.Frontend.LogWarning(fmt.Sprintf("Board with protocol version %d (want %d) on bus %s", v, protocol.ProtocolVersion, b.Name))
		return nil
	}
	node, ok := b.allocate()
	if !ok {
		return &ConflictError{Detail: fmt.Sprintf("address pool of bus %s exhausted", b.Name)}
	}
	c := newConnection(b, node, b.gens[node])
	b.slots[node] = c

	f, _ := can.NewFrame(protocol.LotteryLow+lotteryID, []byte{node})
	if err := b.transport.Send(f, b.Blocking); err != nil {
		// the board will announce again
		b.slots[node] = nil
		b.registry.Frontend.LogWarning(fmt.Sprintf("Lottery reply on bus %s: %v", b.Name, err))
		return nil
	}
	glog.V(1).Infof("bus %s: lottery %d won node %d", b.Name, lotteryID, node)
	return nil
}

// allocate finds the lowest empty slot, or reclaims the lowest slot
// holding a dead connection no instance is bound to.
func (b *Bus) allocate() (uint8, bool) {
	for n, c := range b.slots {
		if c == nil {
			return uint8(n), true
		}
	}
	for n, c := range b.slots {
		if c.dead && !b.registry.references(c) {
			c.framer.Reset()
			c.sendCommand(protocol.CmdReboot)
			b.registry.forget(c)
			b.slots[n] = nil
			b.gens[n]++
			return uint8(n), true
		}
	}
	return 0, false
}
