package boards

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/rubi.go/pkg/descriptor"
	"github.com/robotalks/rubi.go/pkg/protocol"
)

// ConnState is the addressing state of a Connection.
type ConnState int

// Connection states.
const (
	StateUnaddressed ConnState = iota
	StateAddressed
	StateOperational
)

func (s ConnState) String() string {
	switch s {
	case StateUnaddressed:
		return "unaddressed"
	case StateAddressed:
		return "addressed"
	case StateOperational:
		return "operational"
	}
	return "unknown"
}

// DefaultDeadAfter is the number of consecutive missed keep-alives
// after which a connection is dead.
const DefaultDeadAfter = 5

// Connection is one addressed board on a bus.
type Connection struct {
	bus    *Bus
	node   uint8
	gen    uint32
	framer *protocol.Framer
	asm    protocol.Reassembler

	state ConnState
	dead  bool
	lost  bool
	wake  bool

	keepAliveReceived bool
	missed            int
	// keep-alive rounds spent waiting for the lottery confirmation
	unconfirmed int

	desc    *descriptor.Descriptor
	boardID string
	inst    *Instance
	handler BoardHandler
}

func newConnection(bus *Bus, node uint8, gen uint32) *Connection {
	c := &Connection{
		bus:               bus,
		node:              node,
		gen:               gen,
		wake:              true,
		keepAliveReceived: true,
	}
	c.framer = protocol.NewFramer(node, bus.sender)
	c.framer.Blocking = bus.Blocking
	return c
}

// Ref returns a weak reference to the connection.
func (c *Connection) Ref() ConnRef {
	return ConnRef{Bus: c.bus, Node: c.node, Gen: c.gen}
}

// Bus returns the bus of the connection.
func (c *Connection) Bus() *Bus { return c.bus }

// Node returns the node address.
func (c *Connection) Node() uint8 { return c.node }

// State returns the addressing state.
func (c *Connection) State() ConnState { return c.state }

// IsDead tells whether keep-alives are exhausted or a reboot was ordered.
func (c *Connection) IsDead() bool { return c.dead }

// IsLost tells whether the last keep-alive is overdue.
func (c *Connection) IsLost() bool { return c.lost }

// IsWake reports the power state from the last keep-alive response.
func (c *Connection) IsWake() bool { return c.wake }

// MissedKeepAlives returns the consecutive miss count.
func (c *Connection) MissedKeepAlives() int { return c.missed }

// Descriptor returns the descriptor, canonical once registered.
func (c *Connection) Descriptor() *descriptor.Descriptor { return c.desc }

// BoardID returns the id reported by the board.
func (c *Connection) BoardID() string { return c.boardID }

// Instance returns the instance the connection claimed, nil before registration.
func (c *Connection) Instance() *Instance { return c.inst }

// Framer returns the outbound framer.
func (c *Connection) Framer() *protocol.Framer { return c.framer }

func (c *Connection) String() string {
	where := fmt.Sprintf("%s/%d", c.bus.Name, c.node)
	if c.desc == nil || c.desc.Name == "" {
		return where
	}
	return instanceName(c.desc.Name, c.boardID) + "@" + where
}

func (c *Connection) log() Logger {
	return c.bus.registry.Frontend
}

// ConfirmAddress marks the lottery as completed by the board.
func (c *Connection) ConfirmAddress() {
	if c.state != StateUnaddressed {
		c.log().LogWarning(fmt.Sprintf("Board %s confirmed its address twice", c))
		return
	}
	c.state = StateAddressed
}

// HandleFrame processes the payload of a frame addressed to this node.
// Only a registration conflict is returned; protocol violations are
// logged and dropped.
func (c *Connection) HandleFrame(data []byte) error {
	if len(data) == 0 {
		c.log().LogWarning(fmt.Sprintf("Empty frame from board %s", c))
		return nil
	}
	if data[0]&protocol.FlagBlockTransfer == 0 {
		switch protocol.MsgClass(data[0] & protocol.ClassMask) {
		case protocol.ClassLottery:
			c.ConfirmAddress()
			return nil
		case protocol.ClassInitComplete:
			if c.state == StateUnaddressed {
				break
			}
			return c.bus.registry.Register(c)
		}
	}
	if c.state == StateUnaddressed {
		glog.V(2).Infof("drop frame from unaddressed node %s", c)
		return nil
	}
	res := c.asm.Feed(data)
	if res.Dropped != nil {
		c.log().LogWarning(fmt.Sprintf("Board %s: %v", c, res.Dropped))
	}
	if res.Message != nil {
		c.dispatch(res.Message)
	}
	return nil
}

func (c *Connection) dispatch(msg *protocol.Message) {
	switch msg.Class {
	case protocol.ClassField, protocol.ClassFunction:
		c.dataInbound(msg)
	case protocol.ClassInfo:
		c.infoInbound(msg.SubID, msg.Data)
	case protocol.ClassEvent:
		c.eventInbound(msg.SubID, msg.Data)
	case protocol.ClassCommand:
		c.commandInbound(msg.SubID, msg.Data)
	default:
		c.log().LogWarning(fmt.Sprintf("Board %s: unexpected %s message", c, msg.Class))
	}
}

func (c *Connection) dataInbound(msg *protocol.Message) {
	if c.state != StateOperational || c.handler == nil {
		glog.V(2).Infof("drop %s from board %s: not operational", msg, c)
		return
	}
	e := c.desc.Entry(int(msg.SubID))
	if e == nil || (msg.Class == protocol.ClassField) != (e.Kind == descriptor.KindField) {
		c.log().LogWarning(fmt.Sprintf("Board %s: data for unknown %s %d", c, msg.Class, msg.SubID))
		return
	}
	c.handler.FieldDataInbound(e.Index, msg.Data)
}

func (c *Connection) infoInbound(info uint8, data []byte) {
	if c.state == StateOperational {
		c.log().LogWarning(fmt.Sprintf("Board %s: info %d after registration", c, info))
		return
	}
	if info == protocol.InfoBoardID {
		c.boardID = descriptor.DataToString(data)
		return
	}
	if c.desc == nil {
		if info != protocol.InfoBoardName {
			c.log().LogWarning(fmt.Sprintf("Board %s: info %d before board name", c, info))
			return
		}
		c.desc = &descriptor.Descriptor{}
	}
	if err := c.desc.Apply(info, data); err != nil {
		c.log().LogWarning(fmt.Sprintf("Board %s: %v", c, err))
	}
}

func (c *Connection) eventInbound(event uint8, data []byte) {
	switch event {
	case protocol.EventAssert:
		var line int32
		var file string
		if len(data) >= 4 {
			line = int32(binary.LittleEndian.Uint32(data))
			file = descriptor.DataToString(data[4:])
		}
		c.log().LogError(fmt.Sprintf("An assertion has fired on board %s in file %s at line %d", c, file, line))
	case protocol.EventInfo:
		c.log().LogInfo(fmt.Sprintf("Board %s: %s", c, descriptor.DataToString(data)))
	case protocol.EventWarning:
		c.log().LogWarning(fmt.Sprintf("Board %s: %s", c, descriptor.DataToString(data)))
	case protocol.EventError:
		c.log().LogError(fmt.Sprintf("Board %s: %s", c, descriptor.DataToString(data)))
	default:
		c.log().LogError(fmt.Sprintf("An unknown error has occurred on board %s", c))
	}
}

func (c *Connection) commandInbound(cmd uint8, data []byte) {
	switch cmd {
	case protocol.CmdKeepAlive:
		recovered := c.lost
		c.keepAliveReceived = true
		c.lost = false
		c.missed = 0
		if len(data) > 0 {
			c.wake = data[0]&protocol.WakeBit != 0
		}
		if recovered {
			c.bus.registry.recovered(c)
		}
	case protocol.CmdReboot:
		// the board is leaving on its own
		c.dead = true
		c.log().LogInfo(fmt.Sprintf("Board %s is shutting down", c))
		if c.isServing() {
			c.handler.Shutdown()
		}
	default:
		glog.V(2).Infof("ignore command %d from board %s", cmd, c)
	}
}

// isServing tells whether the connection is bridged to its instance.
func (c *Connection) isServing() bool {
	return c.inst != nil && c.handler != nil && c.inst.conn == c.Ref()
}

// KeepAliveRequest runs one keep-alive round: it accounts for a missing
// response to the previous round and sends a new request.
func (c *Connection) KeepAliveRequest() {
	if !c.keepAliveReceived {
		c.missed++
		c.lost = true
		c.log().LogWarning(fmt.Sprintf("Didn't receive keep-alive from %s!", c))
		if c.missed >= c.bus.DeadAfter && !c.dead {
			c.dead = true
			c.log().LogError(fmt.Sprintf("Board %s is now considered dead!", c))
			if c.isServing() {
				c.handler.ConnectionLost()
			}
			return
		}
	}
	c.keepAliveReceived = false
	c.sendCommand(protocol.CmdKeepAlive)
}

// unconfirmedRound gives up on a lottery winner that never confirmed
// its address after DeadAfter rounds, so allocate can reclaim the slot.
func (c *Connection) unconfirmedRound() {
	if c.unconfirmed++; c.unconfirmed >= c.bus.DeadAfter {
		c.dead = true
		c.log().LogWarning(fmt.Sprintf("Board %s never confirmed its address", c))
	}
}

// Launch bridges the connection to a frontend handler and tells the
// board to become operational.
func (c *Connection) Launch(handler BoardHandler) {
	c.handler = handler
	c.state = StateOperational
	c.sendCommand(protocol.CmdOperational)
}

// Hold unbridges the connection and tells the board to stand by.
func (c *Connection) Hold() {
	c.handler = nil
	if c.state == StateOperational {
		c.state = StateAddressed
	}
	c.sendCommand(protocol.CmdHold)
}

// CommandReboot orders the board to reboot. The connection is dead
// afterwards; the board comes back through the lottery.
func (c *Connection) CommandReboot() {
	c.dead = true
	c.sendCommand(protocol.CmdReboot)
	c.log().LogInfo(fmt.Sprintf("Board %s was ordered a reboot!", c))
}

// CommandSleep puts the board to sleep.
func (c *Connection) CommandSleep() {
	c.sendCommand(protocol.CmdSleep)
}

// CommandWake wakes the board up.
func (c *Connection) CommandWake() {
	c.sendCommand(protocol.CmdWake)
}

func (c *Connection) sendCommand(cmd uint8) {
	if err := c.framer.Send(protocol.ClassCommand, cmd, nil); err != nil {
		c.log().LogWarning(fmt.Sprintf("Board %s: command %d: %v", c, cmd, err))
	}
}

// WriteField sends a new value for a writable field. The write is
// silently dropped while the board is asleep.
func (c *Connection) WriteField(index int, data []byte) error {
	e, err := c.outboundEntry(index, descriptor.KindField, data)
	if err != nil {
		return err
	}
	if !e.Access.Writable() {
		return fmt.Errorf("%w: %s", ErrNotWritable, e.Name)
	}
	if !c.wake {
		glog.V(2).Infof("drop write of %s to sleeping board %s", e.Name, c)
		return nil
	}
	return c.framer.Send(protocol.ClassField, uint8(e.Index), data)
}

// CallFunction invokes a function with encoded arguments.
// The result arrives through FieldDataInbound.
func (c *Connection) CallFunction(index int, args []byte) error {
	e, err := c.outboundEntry(index, descriptor.KindFunction, args)
	if err != nil {
		return err
	}
	return c.framer.Send(protocol.ClassFunction, uint8(e.Index), args)
}

func (c *Connection) outboundEntry(index int, kind descriptor.Kind, data []byte) (*descriptor.Entry, error) {
	if c.dead {
		return nil, ErrConnectionDead
	}
	if c.state != StateOperational {
		return nil, ErrNotOperational
	}
	e := c.desc.Entry(index)
	if e == nil || e.Kind != kind {
		return nil, fmt.Errorf("%w: %s %d", ErrNoEntry, kind, index)
	}
	size := e.Size()
	if len(data) > size || (!e.Type.IsString() && len(data) != size) {
		return nil, fmt.Errorf("%w: %s takes %d bytes, got %d", ErrDataSize, e.Name, size, len(data))
	}
	return e, nil
}
