package sim

import (
	"encoding/binary"
	"math/rand"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/rubi.go/pkg/can"
	"github.com/robotalks/rubi.go/pkg/descriptor"
	"github.com/robotalks/rubi.go/pkg/protocol"
)

// BoardState is the protocol state of a simulated board.
type BoardState int

// Board states.
const (
	StateReset BoardState = iota
	StateAnnounced
	StateAddressed
	StateOperational
	StateHeld
)

func (s BoardState) String() string {
	return [...]string{"reset", "announced", "addressed", "operational", "held"}[s]
}

// DefaultRetryInterval is how long a board waits for a lottery reply.
const DefaultRetryInterval = 500 * time.Millisecond

// Board simulates the firmware side of the protocol on a transport.
// It's driven by Tick and isn't safe for concurrent use.
type Board struct {
	Spec          BoardSpec
	RetryInterval time.Duration
	// Mute stops answering keep-alives.
	Mute bool

	transport can.Transport
	sender    *protocol.TransportSender
	rnd       *rand.Rand
	desc      *descriptor.Descriptor

	state       BoardState
	lotteryID   uint32
	node        uint8
	framer      *protocol.Framer
	asm         protocol.Reassembler
	awake       bool
	values      [][]byte
	announcedAt time.Time
	publishedAt time.Time
	resets      int
}

// NewBoard creates a simulated board attached to t.
func NewBoard(spec BoardSpec, t can.Transport, seed int64) *Board {
	b := &Board{
		Spec:          spec,
		RetryInterval: DefaultRetryInterval,
		transport:     t,
		sender:        &protocol.TransportSender{Transport: t},
		rnd:           rand.New(rand.NewSource(seed)),
		desc:          spec.Descriptor(),
		awake:         true,
	}
	b.values = make([][]byte, len(b.desc.Entries))
	for n, f := range spec.Fields {
		e := b.desc.Entries[n]
		if data, err := e.EncodeValues(f.Values); err == nil {
			b.values[n] = data
		} else {
			b.values[n] = make([]byte, e.Size())
		}
	}
	return b
}

// State returns the protocol state.
func (b *Board) State() BoardState { return b.state }

// Node returns the assigned node, valid once addressed.
func (b *Board) Node() uint8 { return b.node }

// Awake tells whether the board is awake.
func (b *Board) Awake() bool { return b.awake }

// Resets returns how many times the board restarted discovery.
func (b *Board) Resets() int { return b.resets }

// Value returns the current value of a field.
func (b *Board) Value(name string) []byte {
	if e := b.desc.Lookup(name); e != nil {
		return b.values[e.Index]
	}
	return nil
}

// SetValue updates a field, e.g. a new sensor reading.
func (b *Board) SetValue(name string, data []byte) {
	if e := b.desc.Lookup(name); e != nil {
		b.values[e.Index] = data
	}
}

// Publish sends the value of a field now.
func (b *Board) Publish(name string) error {
	e := b.desc.Lookup(name)
	if e == nil || b.framer == nil {
		return nil
	}
	return b.framer.Send(protocol.ClassField, uint8(e.Index), b.values[e.Index])
}

// Event sends an event message.
func (b *Board) Event(event uint8, msg string) error {
	if b.framer == nil {
		return nil
	}
	return b.framer.Send(protocol.ClassEvent, event, []byte(msg))
}

// Assert reports a failed assertion.
func (b *Board) Assert(file string, line int32) error {
	if b.framer == nil {
		return nil
	}
	data := make([]byte, 4, 4+len(file))
	binary.LittleEndian.PutUint32(data, uint32(line))
	return b.framer.Send(protocol.ClassEvent, protocol.EventAssert, append(data, file...))
}

// Leave tells the host the board goes away on its own.
func (b *Board) Leave() error {
	if b.framer == nil {
		return nil
	}
	err := b.framer.Send(protocol.ClassCommand, protocol.CmdReboot, nil)
	b.state = StateHeld
	return err
}

// Reset restarts discovery as after power-on.
func (b *Board) Reset() {
	b.state = StateReset
	b.framer = nil
	b.asm.Reset()
	b.awake = true
	b.resets++
}

// Tick processes received frames, announces when unaddressed and
// publishes readable fields when due.
func (b *Board) Tick(now time.Time) error {
	for {
		f, ok, err := b.transport.Receive(0)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		b.handleFrame(&f)
	}

	switch b.state {
	case StateReset:
		b.announce(now)
	case StateAnnounced:
		if now.Sub(b.announcedAt) >= b.RetryInterval {
			b.announce(now)
		}
	case StateOperational:
		if b.awake && b.Spec.PublishInterval > 0 && now.Sub(b.publishedAt) >= b.Spec.PublishInterval {
			b.publishedAt = now
			for _, e := range b.desc.Entries {
				if e.Kind == descriptor.KindField && e.Access.Readable() {
					b.framer.Send(protocol.ClassField, uint8(e.Index), b.values[e.Index])
				}
			}
		}
	}
	if b.framer != nil {
		return b.framer.Flush()
	}
	return nil
}

func (b *Board) announce(now time.Time) {
	b.lotteryID = uint32(b.rnd.Intn(int(protocol.LotteryHigh-protocol.LotteryLow) + 1))
	version := b.Spec.ProtocolVersion
	if version == 0 {
		version = protocol.ProtocolVersion
	}
	data := make([]byte, protocol.LotteryAnnounceLen)
	binary.LittleEndian.PutUint16(data[2:], version)
	f, _ := can.NewFrame(protocol.LotteryLow+b.lotteryID, data)
	if err := b.transport.Send(f, false); err != nil {
		glog.Warningf("sim %s: announce: %v", b.Spec.Name, err)
		return
	}
	b.state, b.announcedAt = StateAnnounced, now
}

func (b *Board) handleFrame(f *can.Frame) {
	data := f.Payload()
	switch {
	case f.ID == protocol.BroadcastID:
		if len(data) >= 2 && protocol.MsgClass(data[0]) == protocol.ClassCommand && data[1] == protocol.CmdReboot {
			b.Reset()
		}
	case b.state == StateAnnounced && f.ID == protocol.LotteryLow+b.lotteryID && len(data) == 1:
		b.addressed(data[0])
	case b.framer != nil && f.ID == protocol.NodeID(b.node):
		res := b.asm.Feed(data)
		if res.Dropped != nil {
			glog.Warningf("sim %s: %v", b.Spec.Name, res.Dropped)
		}
		if res.Message != nil {
			b.handleMessage(res.Message)
		}
	}
}

// addressed confirms the node and runs discovery.
func (b *Board) addressed(node uint8) {
	b.node, b.state = node, StateAddressed
	b.framer = protocol.NewFramer(node, b.sender)
	b.asm.Reset()
	b.framer.Send(protocol.ClassLottery, 0, nil)

	info := func(sub uint8, data []byte) {
		b.framer.Send(protocol.ClassInfo, sub, data)
	}
	info(protocol.InfoBoardName, []byte(b.Spec.Name))
	info(protocol.InfoVersion, []byte(b.Spec.Version))
	info(protocol.InfoDriver, []byte(b.Spec.Driver))
	info(protocol.InfoDescription, []byte(b.Spec.Description))
	if b.Spec.ID != "" {
		info(protocol.InfoBoardID, []byte(b.Spec.ID))
	}
	for _, e := range b.desc.Entries {
		if e.Kind == descriptor.KindField {
			info(protocol.InfoFieldName, []byte(e.Name))
			info(protocol.InfoFieldType, []byte{byte(e.Type)})
			info(protocol.InfoFieldAccess, []byte{byte(e.Access)})
			if len(e.SubNames) > 0 {
				info(protocol.InfoSubfieldCount, []byte{byte(len(e.SubNames))})
				info(protocol.InfoSubfieldNames, []byte(strings.Join(e.SubNames, ",")))
			}
			continue
		}
		info(protocol.InfoFuncName, []byte(e.Name))
		info(protocol.InfoFuncOutType, []byte{byte(e.OutType)})
		info(protocol.InfoFuncArgType, []byte{byte(e.Type)})
		info(protocol.InfoFuncArgCount, []byte{byte(len(e.SubNames))})
		info(protocol.InfoFuncArgNames, []byte(strings.Join(e.SubNames, ",")))
	}
	b.framer.Send(protocol.ClassInitComplete, 0, nil)
}

func (b *Board) handleMessage(msg *protocol.Message) {
	switch msg.Class {
	case protocol.ClassCommand:
		b.handleCommand(msg.SubID)
	case protocol.ClassField:
		e := b.desc.Entry(int(msg.SubID))
		if e == nil || e.Kind != descriptor.KindField || !e.Access.Writable() || !b.awake {
			return
		}
		b.values[e.Index] = msg.Data
	case protocol.ClassFunction:
		e := b.desc.Entry(int(msg.SubID))
		if e == nil || e.Kind != descriptor.KindFunction || b.state != StateOperational {
			return
		}
		var out []byte
		if call := b.Spec.Functions[e.Index-len(b.Spec.Fields)].Call; call != nil {
			out = call(msg.Data)
		}
		b.framer.Send(protocol.ClassFunction, msg.SubID, out)
	}
}

func (b *Board) handleCommand(cmd uint8) {
	switch cmd {
	case protocol.CmdKeepAlive:
		if b.Mute {
			return
		}
		var wake byte
		if b.awake {
			wake = protocol.WakeBit
		}
		b.framer.Send(protocol.ClassCommand, protocol.CmdKeepAlive, []byte{wake})
	case protocol.CmdOperational:
		b.state = StateOperational
	case protocol.CmdHold:
		b.state = StateHeld
	case protocol.CmdSleep:
		b.awake = false
	case protocol.CmdWake:
		b.awake = true
	case protocol.CmdReboot:
		b.Reset()
	}
}
