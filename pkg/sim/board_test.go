package sim

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rubi.go/pkg/can"
	"github.com/robotalks/rubi.go/pkg/descriptor"
	"github.com/robotalks/rubi.go/pkg/protocol"
)

type hostEnd struct {
	t  *testing.T
	tp can.Transport
}

func (h *hostEnd) recv() can.Frame {
	f, ok, err := h.tp.Receive(time.Second)
	require.NoError(h.t, err)
	require.True(h.t, ok)
	return f
}

func (h *hostEnd) send(id uint32, data ...byte) {
	f, err := can.NewFrame(id, data)
	require.NoError(h.t, err)
	require.NoError(h.t, h.tp.Send(f, false))
}

func (h *hostEnd) messages(node uint8) (msgs []*protocol.Message) {
	var asm protocol.Reassembler
	for {
		f, ok, err := h.tp.Receive(0)
		require.NoError(h.t, err)
		if !ok {
			return
		}
		require.Equal(h.t, protocol.NodeID(node), f.ID)
		res := asm.Feed(f.Payload())
		require.NoError(h.t, res.Dropped)
		if res.Message != nil {
			msgs = append(msgs, res.Message)
		}
	}
}

func TestBoardDiscovery(t *testing.T) {
	bus := can.NewLoopbackBus()
	host := &hostEnd{t: t, tp: bus.Open()}
	spec := Thermo()
	spec.ID = "t1"
	b := NewBoard(spec, bus.Open(), 1)
	now := time.Unix(100, 0)

	require.NoError(t, b.Tick(now))
	require.Equal(t, StateAnnounced, b.State())
	ann := host.recv()
	require.True(t, protocol.IsLottery(ann.ID))
	require.Equal(t, 4, int(ann.Len))
	require.Equal(t, protocol.ProtocolVersion, binary.LittleEndian.Uint16(ann.Data[2:]))

	host.send(ann.ID, 3)
	require.NoError(t, b.Tick(now))
	require.Equal(t, StateAddressed, b.State())
	require.Equal(t, uint8(3), b.Node())

	msgs := host.messages(3)
	require.Equal(t, protocol.ClassLottery, msgs[0].Class)
	require.Equal(t, protocol.ClassInitComplete, msgs[len(msgs)-1].Class)

	d := &descriptor.Descriptor{}
	var id string
	for _, m := range msgs[1 : len(msgs)-1] {
		require.Equal(t, protocol.ClassInfo, m.Class)
		if m.SubID == protocol.InfoBoardID {
			id = string(m.Data)
			continue
		}
		require.NoError(t, d.Apply(m.SubID, m.Data))
	}
	require.Equal(t, "t1", id)
	require.True(t, d.Equal(spec.Descriptor()))

	host.send(protocol.NodeID(3), byte(protocol.ClassCommand), protocol.CmdOperational)
	host.send(protocol.NodeID(3), byte(protocol.ClassCommand), protocol.CmdKeepAlive)
	require.NoError(t, b.Tick(now))
	require.Equal(t, StateOperational, b.State())
	msgs = host.messages(3)
	require.Len(t, msgs, 1)
	require.Equal(t, []byte{protocol.WakeBit}, msgs[0].Data)
}

func TestBoardCommands(t *testing.T) {
	bus := can.NewLoopbackBus()
	host := &hostEnd{t: t, tp: bus.Open()}
	b := NewBoard(Thermo(), bus.Open(), 2)
	b.Spec.PublishInterval = time.Second
	now := time.Unix(100, 0)
	require.NoError(t, b.Tick(now))
	ann := host.recv()
	host.send(ann.ID, 0)
	require.NoError(t, b.Tick(now))
	host.messages(0)

	node := protocol.NodeID(0)
	host.send(node, byte(protocol.ClassCommand), protocol.CmdOperational)
	host.send(node, byte(protocol.ClassField), 1, 30, 0, 0, 0)
	host.send(node, byte(protocol.ClassField), 0, 1, 1, 1, 1)
	host.send(node, byte(protocol.ClassCommand), protocol.CmdSleep)
	host.send(node, byte(protocol.ClassField), 2, 1)
	require.NoError(t, b.Tick(now))
	require.Equal(t, []byte{30, 0, 0, 0}, b.Value("Target"))
	require.Equal(t, []byte{0, 0, 0xac, 0x41}, b.Value("Temp"), "read-only field not written")
	require.Equal(t, []byte{0}, b.Value("Heater"), "asleep board ignores writes")
	require.False(t, b.Awake())
	require.Empty(t, host.messages(0), "asleep board doesn't publish")

	host.send(node, byte(protocol.ClassCommand), protocol.CmdWake)
	require.NoError(t, b.Tick(now.Add(time.Second)))
	msgs := host.messages(0)
	require.Len(t, msgs, 2, "Temp and Target are readable")
	require.Equal(t, uint8(0), msgs[0].SubID)
	require.Equal(t, uint8(1), msgs[1].SubID)

	host.send(protocol.BroadcastID, byte(protocol.ClassCommand), protocol.CmdReboot)
	require.NoError(t, b.Tick(now))
	require.Equal(t, StateAnnounced, b.State())
	require.Equal(t, 1, b.Resets())
}

func TestSpecResolve(t *testing.T) {
	spec := BoardSpec{
		Name:    "Cfg",
		Publish: "250ms",
		Fields: []FieldSpec{
			{Name: "A", TypeName: "uint16", Mode: "rw", SubNames: []string{"x", "y"}},
		},
	}
	require.NoError(t, spec.Resolve())
	require.Equal(t, descriptor.TypeUint16, spec.Fields[0].Type)
	require.Equal(t, descriptor.AccessReadWrite, spec.Fields[0].Access)
	require.Equal(t, 250*time.Millisecond, spec.PublishInterval)
	require.Equal(t, 4, spec.Descriptor().Entries[0].Size())

	spec.Fields[0].Mode = "x"
	require.Error(t, spec.Resolve())
}
