package boards

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rubi.go/pkg/can"
	"github.com/robotalks/rubi.go/pkg/protocol"
	"github.com/robotalks/rubi.go/pkg/sim"
)

func announcement(version uint16) []byte {
	data := make([]byte, protocol.LotteryAnnounceLen)
	binary.LittleEndian.PutUint16(data[2:], version)
	return data
}

func TestBusResetBroadcast(t *testing.T) {
	f := newFixture(t)
	peer := f.lb.Open()
	_, err := NewBus("second", f.lb.Open(), f.reg, BusOptions{})
	require.NoError(t, err)
	fr, ok, err := peer.Receive(time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, protocol.BroadcastID, fr.ID)
	require.Equal(t, []byte{byte(protocol.ClassCommand), protocol.CmdReboot}, fr.Payload())
}

func TestBusLotteryLowestSlot(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		spec := sim.Thermo()
		spec.ID = string(rune('a' + i))
		f.addBoard(spec)
	}
	f.settle()
	for n, b := range f.boards {
		require.Equal(t, sim.StateOperational, b.State())
		require.Equal(t, uint8(n), b.Node())
		require.Equal(t, StateOperational, f.conn(b).State())
	}
	require.Len(t, f.bus.Connections(), 3)
}

func TestBusLotteryVersionMismatch(t *testing.T) {
	f := newFixture(t)
	spec := sim.Thermo()
	spec.ProtocolVersion = protocol.ProtocolVersion + 1
	b := f.addBoard(spec)
	for i := 0; i < 10; i++ {
		f.step(100 * time.Millisecond)
	}
	require.Equal(t, sim.StateAnnounced, b.State())
	require.Empty(t, f.bus.Connections())
	require.NotEmpty(t, f.fe.warnings)

	require.NoError(t, f.bus.lottery(5, []byte{0, 0, 1}))
	require.Empty(t, f.bus.Connections())
}

func TestBusSlotReuse(t *testing.T) {
	f := newFixture(t)
	peer := f.lb.Open()
	for n := range f.bus.slots {
		c := newConnection(f.bus, uint8(n), 0)
		c.state = StateAddressed
		f.bus.slots[n] = c
	}
	err := f.bus.lottery(7, announcement(protocol.ProtocolVersion))
	require.True(t, IsConflict(err))

	referenced := f.bus.slots[4]
	referenced.dead = true
	referenced.inst = &Instance{conn: referenced.Ref()}
	stale := f.bus.slots[9]
	stale.dead = true
	staleRef := stale.Ref()

	require.NoError(t, f.bus.lottery(7, announcement(protocol.ProtocolVersion)))
	require.Nil(t, staleRef.Resolve())
	require.True(t, referenced == f.bus.Connection(4))
	c := f.bus.Connection(9)
	require.False(t, stale == c)
	require.Equal(t, uint32(1), c.gen)
	require.Equal(t, StateUnaddressed, c.State())

	var reboot, reply bool
	for {
		fr, ok, err := peer.Receive(0)
		require.NoError(t, err)
		if !ok {
			break
		}
		switch fr.ID {
		case protocol.NodeID(9):
			require.Equal(t, []byte{byte(protocol.ClassCommand), protocol.CmdReboot}, fr.Payload())
			reboot = true
		case protocol.LotteryLow + 7:
			require.Equal(t, []byte{9}, fr.Payload())
			reply = true
		}
	}
	require.True(t, reboot)
	require.True(t, reply)
}

func TestBusReclaimsUnconfirmedSlots(t *testing.T) {
	f := newFixture(t)
	peer := f.lb.Open()
	announce := func() {
		fr, err := can.NewFrame(protocol.LotteryLow+42, announcement(protocol.ProtocolVersion))
		require.NoError(t, err)
		require.NoError(t, peer.Send(fr, false))
	}

	announce()
	f.step(time.Millisecond)
	c := f.bus.Connection(0)
	require.NotNil(t, c)
	require.Equal(t, StateUnaddressed, c.State())
	for i := 1; i < DefaultDeadAfter; i++ {
		f.step(time.Second)
		require.False(t, c.IsDead())
	}
	f.step(time.Second)
	require.True(t, c.IsDead())
	require.NotEmpty(t, f.fe.warnings)

	// a board that never confirms can retry forever without exhausting the pool
	for i := 0; i < 2*protocol.MaxNodes; i++ {
		announce()
		for n := 0; n < DefaultDeadAfter; n++ {
			f.step(time.Second)
		}
	}
	require.Len(t, f.bus.Connections(), 1)
	require.Equal(t, uint8(0), f.bus.Connections()[0].Node())
	require.True(t, f.bus.Connections()[0].gen > 0)
}

func TestBusDropsUnknownFrames(t *testing.T) {
	f := newFixture(t)
	peer := f.lb.Open()
	for _, id := range []uint32{protocol.NodeID(3), 0x050, protocol.AddressedHigh + 1} {
		fr, err := can.NewFrame(id, []byte{byte(protocol.ClassField), 0})
		require.NoError(t, err)
		require.NoError(t, peer.Send(fr, false))
	}
	f.step(time.Millisecond)
	require.Len(t, f.fe.warnings, 3)
}

func TestKeepAlive(t *testing.T) {
	f := newFixture(t)
	b := f.addBoard(sim.Thermo())
	f.settle()
	c := f.conn(b)
	h := f.fe.handlers[0]

	// first round only sends a request
	f.step(time.Second)
	f.step(10 * time.Millisecond)
	require.False(t, c.IsLost())

	b.Mute = true
	f.step(time.Second)
	for i := 1; i <= 4; i++ {
		f.step(time.Second)
		require.Equal(t, i, c.MissedKeepAlives())
		require.True(t, c.IsLost())
		require.False(t, c.IsDead())
	}

	b.Mute = false
	f.step(10 * time.Millisecond)
	require.Equal(t, 0, c.MissedKeepAlives())
	require.False(t, c.IsLost())

	b.Mute = true
	for i := 0; i < 6; i++ {
		f.step(time.Second)
	}
	require.True(t, c.IsDead())
	require.Equal(t, 5, c.MissedKeepAlives())
	require.Equal(t, 1, h.lost)
	require.NotEmpty(t, f.fe.errors)
}

func TestKeepAliveWakeBit(t *testing.T) {
	f := newFixture(t)
	b := f.addBoard(sim.Thermo())
	f.settle()
	c := f.conn(b)
	require.True(t, c.IsWake())

	c.CommandSleep()
	f.step(time.Second)
	f.step(10 * time.Millisecond)
	require.False(t, b.Awake())
	require.False(t, c.IsWake())

	c.CommandWake()
	f.step(time.Second)
	f.step(10 * time.Millisecond)
	require.True(t, c.IsWake())
}
