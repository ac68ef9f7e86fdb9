package logfe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rubi.go/pkg/boards"
	"github.com/robotalks/rubi.go/pkg/can"
	"github.com/robotalks/rubi.go/pkg/sim"
)

func TestFrontend(t *testing.T) {
	fe := New()
	reg := boards.NewRegistry(fe)
	lb := can.NewLoopbackBus()
	bus, err := boards.NewBus("loop", lb.Open(), reg, boards.BusOptions{})
	require.NoError(t, err)
	first := sim.NewBoard(sim.Thermo(), lb.Open(), 1)
	second := sim.NewBoard(sim.Thermo(), lb.Open(), 2)

	now := time.Unix(0, 0)
	step := func(d time.Duration) {
		now = now.Add(d)
		require.NoError(t, first.Tick(now))
		require.NoError(t, second.Tick(now))
		require.NoError(t, bus.Tick(now))
	}
	for i := 0; i < 4; i++ {
		step(10 * time.Millisecond)
	}
	insts := fe.Boards()
	require.Len(t, insts, 1)
	inst := insts[0]

	require.NoError(t, first.Publish("Temp"))
	step(10 * time.Millisecond)
	require.Equal(t, []string{"21.5"}, fe.Last(inst, "Temp"))
	require.Nil(t, fe.Last(inst, "Target"))

	first.Mute = true
	for i := 0; i < 8; i++ {
		step(time.Second)
	}
	require.Equal(t, second.Node(), inst.Connection().Node())
	step(10 * time.Millisecond)
	require.Equal(t, sim.StateOperational, second.State())
}
