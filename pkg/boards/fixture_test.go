package boards

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rubi.go/pkg/can"
	"github.com/robotalks/rubi.go/pkg/sim"
)

type fieldData struct {
	index int
	data  []byte
}

type recordingHandler struct {
	inst     *Instance
	data     []fieldData
	replaced []*Connection
	shutdown int
	lost     int
}

func (h *recordingHandler) FieldDataInbound(index int, data []byte) {
	h.data = append(h.data, fieldData{index: index, data: data})
}

func (h *recordingHandler) ReplaceBackend(c *Connection) {
	h.replaced = append(h.replaced, c)
}

func (h *recordingHandler) Shutdown()       { h.shutdown++ }
func (h *recordingHandler) ConnectionLost() { h.lost++ }

type recordingFrontend struct {
	infos    []string
	warnings []string
	errors   []string
	handlers []*recordingHandler
	loads    [][]BusLoad
}

func (f *recordingFrontend) LogInfo(msg string)    { f.infos = append(f.infos, msg) }
func (f *recordingFrontend) LogWarning(msg string) { f.warnings = append(f.warnings, msg) }
func (f *recordingFrontend) LogError(msg string)   { f.errors = append(f.errors, msg) }

func (f *recordingFrontend) NewBoard(inst *Instance) BoardHandler {
	h := &recordingHandler{inst: inst}
	f.handlers = append(f.handlers, h)
	return h
}

func (f *recordingFrontend) ReportBusLoad(loads []BusLoad) {
	f.loads = append(f.loads, loads)
}

func (f *recordingFrontend) handler(inst *Instance) *recordingHandler {
	for _, h := range f.handlers {
		if h.inst == inst {
			return h
		}
	}
	return nil
}

type fixture struct {
	t      *testing.T
	lb     *can.LoopbackBus
	fe     *recordingFrontend
	reg    *Registry
	bus    *Bus
	boards []*sim.Board
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		t:   t,
		lb:  can.NewLoopbackBus(),
		fe:  &recordingFrontend{},
		now: time.Unix(1000, 0),
	}
	f.reg = NewRegistry(f.fe)
	bus, err := NewBus("test", f.lb.Open(), f.reg, BusOptions{})
	require.NoError(t, err)
	f.bus = bus
	return f
}

func (f *fixture) addBoard(spec sim.BoardSpec) *sim.Board {
	b := sim.NewBoard(spec, f.lb.Open(), int64(len(f.boards)+1))
	f.boards = append(f.boards, b)
	return b
}

func (f *fixture) tryStep(d time.Duration) error {
	f.now = f.now.Add(d)
	for _, b := range f.boards {
		require.NoError(f.t, b.Tick(f.now))
	}
	return f.bus.Tick(f.now)
}

func (f *fixture) step(d time.Duration) {
	require.NoError(f.t, f.tryStep(d))
}

// settle runs enough short steps for discovery to complete.
func (f *fixture) settle() {
	for i := 0; i < 4; i++ {
		f.step(10 * time.Millisecond)
	}
}

// conn returns the connection serving the board.
func (f *fixture) conn(b *sim.Board) *Connection {
	c := f.bus.Connection(b.Node())
	require.NotNil(f.t, c)
	return c
}
