package mqtt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rubi.go/pkg/boards"
	"github.com/robotalks/rubi.go/pkg/can"
	"github.com/robotalks/rubi.go/pkg/descriptor"
	fx "github.com/robotalks/rubi.go/pkg/framework"
	pb "github.com/robotalks/rubi.go/pkg/proto/rubi/v1"
	"github.com/robotalks/rubi.go/pkg/sim"
)

type testEnv struct {
	t      *testing.T
	now    time.Time
	ps     *memPubSub
	fe     *Frontend
	lb     *can.LoopbackBus
	loop   *fx.Loop
	boards []*sim.Board
}

func newTestEnv(t *testing.T) *testEnv {
	e := &testEnv{
		t:   t,
		now: time.Unix(2000, 0),
		ps:  newMemPubSub(),
		lb:  can.NewLoopbackBus(),
	}
	e.fe = New(e.ps, "srv")
	e.fe.Clock = func() time.Time { return e.now }
	reg := boards.NewRegistry(e.fe)
	bus, err := boards.NewBus("sim", e.lb.Open(), reg, boards.BusOptions{})
	require.NoError(t, err)

	e.loop = fx.NewLoop()
	e.loop.Clock = e.fe.Clock
	e.loop.AddController(fx.PrLvTop, fx.ControlFunc(e.tickBoards))
	e.loop.Add(boards.NewServer(reg).AddBus(bus), e.fe)
	return e
}

func (e *testEnv) tickBoards(ctx fx.ControlContext) error {
	for _, b := range e.boards {
		if err := b.Tick(ctx.Time()); err != nil {
			return err
		}
	}
	return nil
}

func (e *testEnv) addBoard(spec sim.BoardSpec) *sim.Board {
	b := sim.NewBoard(spec, e.lb.Open(), int64(len(e.boards)+7))
	e.boards = append(e.boards, b)
	return b
}

func (e *testEnv) step(d time.Duration) {
	e.now = e.now.Add(d)
	require.NoError(e.t, e.loop.Step(context.Background()))
}

func (e *testEnv) settle() {
	for i := 0; i < 4; i++ {
		e.step(10 * time.Millisecond)
	}
}

func (e *testEnv) meta(topic string) *BoardMeta {
	payload := e.ps.retainedPayload(MetaTopic(topic))
	require.NotEmpty(e.t, payload)
	var meta BoardMeta
	require.NoError(e.t, json.Unmarshal(payload, &meta))
	return &meta
}

func (e *testEnv) status(topic string) *pb.BoardStatus {
	payload := e.ps.retainedPayload(StatusTopic(topic))
	require.NotEmpty(e.t, payload)
	var status pb.BoardStatus
	require.NoError(e.t, proto.Unmarshal(payload, &status))
	return &status
}

func (e *testEnv) logs(level pb.LogLevel) []string {
	e.ps.lock.Lock()
	defer e.ps.lock.Unlock()
	var msgs []string
	for _, msg := range e.ps.published {
		if msg.topic != LogTopic {
			continue
		}
		var entry pb.LogEntry
		require.NoError(e.t, proto.Unmarshal(msg.payload, &entry))
		if entry.Level == level {
			msgs = append(msgs, entry.Message)
		}
	}
	return msgs
}

func TestFrontendPublishesBoard(t *testing.T) {
	e := newTestEnv(t)
	b := e.addBoard(sim.Thermo())
	e.settle()

	meta := e.meta("boards/Thermo")
	require.Equal(t, "Thermo", meta.Name)
	require.Equal(t, "1.0", meta.Version)
	require.Equal(t, "sim", meta.Bus)
	require.Equal(t, 0, meta.Node)
	require.Len(t, meta.Entries, 3)
	require.Equal(t, EntryMeta{Index: 2, Name: "Heater", Kind: "field", Type: "bool", Access: "wo", Size: 1}, meta.Entries[2])

	status := e.status("boards/Thermo")
	require.Equal(t, pb.StateOnline, status.State)
	require.Equal(t, "sim", status.Bus)
	require.True(t, status.Wake)
	require.NotEmpty(t, e.logs(pb.LogLevel_INFO))

	require.NoError(t, b.Publish("Temp"))
	e.step(10 * time.Millisecond)
	var value pb.FieldValue
	require.NoError(t, proto.Unmarshal(e.ps.last("boards/Thermo/fields/Temp"), &value))
	require.Equal(t, "Temp", value.Name)
	require.Equal(t, "float", value.Type)
	require.Equal(t, []string{"21.5"}, value.Values)
	require.Equal(t, []byte{0, 0, 0xac, 0x41}, value.Raw)
	require.Equal(t, e.now.UnixNano(), value.Timestamp)

	e.fe.Announce()
	var server ServerMeta
	require.NoError(t, json.Unmarshal(e.ps.retainedPayload(ServerMetaTopic), &server))
	require.Equal(t, "srv", server.ID)
}

func TestFrontendRequests(t *testing.T) {
	e := newTestEnv(t)
	b := e.addBoard(sim.Thermo())
	e.settle()

	e.ps.publishProto(SetTopic("boards/Thermo", "Target"), &pb.FieldValue{Values: []string{"30"}})
	e.ps.publishProto(SetTopic("boards/Thermo", "Heater"), &pb.FieldValue{Raw: []byte{1}})
	e.step(10 * time.Millisecond)
	e.step(10 * time.Millisecond)
	require.Equal(t, []byte{30, 0, 0, 0}, b.Value("Target"))
	require.Equal(t, []byte{1}, b.Value("Heater"))

	e.ps.publishProto(SetTopic("boards/Thermo", "Temp"), &pb.FieldValue{Values: []string{"1"}})
	e.ps.publishProto(SetTopic("boards/Thermo", "Nope"), &pb.FieldValue{Values: []string{"1"}})
	e.ps.publishProto(SetTopic("boards/Thermo", "Target"), &pb.FieldValue{Values: []string{"1", "2"}})
	e.step(10 * time.Millisecond)
	warnings := strings.Join(e.logs(pb.LogLevel_WARNING), "\n")
	require.Contains(t, warnings, "not writable")
	require.Contains(t, warnings, "Nope")
	require.Contains(t, warnings, "Target")
	require.Equal(t, []byte{30, 0, 0, 0}, b.Value("Target"))

	e.ps.publishProto(CmdTopic("boards/Thermo"), &pb.Command{Kind: pb.CommandKind_SLEEP})
	e.step(10 * time.Millisecond)
	e.step(10 * time.Millisecond)
	require.False(t, b.Awake())
	e.ps.publishProto(CmdTopic("boards/Thermo"), &pb.Command{Kind: pb.CommandKind_WAKE})
	e.step(10 * time.Millisecond)
	e.step(10 * time.Millisecond)
	require.True(t, b.Awake())
}

func TestFrontendBusLoad(t *testing.T) {
	e := newTestEnv(t)
	e.addBoard(sim.Thermo())
	e.settle()
	for i := 0; i < 4; i++ {
		e.step(time.Second)
	}
	var load pb.BusLoad
	require.NoError(t, proto.Unmarshal(e.ps.last(BusLoadTopic("sim")), &load))
	require.Equal(t, "sim", load.Bus)
	require.True(t, load.BytesPerSecond > 0)
}

func TestFrontendPromotesOnLoss(t *testing.T) {
	e := newTestEnv(t)
	first := e.addBoard(sim.Thermo())
	second := e.addBoard(sim.Thermo())
	e.settle()
	require.Equal(t, 0, e.meta("boards/Thermo").Node)

	first.Mute = true
	for i := 0; i < 8; i++ {
		e.step(time.Second)
	}
	status := e.status("boards/Thermo")
	require.Equal(t, pb.StateReplaced, status.State)
	require.Equal(t, uint32(1), status.Node)
	require.Equal(t, 1, e.meta("boards/Thermo").Node)
	e.step(10 * time.Millisecond)
	require.Equal(t, sim.StateOperational, second.State())
}

func TestFrontendShutdown(t *testing.T) {
	e := newTestEnv(t)
	b := e.addBoard(sim.Thermo())
	e.settle()
	require.NoError(t, b.Leave())
	e.step(10 * time.Millisecond)
	require.Equal(t, pb.StateShutdown, e.status("boards/Thermo").State)

	e.ps.publishProto(CmdTopic("boards/Thermo"), &pb.Command{Kind: pb.CommandKind_WAKE})
	e.step(10 * time.Millisecond)
	require.Contains(t, strings.Join(e.logs(pb.LogLevel_WARNING), "\n"), ErrNoConnection.Error())
}

func adderFunction() sim.FunctionSpec {
	return sim.FunctionSpec{
		Name:     "Add",
		ArgType:  descriptor.TypeInt16,
		ArgNames: []string{"a", "b"},
		OutType:  descriptor.TypeInt32,
		Call: func(args []byte) []byte {
			sum := int32(int16(binary.LittleEndian.Uint16(args))) + int32(int16(binary.LittleEndian.Uint16(args[2:])))
			out := make([]byte, 4)
			binary.LittleEndian.PutUint32(out, uint32(sum))
			return out
		},
	}
}

func TestConnector(t *testing.T) {
	e := newTestEnv(t)
	spec := sim.BoardSpec{
		Name:    "Adder",
		Version: "0.1",
		ID:      "a1",
		Fields: []sim.FieldSpec{
			{Name: "Offset", TypeName: "int16", Mode: "rw", Values: []string{"0"}},
		},
		Functions: []sim.FunctionSpec{adderFunction()},
	}
	require.NoError(t, spec.Resolve())
	e.addBoard(spec)
	e.loop.Clock = nil
	e.fe.Clock = nil
	e.loop.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.loop.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	c := NewConnectorWith(e.ps)
	c.DiscoverTimeout = 20 * time.Millisecond
	var metas []*BoardMeta
	for i := 0; i < 100 && len(metas) == 0; i++ {
		var err error
		metas, err = c.Discover(context.Background())
		require.NoError(t, err)
	}
	require.Len(t, metas, 1)
	meta := metas[0]
	require.Equal(t, "Adder:a1", meta.InstanceName())
	require.Equal(t, "boards/Adder/a1", meta.Topic())

	callCtx, callCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer callCancel()
	result, err := c.Call(callCtx, meta, "Add", []string{"2", "40"})
	require.NoError(t, err)
	require.Equal(t, []string{"42"}, result.Values)

	_, err = c.Call(callCtx, meta, "Offset", nil)
	require.Error(t, err)
	require.Error(t, c.Set(meta, "Add", []string{"1"}))
	require.NoError(t, c.Set(meta, "Offset", []string{"5"}))
	require.NoError(t, c.Command(meta, pb.CommandKind_SLEEP))
}
