package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/rubi.go/pkg/boards"
	"github.com/robotalks/rubi.go/pkg/descriptor"
	fx "github.com/robotalks/rubi.go/pkg/framework"
	pb "github.com/robotalks/rubi.go/pkg/proto/rubi/v1"
)

// ErrNoConnection is returned for requests to a board nothing serves.
var ErrNoConnection = errors.New("board has no connection")

// Frontend implements boards.Frontend on a PubSub. Requests arriving
// from the broker are posted into the loop and applied by Control, so
// board state is only touched on the loop goroutine.
type Frontend struct {
	Server string
	Buses  []string
	// Clock stamps outgoing payloads, time.Now if nil.
	Clock func() time.Time

	pubsub PubSub
	loop   fx.LoopControl
	boards []*boardHandler
}

// New creates a Frontend publishing through ps.
func New(ps PubSub, server string) *Frontend {
	return &Frontend{Server: server, pubsub: ps}
}

// NewFromURL connects a Frontend to a broker. The returned Queue
// runs with the loop and clears the server meta when stopped or
// when the connection drops.
func NewFromURL(brokerURL, server string, buses []string) (*Frontend, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(prefix+ServerMetaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("rubi:" + server)
	}
	q := NewQueue(opts, prefix)
	f := New(q, server)
	f.Buses = buses
	q.OnConnect = func(*Queue) { f.Announce() }
	q.OnStop = func(q *Queue) { q.Publish(ServerMetaTopic, nil, true) }
	return f, nil
}

// Announce publishes the retained server meta.
func (f *Frontend) Announce() {
	meta, err := json.Marshal(&ServerMeta{ID: f.Server, Buses: f.Buses})
	if err != nil {
		panic(err)
	}
	f.pubsub.Publish(ServerMetaTopic, meta, true)
}

// AddToLoop implements fx.LoopAdder.
func (f *Frontend) AddToLoop(loop *fx.Loop) {
	f.loop = loop
	loop.AddController(fx.PrLvControl, f)
	if r, ok := f.pubsub.(fx.Runnable); ok {
		loop.AddRunnable(fx.NamedRun("mqtt", r))
	}
}

// Control implements fx.Controller by applying queued requests.
func (f *Frontend) Control(ctx fx.ControlContext) error {
	ctx.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		req, ok := mc.CurrentMessage().(request)
		if !ok {
			return
		}
		mc.MessageTaken()
		if err := req.apply(); err != nil {
			f.LogWarning(err.Error())
		}
	}))
	return nil
}

func (f *Frontend) now() time.Time {
	if f.Clock != nil {
		return f.Clock()
	}
	return time.Now()
}

func (f *Frontend) post(req request) {
	if f.loop == nil {
		glog.Warningf("request dropped, frontend isn't in a loop")
		return
	}
	f.loop.PostMessage(req)
	f.loop.TriggerNext()
}

func (f *Frontend) publishProto(topic string, msg proto.Message, retain bool) {
	data, err := proto.Marshal(msg)
	if err != nil {
		glog.Errorf("marshal %T: %v", msg, err)
		return
	}
	f.pubsub.Publish(topic, data, retain)
}

func (f *Frontend) log(level pb.LogLevel, msg string) {
	f.publishProto(LogTopic, &pb.LogEntry{
		Level:     level,
		Message:   msg,
		Server:    f.Server,
		Timestamp: f.now().UnixNano(),
	}, false)
}

// LogInfo implements boards.Logger.
func (f *Frontend) LogInfo(msg string) {
	glog.Info(msg)
	f.log(pb.LogLevel_INFO, msg)
}

// LogWarning implements boards.Logger.
func (f *Frontend) LogWarning(msg string) {
	glog.Warning(msg)
	f.log(pb.LogLevel_WARNING, msg)
}

// LogError implements boards.Logger.
func (f *Frontend) LogError(msg string) {
	glog.Error(msg)
	f.log(pb.LogLevel_ERROR, msg)
}

// ReportBusLoad implements boards.Frontend.
func (f *Frontend) ReportBusLoad(loads []boards.BusLoad) {
	ts := f.now().UnixNano()
	for _, load := range loads {
		f.publishProto(BusLoadTopic(load.Bus), &pb.BusLoad{
			Bus:            load.Bus,
			BytesPerSecond: load.BytesPerSecond,
			Timestamp:      ts,
		}, false)
	}
}

// NewBoard implements boards.Frontend.
func (f *Frontend) NewBoard(inst *boards.Instance) boards.BoardHandler {
	h := &boardHandler{
		fe:    f,
		inst:  inst,
		topic: BoardTopic(inst.Descriptor.Name, inst.ID),
	}
	h.subs = []io.Closer{
		f.pubsub.Subscribe(SetTopic(h.topic, "+"), h.onSet),
		f.pubsub.Subscribe(CallTopic(h.topic, "+"), h.onCall),
		f.pubsub.Subscribe(CmdTopic(h.topic), h.onCmd),
	}
	f.boards = append(f.boards, h)
	h.publishMeta()
	h.publishStatus(pb.StateOnline)
	return h
}

// Close removes all request subscriptions.
func (f *Frontend) Close() error {
	for _, h := range f.boards {
		for _, sub := range h.subs {
			sub.Close()
		}
	}
	f.boards = nil
	return nil
}

type boardHandler struct {
	fe    *Frontend
	inst  *boards.Instance
	topic string
	subs  []io.Closer
}

func (h *boardHandler) publishMeta() {
	meta, err := json.Marshal(NewBoardMeta(h.inst))
	if err != nil {
		panic(err)
	}
	h.fe.pubsub.Publish(MetaTopic(h.topic), meta, true)
}

func (h *boardHandler) publishStatus(state string) {
	status := &pb.BoardStatus{
		Board: h.inst.Descriptor.Name,
		Id:    h.inst.ID,
		State: state,
	}
	if c := h.inst.Connection(); c != nil {
		status.Bus, status.Node, status.Wake = c.Bus().Name, uint32(c.Node()), c.IsWake()
	}
	h.fe.publishProto(StatusTopic(h.topic), status, true)
}

// FieldDataInbound implements boards.BoardHandler.
func (h *boardHandler) FieldDataInbound(index int, data []byte) {
	e := h.inst.Descriptor.Entry(index)
	if e == nil {
		return
	}
	value := &pb.FieldValue{
		Board:     h.inst.Descriptor.Name,
		Id:        h.inst.ID,
		Name:      e.Name,
		Index:     uint32(e.Index),
		Raw:       data,
		Timestamp: h.fe.now().UnixNano(),
	}
	var err error
	topic := FieldTopic(h.topic, e.Name)
	if e.Kind == descriptor.KindField {
		value.Type = e.Type.String()
		value.Values, err = e.DecodeValues(data)
	} else {
		topic = FunctionTopic(h.topic, e.Name)
		value.Type = e.OutType.String()
		value.Values, err = e.DecodeOutput(data)
	}
	if err != nil {
		h.fe.LogWarning(fmt.Sprintf("Board %s: %s: %v", h.inst, e.Name, err))
	}
	h.fe.publishProto(topic, value, false)
}

// ReplaceBackend implements boards.BoardHandler.
func (h *boardHandler) ReplaceBackend(*boards.Connection) {
	h.publishMeta()
	h.publishStatus(pb.StateReplaced)
}

// Shutdown implements boards.BoardHandler.
func (h *boardHandler) Shutdown() {
	h.publishStatus(pb.StateShutdown)
}

// ConnectionLost implements boards.BoardHandler. A parked connection
// of the same board takes over when there's one.
func (h *boardHandler) ConnectionLost() {
	h.publishStatus(pb.StateLost)
	if h.inst.Reresolve() == nil {
		h.fe.LogWarning(fmt.Sprintf("No replacement for board %s", h.inst))
	}
}

func (h *boardHandler) onSet(topic string, payload []byte) {
	h.onRequest(topic, payload, descriptor.KindField)
}

func (h *boardHandler) onCall(topic string, payload []byte) {
	h.onRequest(topic, payload, descriptor.KindFunction)
}

func (h *boardHandler) onRequest(topic string, payload []byte, kind descriptor.Kind) {
	p := ParseTopic(topic)
	var value pb.FieldValue
	if err := proto.Unmarshal(payload, &value); err != nil {
		glog.Warningf("%s: bad payload: %v", topic, err)
		return
	}
	h.fe.post(&entryRequest{h: h, kind: kind, name: p.Member, value: &value})
}

func (h *boardHandler) onCmd(topic string, payload []byte) {
	var cmd pb.Command
	if err := proto.Unmarshal(payload, &cmd); err != nil {
		glog.Warningf("%s: bad payload: %v", topic, err)
		return
	}
	h.fe.post(&commandRequest{h: h, kind: cmd.Kind})
}
