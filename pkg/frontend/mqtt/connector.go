package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"

	pb "github.com/robotalks/rubi.go/pkg/proto/rubi/v1"
)

// DefaultDiscoverTimeout is how long Discover collects retained metas.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Connector drives boards exposed by a server through the broker.
type Connector struct {
	DiscoverTimeout time.Duration

	pubsub PubSub
}

// NewConnector creates a Connector and its unconnected Queue.
func NewConnector(brokerURL string) (*Connector, *Queue, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, nil, err
	}
	q := NewQueue(opts, prefix)
	return NewConnectorWith(q), q, nil
}

// NewConnectorWith creates a Connector on an existing PubSub.
func NewConnectorWith(ps PubSub) *Connector {
	return &Connector{DiscoverTimeout: DefaultDiscoverTimeout, pubsub: ps}
}

// Discover collects the metas of all online boards, ordered by name.
func (c *Connector) Discover(ctx context.Context) ([]*BoardMeta, error) {
	var lock sync.Mutex
	found := make(map[string]*BoardMeta)
	sub := c.pubsub.Subscribe(BoardsRoot+"/#", func(topic string, payload []byte) {
		if ParseTopic(topic).Kind != TopicMeta {
			return
		}
		lock.Lock()
		defer lock.Unlock()
		if len(payload) == 0 {
			delete(found, topic)
			return
		}
		var meta BoardMeta
		if err := json.Unmarshal(payload, &meta); err == nil {
			found[topic] = &meta
		}
	})
	defer sub.Close()

	timeout := c.DiscoverTimeout
	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}
	select {
	case <-time.After(timeout):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	lock.Lock()
	defer lock.Unlock()
	metas := make([]*BoardMeta, 0, len(found))
	for _, meta := range found {
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].InstanceName() < metas[j].InstanceName()
	})
	return metas, nil
}

// Watch calls fn with every field value and function result of a board
// until the returned Closer is closed.
func (c *Connector) Watch(board *BoardMeta, fn func(*pb.FieldValue)) io.Closer {
	handler := func(topic string, payload []byte) {
		var value pb.FieldValue
		if err := proto.Unmarshal(payload, &value); err == nil {
			fn(&value)
		}
	}
	return &closers{
		c.pubsub.Subscribe(FieldTopic(board.Topic(), "+"), handler),
		c.pubsub.Subscribe(FunctionTopic(board.Topic(), "+"), handler),
	}
}

// Get waits for the next value of a field.
func (c *Connector) Get(ctx context.Context, board *BoardMeta, field string) (*pb.FieldValue, error) {
	if e := board.Entry(field); e == nil || e.Kind != "field" {
		return nil, fmt.Errorf("%s has no field %s", board.InstanceName(), field)
	}
	return c.next(ctx, FieldTopic(board.Topic(), field), nil)
}

// Set writes a field with values in text form.
func (c *Connector) Set(board *BoardMeta, field string, values []string) error {
	e := board.Entry(field)
	if e == nil || e.Kind != "field" {
		return fmt.Errorf("%s has no field %s", board.InstanceName(), field)
	}
	return c.publish(SetTopic(board.Topic(), field), &pb.FieldValue{Name: field, Values: values})
}

// Call invokes a function and waits for its result.
func (c *Connector) Call(ctx context.Context, board *BoardMeta, fn string, args []string) (*pb.FieldValue, error) {
	e := board.Entry(fn)
	if e == nil || e.Kind != "function" {
		return nil, fmt.Errorf("%s has no function %s", board.InstanceName(), fn)
	}
	return c.next(ctx, FunctionTopic(board.Topic(), fn), func() error {
		return c.publish(CallTopic(board.Topic(), fn), &pb.FieldValue{Name: fn, Values: args})
	})
}

// Command sends a power command.
func (c *Connector) Command(board *BoardMeta, kind pb.CommandKind) error {
	return c.publish(CmdTopic(board.Topic()), &pb.Command{Kind: kind})
}

func (c *Connector) publish(topic string, msg proto.Message) error {
	data, err := proto.Marshal(msg)
	if err != nil {
		return err
	}
	c.pubsub.Publish(topic, data, false)
	return nil
}

// next subscribes topic, runs trigger and waits for the first value.
func (c *Connector) next(ctx context.Context, topic string, trigger func() error) (*pb.FieldValue, error) {
	ch := make(chan *pb.FieldValue, 1)
	sub := c.pubsub.Subscribe(topic, func(_ string, payload []byte) {
		var value pb.FieldValue
		if err := proto.Unmarshal(payload, &value); err != nil {
			return
		}
		select {
		case ch <- &value:
		default:
		}
	})
	defer sub.Close()
	if trigger != nil {
		if err := trigger(); err != nil {
			return nil, err
		}
	}
	select {
	case value := <-ch:
		return value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type closers []io.Closer

func (c *closers) Close() error {
	for _, closer := range *c {
		closer.Close()
	}
	return nil
}
