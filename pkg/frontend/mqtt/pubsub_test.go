package mqtt

import (
	"io"
	"sync"

	"github.com/golang/protobuf/proto"
)

type memMessage struct {
	topic   string
	payload []byte
	retain  bool
}

type memSub struct {
	ps      *memPubSub
	pattern string
	handler Handler
}

// memPubSub is an in-process broker delivering synchronously.
type memPubSub struct {
	lock      sync.Mutex
	retained  map[string][]byte
	subs      []*memSub
	published []memMessage
}

func newMemPubSub() *memPubSub {
	return &memPubSub{retained: make(map[string][]byte)}
}

func (ps *memPubSub) Publish(topic string, payload []byte, retain bool) {
	ps.lock.Lock()
	ps.published = append(ps.published, memMessage{topic: topic, payload: payload, retain: retain})
	if retain {
		if len(payload) == 0 {
			delete(ps.retained, topic)
		} else {
			ps.retained[topic] = payload
		}
	}
	var handlers []Handler
	for _, sub := range ps.subs {
		if MatchTopic(topic, sub.pattern) {
			handlers = append(handlers, sub.handler)
		}
	}
	ps.lock.Unlock()
	for _, h := range handlers {
		h(topic, payload)
	}
}

func (ps *memPubSub) Subscribe(pattern string, handler Handler) io.Closer {
	sub := &memSub{ps: ps, pattern: pattern, handler: handler}
	ps.lock.Lock()
	ps.subs = append(ps.subs, sub)
	var retained []memMessage
	for topic, payload := range ps.retained {
		if MatchTopic(topic, pattern) {
			retained = append(retained, memMessage{topic: topic, payload: payload})
		}
	}
	ps.lock.Unlock()
	for _, msg := range retained {
		handler(msg.topic, msg.payload)
	}
	return sub
}

func (s *memSub) Close() error {
	s.ps.lock.Lock()
	defer s.ps.lock.Unlock()
	for n, sub := range s.ps.subs {
		if sub == s {
			s.ps.subs = append(s.ps.subs[:n], s.ps.subs[n+1:]...)
			break
		}
	}
	return nil
}

func (ps *memPubSub) publishProto(topic string, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err != nil {
		panic(err)
	}
	ps.Publish(topic, data, false)
}

func (ps *memPubSub) retainedPayload(topic string) []byte {
	ps.lock.Lock()
	defer ps.lock.Unlock()
	return ps.retained[topic]
}

// last returns the last payload published on topic.
func (ps *memPubSub) last(topic string) []byte {
	ps.lock.Lock()
	defer ps.lock.Unlock()
	for n := len(ps.published) - 1; n >= 0; n-- {
		if ps.published[n].topic == topic {
			return ps.published[n].payload
		}
	}
	return nil
}

func (ps *memPubSub) count(topic string) int {
	ps.lock.Lock()
	defer ps.lock.Unlock()
	var n int
	for _, msg := range ps.published {
		if msg.topic == topic {
			n++
		}
	}
	return n
}
