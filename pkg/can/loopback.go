package can

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultLoopbackQueueLen is the receive queue length of a loopback endpoint.
const DefaultLoopbackQueueLen = 1024

// LoopbackBus is an in-memory CAN bus for tests and simulations.
// Multiple endpoints opened from the same bus exchange frames;
// a sender never receives its own frames.
type LoopbackBus struct {
	QueueLen int

	mu        sync.RWMutex
	closed    bool
	endpoints map[*loopEndpoint]struct{}
}

// NewLoopbackBus creates a new loopback bus.
func NewLoopbackBus() *LoopbackBus {
	return &LoopbackBus{
		QueueLen:  DefaultLoopbackQueueLen,
		endpoints: make(map[*loopEndpoint]struct{}),
	}
}

// Open creates a new endpoint attached to the bus.
func (b *LoopbackBus) Open() Transport {
	qlen := b.QueueLen
	if qlen <= 0 {
		qlen = DefaultLoopbackQueueLen
	}
	ep := &loopEndpoint{
		bus:    b,
		ch:     make(chan Frame, qlen),
		closed: make(chan struct{}),
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ep.closed)
		return ep
	}
	b.endpoints[ep] = struct{}{}
	b.mu.Unlock()
	return ep
}

// Close closes the bus and detaches all endpoints.
func (b *LoopbackBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for ep := range b.endpoints {
		ep.closeOnce()
	}
	b.endpoints = nil
	b.mu.Unlock()
	return nil
}

type loopEndpoint struct {
	Counters

	bus     *LoopbackBus
	ch      chan Frame
	once    sync.Once
	closed  chan struct{}
	overrun uint64
}

func (e *loopEndpoint) closeOnce() {
	e.once.Do(func() { close(e.closed) })
}

func (e *loopEndpoint) isClosed() bool {
	select {
	case <-e.closed:
		return true
	default:
		return false
	}
}

// Send delivers the frame to all other endpoints on the same bus.
// A receiver with a full queue loses the frame unless block is set,
// the same as a controller overrun on a real bus.
func (e *loopEndpoint) Send(f Frame, block bool) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if e.isClosed() {
		return ErrClosed
	}
	e.bus.mu.RLock()
	if e.bus.closed {
		e.bus.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*loopEndpoint, 0, len(e.bus.endpoints))
	for ep := range e.bus.endpoints {
		if ep != e {
			targets = append(targets, ep)
		}
	}
	e.bus.mu.RUnlock()

	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	for _, t := range targets {
		if block {
			select {
			case t.ch <- f:
			case <-t.closed:
			}
			continue
		}
		select {
		case t.ch <- f:
		default:
			atomic.AddUint64(&t.overrun, 1)
		}
	}
	e.CountSent(int(f.Len))
	return nil
}

// Receive implements Transport.
func (e *loopEndpoint) Receive(timeout time.Duration) (Frame, bool, error) {
	if timeout <= 0 {
		select {
		case f := <-e.ch:
			e.CountReceived(int(f.Len))
			return f, true, nil
		case <-e.closed:
			return Frame{}, false, ErrClosed
		default:
			return Frame{}, false, nil
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-e.ch:
		e.CountReceived(int(f.Len))
		return f, true, nil
	case <-e.closed:
		return Frame{}, false, ErrClosed
	case <-timer.C:
		return Frame{}, false, nil
	}
}

// Overruns reports the number of frames this endpoint lost to a full queue.
func (e *loopEndpoint) Overruns() uint64 {
	return atomic.LoadUint64(&e.overrun)
}

// Close detaches the endpoint from the bus.
func (e *loopEndpoint) Close() error {
	e.bus.mu.Lock()
	if e.bus.endpoints != nil {
		delete(e.bus.endpoints, e)
	}
	e.bus.mu.Unlock()
	e.closeOnce()
	return nil
}
