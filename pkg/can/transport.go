package can

import (
	"errors"
	"sync/atomic"
	"time"
)

var (
	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("can: closed")
	// ErrBusy is returned by a non-blocking Send when the frame can't be queued now.
	ErrBusy = errors.New("can: transmit queue full")
	// ErrInterfaceDown indicates the network interface isn't up.
	ErrInterfaceDown = errors.New("can: link is down")
)

// Transport is a raw CAN bus endpoint.
// It's used from a single goroutine, except Close.
type Transport interface {
	// Send transmits a frame. When block is false, ErrBusy is returned
	// if the frame can't be queued immediately. When block is true, Send
	// retries until the frame is queued.
	Send(f Frame, block bool) error
	// Receive polls for the next frame for at most timeout.
	// ok is false if no frame arrived in time.
	Receive(timeout time.Duration) (f Frame, ok bool, err error)
	// TotalBytesSent is the monotonic count of payload bytes sent.
	TotalBytesSent() uint64
	// TotalBytesReceived is the monotonic count of payload bytes received.
	TotalBytesReceived() uint64
	// Close releases the endpoint.
	Close() error
}

// Counters tracks traffic for Transport implementations.
type Counters struct {
	sent uint64
	recv uint64
}

// CountSent adds n sent bytes.
func (c *Counters) CountSent(n int) {
	atomic.AddUint64(&c.sent, uint64(n))
}

// CountReceived adds n received bytes.
func (c *Counters) CountReceived(n int) {
	atomic.AddUint64(&c.recv, uint64(n))
}

// TotalBytesSent implements Transport.
func (c *Counters) TotalBytesSent() uint64 {
	return atomic.LoadUint64(&c.sent)
}

// TotalBytesReceived implements Transport.
func (c *Counters) TotalBytesReceived() uint64 {
	return atomic.LoadUint64(&c.recv)
}
