package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"

	"github.com/robotalks/rubi.go/pkg/can"
)

// FrameSender transmits one CAN frame.
// can.ErrBusy means the frame wasn't queued and should be retried later.
type FrameSender interface {
	SendFrame(f can.Frame) error
}

// SendFrameFunc is the func form of FrameSender.
type SendFrameFunc func(can.Frame) error

// SendFrame implements FrameSender.
func (f SendFrameFunc) SendFrame(frame can.Frame) error {
	return f(frame)
}

// TransportSender adapts a can.Transport to a FrameSender.
type TransportSender struct {
	Transport can.Transport
	Block     bool
}

// SendFrame implements FrameSender.
func (s *TransportSender) SendFrame(f can.Frame) error {
	return s.Transport.Send(f, s.Block)
}

// txState tracks the message currently being drained.
type txState struct {
	active    bool
	node      uint8
	class     byte
	sub       uint8
	remaining int
	block     bool
	blocks    uint32
}

// Framer encodes messages of one node into CAN frames.
// It's not safe for concurrent use.
type Framer struct {
	Node   uint8
	Sender FrameSender
	// Blocking makes Send busy-retry while the ring is full
	// instead of failing with ErrTxFull.
	Blocking bool

	ring  *Ring
	cur   txState
	frame [can.MaxDataLen]byte
}

// NewFramer creates a Framer for node with the default ring size.
func NewFramer(node uint8, sender FrameSender) *Framer {
	return &Framer{Node: node, Sender: sender, ring: NewRing(TxBufferSize)}
}

// Pending returns the number of bytes waiting in the ring.
func (f *Framer) Pending() int {
	return f.ring.Len()
}

// Idle tells whether nothing is queued or in flight.
func (f *Framer) Idle() bool {
	return !f.cur.active && f.ring.Len() == 0
}

// Send queues a message and drains as much as the sender accepts.
func (f *Framer) Send(class MsgClass, sub uint8, data []byte) error {
	if len(data) > MaxPayload {
		return ErrPayloadTooLarge
	}
	need := HeaderLen + len(data)
	for f.ring.Free() < need {
		if !f.Blocking {
			return ErrTxFull
		}
		if err := f.Flush(); err != nil {
			return err
		}
		if f.ring.Free() < need {
			runtime.Gosched()
		}
	}
	f.ring.Write([]byte{f.Node, byte(class), sub, byte(len(data))})
	f.ring.Write(data)
	return f.Flush()
}

// SendMessage is Send taking a Message.
func (f *Framer) SendMessage(msg *Message) error {
	return f.Send(msg.Class, msg.SubID, msg.Data)
}

// Flush drains the ring into frames until it's empty or the sender
// refuses a frame. Bytes of a refused frame stay in the ring.
// can.ErrBusy isn't reported, other send errors are.
func (f *Framer) Flush() error {
	for {
		if !f.cur.active {
			if f.ring.Len() < HeaderLen {
				return nil
			}
			var hdr [HeaderLen]byte
			f.ring.Peek(0, hdr[:])
			f.ring.Discard(HeaderLen)
			f.cur = txState{
				active:    true,
				node:      hdr[0],
				class:     hdr[1],
				sub:       hdr[2],
				remaining: int(hdr[3]),
				block:     hdr[3] > InlineMax,
			}
		}

		var n, consume int
		if f.cur.block && f.cur.remaining > 0 {
			consume = f.cur.remaining
			if consume > BlockMax {
				consume = BlockMax
			}
			f.frame[0] = byte(ClassBlock)
			f.ring.Peek(0, f.frame[1:1+consume])
			n = 1 + consume
		} else if f.cur.block {
			f.frame[0] = f.cur.class | FlagBlockTransfer
			f.frame[1] = f.cur.sub
			binary.LittleEndian.PutUint32(f.frame[2:], f.cur.blocks)
			n = TrailerLen
		} else {
			consume = f.cur.remaining
			f.frame[0] = f.cur.class
			f.frame[1] = f.cur.sub
			f.ring.Peek(0, f.frame[2:2+consume])
			n = 2 + consume
		}

		frame, err := can.NewFrame(NodeID(f.cur.node), f.frame[:n])
		if err == nil {
			err = f.Sender.SendFrame(frame)
		}
		if err != nil {
			if errors.Is(err, can.ErrBusy) {
				return nil
			}
			return fmt.Errorf("node %d send: %w", f.cur.node, err)
		}

		f.ring.Discard(consume)
		if f.cur.block && f.cur.remaining > 0 {
			f.cur.remaining -= consume
			f.cur.blocks++
		} else {
			f.cur.active = false
		}
	}
}

// Reset drops everything queued, including a partially sent message.
func (f *Framer) Reset() {
	f.ring.Reset()
	f.cur = txState{}
}

// FrameCount returns the number of frames a payload of n bytes takes.
func FrameCount(n int) int {
	if n <= InlineMax {
		return 1
	}
	return (n+BlockMax-1)/BlockMax + 1
}
