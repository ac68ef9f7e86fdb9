package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DecodeResult is the outcome of feeding one frame.
// Both fields may be set: an inline message can end an unfinished
// block transfer, which is then reported in Dropped.
type DecodeResult struct {
	Message *Message
	Dropped error
}

// Reassembler decodes the frames of one node into messages.
type Reassembler struct {
	buf      [MaxPayload]byte
	size     int
	blocks   uint32
	overflow bool
}

// Pending tells whether a block transfer is in progress.
func (r *Reassembler) Pending() bool {
	return r.blocks > 0
}

// Reset drops a partially received transfer.
func (r *Reassembler) Reset() {
	r.size, r.blocks, r.overflow = 0, 0, false
}

// Feed consumes the payload of one frame.
func (r *Reassembler) Feed(data []byte) (res DecodeResult) {
	if len(data) < 1 {
		res.Dropped = ErrShortFrame
		return
	}
	if MsgClass(data[0]&ClassMask) == ClassBlock {
		if len(data) < 2 {
			res.Dropped = ErrShortFrame
			return
		}
		chunk := data[1:]
		if r.size+len(chunk) > MaxPayload {
			r.overflow = true
		} else {
			r.size += copy(r.buf[r.size:], chunk)
		}
		r.blocks++
		return
	}

	if len(data) < 2 {
		res.Dropped = ErrShortFrame
		return
	}
	class, sub := MsgClass(data[0]&ClassMask), data[1]

	if data[0]&FlagBlockTransfer != 0 {
		res.Dropped = r.finish(data[2:])
		if res.Dropped == nil {
			if !class.IsValid() {
				res.Dropped = &ClassError{Class: class}
			} else {
				res.Message = &Message{Class: class, SubID: sub, Data: append([]byte{}, r.buf[:r.size]...)}
			}
		}
		r.Reset()
		return
	}

	var aborted error
	if r.blocks > 0 {
		aborted = fmt.Errorf("%w after %d blocks", ErrTransferAborted, r.blocks)
		r.Reset()
	}
	res.Dropped = aborted
	if !class.IsValid() {
		res.Dropped = errors.Join(aborted, &ClassError{Class: class})
		return
	}
	res.Message = &Message{Class: class, SubID: sub, Data: append([]byte{}, data[2:]...)}
	return
}

// finish validates the trailer count against the received blocks.
func (r *Reassembler) finish(count []byte) error {
	if len(count) < 1 {
		return ErrShortFrame
	}
	var buf [4]byte
	copy(buf[:], count)
	expected := binary.LittleEndian.Uint32(buf[:])
	if expected != r.blocks {
		return fmt.Errorf("%w: trailer %d, received %d", ErrBlockCountMismatch, expected, r.blocks)
	}
	if r.overflow {
		return ErrPayloadTooLarge
	}
	return nil
}
