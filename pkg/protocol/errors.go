package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrShortFrame indicates a frame too short for its kind.
	ErrShortFrame = errors.New("protocol: short frame")
	// ErrBlockCountMismatch indicates blocks were lost in a block transfer.
	ErrBlockCountMismatch = errors.New("protocol: block count mismatch")
	// ErrTransferAborted indicates a block transfer ended without a trailer.
	ErrTransferAborted = errors.New("protocol: block transfer aborted")
	// ErrPayloadTooLarge indicates a payload over MaxPayload.
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
	// ErrTxFull indicates the transmit ring has no room in non-blocking mode.
	ErrTxFull = errors.New("protocol: transmit buffer full")
)

// ClassError reports an unknown message class.
type ClassError struct {
	Class MsgClass
}

// Error implements error.
func (e *ClassError) Error() string {
	return fmt.Sprintf("protocol: unknown message class %d", uint8(e.Class))
}
