package can

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxDataLen is the payload capacity of a classical CAN frame.
const MaxDataLen = 8

// Identifier limits.
const (
	MaxStdID uint32 = 0x7ff
	MaxExtID uint32 = 0x1fffffff
)

var (
	// ErrInvalidID indicates the identifier doesn't fit the frame format.
	ErrInvalidID = errors.New("can: invalid identifier")
	// ErrInvalidLen indicates more than 8 data bytes.
	ErrInvalidLen = errors.New("can: invalid data length")
)

// Frame is a classical CAN data frame.
type Frame struct {
	ID        uint32
	Extended  bool
	Len       uint8
	Data      [MaxDataLen]byte
	Timestamp time.Time
}

// NewFrame builds a standard frame from id and payload.
func NewFrame(id uint32, data []byte) (Frame, error) {
	var f Frame
	if len(data) > MaxDataLen {
		return f, ErrInvalidLen
	}
	f.ID, f.Len = id, uint8(len(data))
	f.Extended = id > MaxStdID
	copy(f.Data[:], data)
	return f, f.Validate()
}

// Validate checks identifier range and length.
func (f Frame) Validate() error {
	if f.Len > MaxDataLen {
		return ErrInvalidLen
	}
	if f.Extended {
		if f.ID > MaxExtID {
			return ErrInvalidID
		}
	} else if f.ID > MaxStdID {
		return ErrInvalidID
	}
	return nil
}

// Payload returns the valid data bytes. The slice aliases the frame.
func (f *Frame) Payload() []byte {
	return f.Data[:f.Len]
}

// String formats the frame like candump: "123 [2] DE AD".
func (f Frame) String() string {
	var sb strings.Builder
	if f.Extended {
		fmt.Fprintf(&sb, "%08X", f.ID)
	} else {
		fmt.Fprintf(&sb, "%03X", f.ID)
	}
	fmt.Fprintf(&sb, " [%d]", f.Len)
	for _, b := range f.Data[:f.Len] {
		fmt.Fprintf(&sb, " %02X", b)
	}
	return sb.String()
}

// SocketCAN can_frame layout.
const (
	frameSize  = 16
	canEffFlag = 0x80000000
	canRtrFlag = 0x40000000
	canErrFlag = 0x20000000
	canEffMask = 0x1fffffff
	canStdMask = 0x7ff
)

// MarshalBinary encodes the frame as a Linux "struct can_frame".
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	id := f.ID
	if f.Extended {
		id |= canEffFlag
	}
	buf := make([]byte, frameSize)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:], f.Data[:])
	return buf, nil
}

// UnmarshalBinary decodes a Linux "struct can_frame".
// Remote and error frames are rejected.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < frameSize {
		return fmt.Errorf("can: need %d bytes, got %d", frameSize, len(data))
	}
	id := binary.LittleEndian.Uint32(data[0:4])
	if id&(canRtrFlag|canErrFlag) != 0 {
		return fmt.Errorf("can: not a data frame (id=0x%X)", id)
	}
	f.Extended = id&canEffFlag != 0
	if f.Extended {
		f.ID = id & canEffMask
	} else {
		f.ID = id & canStdMask
	}
	f.Len = data[4]
	copy(f.Data[:], data[8:frameSize])
	return f.Validate()
}
