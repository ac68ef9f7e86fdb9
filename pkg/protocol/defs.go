package protocol

import "fmt"

// CAN identifier windows.
const (
	// BroadcastID addresses every board.
	BroadcastID uint32 = 0x100
	// AddressedLow is the identifier of node 0.
	AddressedLow uint32 = 0x200
	// MaxNodes is the size of a bus address pool.
	MaxNodes = 255
	// AddressedHigh is the identifier of the last node.
	AddressedHigh = AddressedLow + MaxNodes - 1
	// LotteryLow is the identifier of lottery id 0.
	LotteryLow uint32 = 0x400
	// LotteryHigh is the last lottery identifier.
	LotteryHigh uint32 = 0x7fe
)

// ProtocolVersion is carried in the lottery announcement.
const ProtocolVersion uint16 = 1

// LotteryAnnounceLen is the payload length of a lottery announcement.
const LotteryAnnounceLen = 4

// Sizes.
const (
	// MaxPayload is the largest message payload.
	MaxPayload = 255
	// HeaderLen is the size of a queued message header in the ring.
	HeaderLen = 4
	// InlineMax is the payload capacity of an inline frame.
	InlineMax = 6
	// BlockMax is the payload capacity of a block frame.
	BlockMax = 7
	// TrailerLen is the size of the block trailer frame as sent.
	TrailerLen = 6
	// TxBufferSize is the capacity of the transmit ring.
	TxBufferSize = 4096
)

// NodeID returns the addressed identifier of a node.
func NodeID(node uint8) uint32 {
	return AddressedLow + uint32(node)
}

// IsAddressed tells whether id is in the addressed window.
func IsAddressed(id uint32) bool {
	return id >= AddressedLow && id <= AddressedHigh
}

// IsLottery tells whether id is in the lottery window.
func IsLottery(id uint32) bool {
	return id >= LotteryLow && id <= LotteryHigh
}

// MsgClass is the message class in the low nibble of byte 0.
type MsgClass uint8

// Message classes.
const (
	ClassLottery      MsgClass = 1
	ClassField        MsgClass = 2
	ClassFunction     MsgClass = 3
	ClassInfo         MsgClass = 4
	ClassEvent        MsgClass = 5
	ClassCommand      MsgClass = 6
	ClassInitComplete MsgClass = 7
	ClassBlock        MsgClass = 8
)

// Byte 0 flags.
const (
	ClassMask         byte = 0x0f
	FlagBlockTransfer byte = 0x80
)

var classNames = map[MsgClass]string{
	ClassLottery:      "lottery",
	ClassField:        "field",
	ClassFunction:     "function",
	ClassInfo:         "info",
	ClassEvent:        "event",
	ClassCommand:      "command",
	ClassInitComplete: "init-complete",
	ClassBlock:        "block",
}

// IsValid tells whether c is a known class.
func (c MsgClass) IsValid() bool {
	_, ok := classNames[c]
	return ok
}

func (c MsgClass) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Info sub-ids for ClassInfo.
const (
	InfoBoardName     uint8 = 1
	InfoVersion       uint8 = 2
	InfoDriver        uint8 = 3
	InfoDescription   uint8 = 4
	InfoBoardID       uint8 = 5
	InfoFieldName     uint8 = 6
	InfoFieldType     uint8 = 7
	InfoFieldAccess   uint8 = 8
	InfoSubfieldCount uint8 = 9
	InfoSubfieldNames uint8 = 10
	InfoFuncName      uint8 = 11
	InfoFuncOutType   uint8 = 12
	InfoFuncArgType   uint8 = 13
	InfoFuncArgCount  uint8 = 14
	InfoFuncArgNames  uint8 = 15
)

// Command sub-ids for ClassCommand.
const (
	CmdKeepAlive   uint8 = 1
	CmdReboot      uint8 = 2
	CmdOperational uint8 = 3
	CmdHold        uint8 = 4
	CmdSleep       uint8 = 5
	CmdWake        uint8 = 6
)

// WakeBit is set in byte 0 of a keep-alive response when the board is awake.
const WakeBit byte = 0x01

// Event sub-ids for ClassEvent.
const (
	EventAssert  uint8 = 1
	EventInfo    uint8 = 2
	EventWarning uint8 = 3
	EventError   uint8 = 4
)

// Message is a typed RUBI message.
type Message struct {
	Class MsgClass
	SubID uint8
	Data  []byte
}

func (m *Message) String() string {
	return fmt.Sprintf("%s/%d %X", m.Class, m.SubID, m.Data)
}
