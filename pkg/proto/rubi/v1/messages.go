package v1

import (
	"strings"

	"github.com/golang/protobuf/proto"
)

// FieldValue carries the value of a field or the arguments/result of
// a function. Values is the text form of each element, Raw the wire
// encoding. Inbound requests may set either.
type FieldValue struct {
	Board     string   `protobuf:"bytes,1,opt,name=board,proto3" json:"board,omitempty"`
	Id        string   `protobuf:"bytes,2,opt,name=id,proto3" json:"id,omitempty"`
	Name      string   `protobuf:"bytes,3,opt,name=name,proto3" json:"name,omitempty"`
	Index     uint32   `protobuf:"varint,4,opt,name=index,proto3" json:"index,omitempty"`
	Type      string   `protobuf:"bytes,5,opt,name=type,proto3" json:"type,omitempty"`
	Values    []string `protobuf:"bytes,6,rep,name=values,proto3" json:"values,omitempty"`
	Raw       []byte   `protobuf:"bytes,7,opt,name=raw,proto3" json:"raw,omitempty"`
	Timestamp int64    `protobuf:"varint,8,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *FieldValue) ProtoMessage() {}

// Reset implements proto.Message.
func (m *FieldValue) Reset() { *m = FieldValue{} }

// String implements proto.Message.
func (m *FieldValue) String() string { return proto.CompactTextString(m) }

// BusLoad is the traffic of a bus.
type BusLoad struct {
	Bus            string  `protobuf:"bytes,1,opt,name=bus,proto3" json:"bus,omitempty"`
	BytesPerSecond float64 `protobuf:"fixed64,2,opt,name=bytes_per_second,json=bytesPerSecond,proto3" json:"bytes_per_second,omitempty"`
	Timestamp      int64   `protobuf:"varint,3,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *BusLoad) ProtoMessage() {}

// Reset implements proto.Message.
func (m *BusLoad) Reset() { *m = BusLoad{} }

// String implements proto.Message.
func (m *BusLoad) String() string { return proto.CompactTextString(m) }

// LogLevel is the severity of a LogEntry.
type LogLevel int32

// Log levels.
const (
	LogLevel_INFO    LogLevel = 0
	LogLevel_WARNING LogLevel = 1
	LogLevel_ERROR   LogLevel = 2
)

var logLevelNames = map[LogLevel]string{
	LogLevel_INFO:    "INFO",
	LogLevel_WARNING: "WARNING",
	LogLevel_ERROR:   "ERROR",
}

func (l LogLevel) String() string {
	if name, ok := logLevelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// LogEntry is a board-visible event reported by the server.
type LogEntry struct {
	Level     LogLevel `protobuf:"varint,1,opt,name=level,proto3" json:"level,omitempty"`
	Message   string   `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
	Server    string   `protobuf:"bytes,3,opt,name=server,proto3" json:"server,omitempty"`
	Timestamp int64    `protobuf:"varint,4,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *LogEntry) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LogEntry) Reset() { *m = LogEntry{} }

// String implements proto.Message.
func (m *LogEntry) String() string { return proto.CompactTextString(m) }

// Board states reported in BoardStatus.
const (
	StateOnline   = "online"
	StateLost     = "lost"
	StateReplaced = "replaced"
	StateShutdown = "shutdown"
)

// BoardStatus is the liveness of a board instance.
type BoardStatus struct {
	Board string `protobuf:"bytes,1,opt,name=board,proto3" json:"board,omitempty"`
	Id    string `protobuf:"bytes,2,opt,name=id,proto3" json:"id,omitempty"`
	State string `protobuf:"bytes,3,opt,name=state,proto3" json:"state,omitempty"`
	Bus   string `protobuf:"bytes,4,opt,name=bus,proto3" json:"bus,omitempty"`
	Node  uint32 `protobuf:"varint,5,opt,name=node,proto3" json:"node,omitempty"`
	Wake  bool   `protobuf:"varint,6,opt,name=wake,proto3" json:"wake,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *BoardStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *BoardStatus) Reset() { *m = BoardStatus{} }

// String implements proto.Message.
func (m *BoardStatus) String() string { return proto.CompactTextString(m) }

// CommandKind is a power command sent to a board.
type CommandKind int32

// Command kinds.
const (
	CommandKind_NONE   CommandKind = 0
	CommandKind_SLEEP  CommandKind = 1
	CommandKind_WAKE   CommandKind = 2
	CommandKind_REBOOT CommandKind = 3
)

var commandKindNames = map[CommandKind]string{
	CommandKind_NONE:   "NONE",
	CommandKind_SLEEP:  "SLEEP",
	CommandKind_WAKE:   "WAKE",
	CommandKind_REBOOT: "REBOOT",
}

func (k CommandKind) String() string {
	if name, ok := commandKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseCommandKind parses a command name, case insensitive.
func ParseCommandKind(name string) (CommandKind, bool) {
	for k, n := range commandKindNames {
		if k != CommandKind_NONE && strings.EqualFold(n, name) {
			return k, true
		}
	}
	return CommandKind_NONE, false
}

// Command is a power command request.
type Command struct {
	Kind CommandKind `protobuf:"varint,1,opt,name=kind,proto3" json:"kind,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Command) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Command) Reset() { *m = Command{} }

// String implements proto.Message.
func (m *Command) String() string { return proto.CompactTextString(m) }
