package mqtt

import (
	"fmt"
	"strings"

	"github.com/golang/protobuf/proto"

	pb "github.com/robotalks/rubi.go/pkg/proto/rubi/v1"
)

// Describe renders a payload in a readable one-line form according to
// the kind of its topic.
func Describe(topic string, payload []byte) string {
	p := ParseTopic(topic)
	if len(payload) == 0 {
		return fmt.Sprintf("%s %s <cleared>", p.Kind, topic)
	}
	var msg proto.Message
	switch p.Kind {
	case TopicMeta, TopicServerMeta:
		return fmt.Sprintf("%s %s %s", p.Kind, topic, payload)
	case TopicStatus:
		msg = &pb.BoardStatus{}
	case TopicCmd:
		msg = &pb.Command{}
	case TopicField, TopicSet, TopicFunction, TopicCall:
		var value pb.FieldValue
		if err := proto.Unmarshal(payload, &value); err != nil {
			return fmt.Sprintf("%s %s <bad payload: %v>", p.Kind, topic, err)
		}
		return fmt.Sprintf("%s %s = [%s]", p.Kind, topic, strings.Join(value.Values, ", "))
	case TopicBusLoad:
		var load pb.BusLoad
		if err := proto.Unmarshal(payload, &load); err != nil {
			return fmt.Sprintf("%s %s <bad payload: %v>", p.Kind, topic, err)
		}
		return fmt.Sprintf("%s %s %.1f B/s", p.Kind, load.Bus, load.BytesPerSecond)
	case TopicLog:
		var entry pb.LogEntry
		if err := proto.Unmarshal(payload, &entry); err != nil {
			return fmt.Sprintf("%s %s <bad payload: %v>", p.Kind, topic, err)
		}
		return fmt.Sprintf("%s %s %s", p.Kind, entry.Level, entry.Message)
	default:
		return fmt.Sprintf("%s %s %d bytes", p.Kind, topic, len(payload))
	}
	if err := proto.Unmarshal(payload, msg); err != nil {
		return fmt.Sprintf("%s %s <bad payload: %v>", p.Kind, topic, err)
	}
	return fmt.Sprintf("%s %s %s", p.Kind, topic, proto.CompactTextString(msg))
}
