package mqtt

import "strings"

// Topic roots and leaves.
const (
	BoardsRoot      = "boards"
	BusesRoot       = "buses"
	LogTopic        = "log"
	ServerMetaTopic = "server/meta"

	metaLeaf      = "meta"
	statusLeaf    = "status"
	cmdLeaf       = "cmd"
	fieldsNode    = "fields"
	functionsNode = "functions"
	setLeaf       = "set"
	callLeaf      = "call"
)

// BoardTopic is the root topic of an instance.
func BoardTopic(name, id string) string {
	if id == "" {
		return BoardsRoot + "/" + name
	}
	return BoardsRoot + "/" + name + "/" + id
}

// MetaTopic carries the retained JSON meta of a board.
func MetaTopic(board string) string { return board + "/" + metaLeaf }

// StatusTopic carries the retained BoardStatus of a board.
func StatusTopic(board string) string { return board + "/" + statusLeaf }

// CmdTopic receives Command requests.
func CmdTopic(board string) string { return board + "/" + cmdLeaf }

// FieldTopic carries the values of a field.
func FieldTopic(board, field string) string { return board + "/" + fieldsNode + "/" + field }

// SetTopic receives writes to a field.
func SetTopic(board, field string) string { return FieldTopic(board, field) + "/" + setLeaf }

// FunctionTopic carries the results of a function.
func FunctionTopic(board, fn string) string { return board + "/" + functionsNode + "/" + fn }

// CallTopic receives calls of a function.
func CallTopic(board, fn string) string { return FunctionTopic(board, fn) + "/" + callLeaf }

// BusLoadTopic carries the BusLoad of a bus.
func BusLoadTopic(bus string) string { return BusesRoot + "/" + bus + "/load" }

// MatchTopic matches a topic against a pattern with + and # wildcards.
func MatchTopic(topic, pattern string) bool {
	tokens, patterns := strings.Split(topic, "/"), strings.Split(pattern, "/")
	for i, p := range patterns {
		if p == "#" {
			return i == len(patterns)-1
		}
		if i >= len(tokens) {
			return false
		}
		if p != "+" && p != tokens[i] {
			return false
		}
	}
	return len(tokens) == len(patterns)
}

// TopicKind classifies a topic below the prefix.
type TopicKind int

// Topic kinds.
const (
	TopicUnknown TopicKind = iota
	TopicMeta
	TopicStatus
	TopicCmd
	TopicField
	TopicSet
	TopicFunction
	TopicCall
	TopicBusLoad
	TopicLog
	TopicServerMeta
)

var topicKindNames = []string{"unknown", "meta", "status", "cmd", "field", "set", "function", "call", "load", "log", "server"}

func (k TopicKind) String() string {
	if int(k) < len(topicKindNames) {
		return topicKindNames[k]
	}
	return topicKindNames[0]
}

// ParsedTopic is a topic split into its parts.
type ParsedTopic struct {
	Kind TopicKind
	// Board is the board root, e.g. boards/Thermo/left.
	Board string
	// Member is the field or function name.
	Member string
	// Bus is set for bus loads.
	Bus string
}

// ParseTopic classifies a topic. Board ids named like a topic leaf
// (meta, fields...) aren't supported.
func ParseTopic(topic string) ParsedTopic {
	switch topic {
	case LogTopic:
		return ParsedTopic{Kind: TopicLog}
	case ServerMetaTopic:
		return ParsedTopic{Kind: TopicServerMeta}
	}
	tokens := strings.Split(topic, "/")
	if len(tokens) == 3 && tokens[0] == BusesRoot && tokens[2] == "load" {
		return ParsedTopic{Kind: TopicBusLoad, Bus: tokens[1]}
	}
	if len(tokens) < 3 || tokens[0] != BoardsRoot {
		return ParsedTopic{}
	}
	root := 2
	if !isLeaf(tokens[2]) {
		root = 3
	}
	if len(tokens) <= root {
		return ParsedTopic{}
	}
	p := ParsedTopic{Board: strings.Join(tokens[:root], "/")}
	rest := tokens[root:]
	switch {
	case len(rest) == 1 && rest[0] == metaLeaf:
		p.Kind = TopicMeta
	case len(rest) == 1 && rest[0] == statusLeaf:
		p.Kind = TopicStatus
	case len(rest) == 1 && rest[0] == cmdLeaf:
		p.Kind = TopicCmd
	case len(rest) == 2 && rest[0] == fieldsNode:
		p.Kind, p.Member = TopicField, rest[1]
	case len(rest) == 3 && rest[0] == fieldsNode && rest[2] == setLeaf:
		p.Kind, p.Member = TopicSet, rest[1]
	case len(rest) == 2 && rest[0] == functionsNode:
		p.Kind, p.Member = TopicFunction, rest[1]
	case len(rest) == 3 && rest[0] == functionsNode && rest[2] == callLeaf:
		p.Kind, p.Member = TopicCall, rest[1]
	default:
		return ParsedTopic{}
	}
	return p
}

func isLeaf(token string) bool {
	switch token {
	case metaLeaf, statusLeaf, cmdLeaf, fieldsNode, functionsNode:
		return true
	}
	return false
}
