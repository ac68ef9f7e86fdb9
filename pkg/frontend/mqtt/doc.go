// Package mqtt exposes boards on an MQTT broker.
//
// Every board instance gets a topic tree under
// boards/<name>[/<id>]: retained meta and status, one topic per field
// and function carrying protobuf FieldValue payloads, and request
// topics (fields/<f>/set, functions/<f>/call, cmd) the server
// subscribes to. Bus loads go to buses/<bus>/load, board events to log.
//
// The Connector is the client side used by rubictl and rubimon.
package mqtt
