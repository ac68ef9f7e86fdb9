// Package v1 defines the protobuf payloads exchanged with frontends.
package v1
