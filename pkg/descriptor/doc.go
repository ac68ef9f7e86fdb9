// Package descriptor models board types: the fields and functions a
// board exposes, built one info message at a time during discovery,
// and the little-endian encoding of their values.
package descriptor
