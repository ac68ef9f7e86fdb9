// Package boards implements board discovery and the connection lifecycle.
//
// A Bus owns the address pool of one CAN segment: it runs the address
// lottery, demultiplexes frames to Connections and drives keep-alives.
// The Registry interns descriptors by board name, binds each board
// Instance to at most one operational Connection and parks late or
// duplicate claimants. Connections are referenced through ConnRef so a
// reclaimed slot is detected as stale instead of being kept alive.
//
// Everything here runs on a single goroutine: the Server is ticked by
// the control loop and frontends post work into the same loop.
package boards
