// Package can provides the CAN transport used by the bus coordinators.
//
// A Transport sends and receives classical CAN frames (up to 8 data bytes)
// addressed by 11-bit identifiers. Receive is a poll with a timeout, Send
// either fails fast with ErrBusy or retries until the frame is queued.
// Two implementations are provided: SocketCAN on Linux and an in-memory
// loopback bus for tests and simulated boards.
package can
