// Package protocol implements the RUBI framing over CAN.
//
// Typed messages (class, sub-id, payload up to 255 bytes) are queued in a
// per-connection transmit ring and drained into CAN frames. Payloads of up
// to 6 bytes travel inline in one frame:
//
//	| class | sub-id | payload (0..6) |
//
// Larger payloads are split into block frames of 7 bytes followed by a
// trailer carrying the number of blocks so the receiver can detect loss:
//
//	| BLOCK | payload (1..7) |   x ceil(len/7)
//	| class|0x80 | sub-id | blocks (u32 LE) |
package protocol
