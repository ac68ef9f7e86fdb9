// Package sim simulates RUBI boards for tests and demos.
//
// A Board runs the firmware side of discovery over any can.Transport:
// it answers the reset broadcast, announces itself in the lottery,
// reports its descriptor, answers keep-alives and stores field writes.
package sim
