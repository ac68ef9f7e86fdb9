//go:build !linux

package can

import "errors"

// ErrUnsupported indicates SocketCAN isn't available on this platform.
var ErrUnsupported = errors.New("can: SocketCAN requires Linux")

// OpenSocketCAN is only supported on Linux.
func OpenSocketCAN(iface string) (Transport, error) {
	return nil, ErrUnsupported
}

// IsInterfaceUp is only supported on Linux.
func IsInterfaceUp(name string) (bool, error) {
	return false, ErrUnsupported
}
