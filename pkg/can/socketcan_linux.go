//go:build linux

package can

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// socketCAN implements Transport over Linux SocketCAN.
// The socket is nonblocking and registered with the runtime poller,
// so Receive timeouts don't need a dedicated thread.
type socketCAN struct {
	Counters

	name string
	file *os.File
	raw  syscall.RawConn
	buf  [frameSize]byte
}

// OpenSocketCAN opens a raw CAN socket bound to the interface (e.g. "can0").
// It fails with ErrInterfaceDown if the interface isn't up.
func OpenSocketCAN(iface string) (Transport, error) {
	netIf, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("can: interface %s: %w", iface, err)
	}
	up, err := IsInterfaceUp(iface)
	if err != nil {
		return nil, fmt.Errorf("can: interface %s: %w", iface, err)
	}
	if !up {
		return nil, fmt.Errorf("can: interface %s: %w", iface, ErrInterfaceDown)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("can: socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: netIf.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("can: bind %s: %w", iface, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}

	f := os.NewFile(uintptr(fd), iface)
	raw, err := f.SyscallConn()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &socketCAN{name: iface, file: f, raw: raw}, nil
}

// Send implements Transport.
func (s *socketCAN) Send(f Frame, block bool) error {
	buf, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	var n int
	var werr error
	err = s.raw.Write(func(fd uintptr) bool {
		n, werr = unix.Write(int(fd), buf)
		if werr == unix.EINTR {
			return false
		}
		// returning false parks on the poller until writable
		return !(block && werr == unix.EAGAIN)
	})
	if err != nil {
		return err
	}
	switch {
	case werr == unix.EAGAIN || werr == unix.ENOBUFS:
		return ErrBusy
	case werr != nil:
		return werr
	case n != len(buf):
		return errors.New("can: short write")
	}
	s.CountSent(int(f.Len))
	return nil
}

// Receive implements Transport.
func (s *socketCAN) Receive(timeout time.Duration) (Frame, bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := s.file.SetReadDeadline(deadline); err != nil {
		return Frame{}, false, err
	}
	var n int
	var rerr error
	err := s.raw.Read(func(fd uintptr) bool {
		n, rerr = unix.Read(int(fd), s.buf[:])
		if rerr == unix.EINTR {
			return false
		}
		return !(timeout > 0 && rerr == unix.EAGAIN)
	})
	if err != nil {
		if os.IsTimeout(err) {
			return Frame{}, false, nil
		}
		return Frame{}, false, err
	}
	if rerr == unix.EAGAIN {
		return Frame{}, false, nil
	}
	if rerr != nil {
		return Frame{}, false, rerr
	}
	if n != frameSize {
		return Frame{}, false, errors.New("can: short read")
	}
	var f Frame
	if err := f.UnmarshalBinary(s.buf[:]); err != nil {
		return Frame{}, false, err
	}
	f.Timestamp = time.Now()
	s.CountReceived(int(f.Len))
	return f, true, nil
}

// Close implements Transport.
func (s *socketCAN) Close() error {
	return s.file.Close()
}

func (s *socketCAN) String() string {
	return "socketcan:" + s.name
}
