package can

import (
	"time"

	"github.com/golang/glog"
)

// LoggedTransport traces every frame at glog verbosity 3.
type LoggedTransport struct {
	Transport
	Name string
}

// NewLoggedTransport wraps a Transport with frame tracing.
func NewLoggedTransport(name string, t Transport) *LoggedTransport {
	return &LoggedTransport{Transport: t, Name: name}
}

// Send implements Transport.
func (l *LoggedTransport) Send(f Frame, block bool) error {
	err := l.Transport.Send(f, block)
	if glog.V(3) {
		if err != nil {
			glog.Infof("%s TX %s: %v", l.Name, f, err)
		} else {
			glog.Infof("%s TX %s", l.Name, f)
		}
	}
	return err
}

// Receive implements Transport.
func (l *LoggedTransport) Receive(timeout time.Duration) (Frame, bool, error) {
	f, ok, err := l.Transport.Receive(timeout)
	if glog.V(3) {
		switch {
		case err != nil:
			glog.Infof("%s RX error: %v", l.Name, err)
		case ok:
			glog.Infof("%s RX %s", l.Name, f)
		}
	}
	return f, ok, err
}
