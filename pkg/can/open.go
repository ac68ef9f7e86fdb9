package can

import (
	"fmt"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// LoopbackPrefix selects an in-process loopback bus in Open, e.g. "loop:sim".
const LoopbackPrefix = "loop:"

var (
	loopbacksLock sync.Mutex
	loopbacks     = make(map[string]*LoopbackBus)
)

// Loopback returns the process-wide loopback bus with the name,
// creating it on first use.
func Loopback(name string) *LoopbackBus {
	loopbacksLock.Lock()
	defer loopbacksLock.Unlock()
	bus := loopbacks[name]
	if bus == nil {
		bus = NewLoopbackBus()
		loopbacks[name] = bus
	}
	return bus
}

// Open opens a Transport by bus name. Names starting with LoopbackPrefix
// attach to an in-process loopback bus, anything else is a SocketCAN
// interface. The returned transport traces frames when glog -v=3.
func Open(name string) (Transport, error) {
	var t Transport
	if strings.HasPrefix(name, LoopbackPrefix) {
		t = Loopback(name[len(LoopbackPrefix):]).Open()
	} else {
		var err error
		if t, err = OpenSocketCAN(name); err != nil {
			return nil, fmt.Errorf("open bus %s: %w", name, err)
		}
	}
	glog.Infof("bus %s opened", name)
	return NewLoggedTransport(name, t), nil
}
