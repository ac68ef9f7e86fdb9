package sim

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/rubi.go/pkg/can"
)

// DefaultTickInterval is the tick period of simulated boards.
const DefaultTickInterval = 10 * time.Millisecond

// Runner ticks simulated boards on their own goroutine.
// Boards only share the loopback bus with the server, so
// they don't need to run in the control loop.
type Runner struct {
	Boards   []*Board
	Interval time.Duration
}

// NewRunner attaches a board per spec to the loopback bus.
func NewRunner(bus *can.LoopbackBus, specs ...BoardSpec) *Runner {
	r := &Runner{Interval: DefaultTickInterval}
	for n, spec := range specs {
		r.Boards = append(r.Boards, NewBoard(spec, bus.Open(), time.Now().UnixNano()+int64(n)))
	}
	return r
}

// Name implements framework.Named.
func (r *Runner) Name() string {
	return "sim"
}

// Run implements framework.Runnable.
func (r *Runner) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			for _, b := range r.Boards {
				b.transport.Close()
			}
			return ctx.Err()
		case now := <-ticker.C:
			for _, b := range r.Boards {
				if err := b.Tick(now); err != nil {
					glog.Errorf("sim %s: %v", b.Spec.Name, err)
				}
			}
		}
	}
}
