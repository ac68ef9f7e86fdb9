package boards

import (
	"time"

	fx "github.com/robotalks/rubi.go/pkg/framework"
)

// DefaultLoadInterval is the period of bus load reports.
const DefaultLoadInterval = 3 * time.Second

// Server spins all buses of the process.
type Server struct {
	Registry     *Registry
	Buses        []*Bus
	LoadInterval time.Duration

	lastLoad time.Time
}

// NewServer creates a Server.
func NewServer(reg *Registry) *Server {
	return &Server{Registry: reg, LoadInterval: DefaultLoadInterval}
}

// AddBus adds buses to spin.
func (s *Server) AddBus(buses ...*Bus) *Server {
	s.Buses = append(s.Buses, buses...)
	return s
}

// Spin ticks every bus and reports their load when due.
func (s *Server) Spin(now time.Time) error {
	for _, b := range s.Buses {
		if err := b.Tick(now); err != nil {
			return err
		}
	}
	if s.lastLoad.IsZero() {
		s.lastLoad = now
		for _, b := range s.Buses {
			b.TakeTraffic()
		}
		return nil
	}
	interval := s.LoadInterval
	if interval <= 0 {
		interval = DefaultLoadInterval
	}
	if elapsed := now.Sub(s.lastLoad); elapsed >= interval {
		loads := make([]BusLoad, len(s.Buses))
		for n, b := range s.Buses {
			loads[n] = BusLoad{Bus: b.Name, BytesPerSecond: float64(b.TakeTraffic()) / elapsed.Seconds()}
		}
		s.lastLoad = now
		s.Registry.Frontend.ReportBusLoad(loads)
	}
	return nil
}

// Control implements framework.Controller. Configuration conflicts
// stop the loop.
func (s *Server) Control(ctx fx.ControlContext) error {
	if err := s.Spin(ctx.Time()); err != nil {
		if IsConflict(err) {
			return fx.Stop(err)
		}
		return err
	}
	return nil
}

// AddToLoop implements framework.LoopAdder.
func (s *Server) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvSense, s)
}

// Close closes all buses.
func (s *Server) Close() error {
	var errs fx.AggregatedError
	for _, b := range s.Buses {
		errs.Add(b.Close())
	}
	return errs.Aggregate()
}
