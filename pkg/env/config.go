// Package env builds the server and client environments from defaults,
// RUBI_* environment variables, command line flags and an optional
// TOML file.
package env

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/robotalks/rubi.go/pkg/boards"
	"github.com/robotalks/rubi.go/pkg/can"
	fx "github.com/robotalks/rubi.go/pkg/framework"
	"github.com/robotalks/rubi.go/pkg/frontend/logfe"
	"github.com/robotalks/rubi.go/pkg/frontend/mqtt"
	"github.com/robotalks/rubi.go/pkg/sim"
)

// SimBus is the loopback bus simulated boards attach to.
const SimBus = can.LoopbackPrefix + "sim"

// Config provides the options of the server.
type Config struct {
	// ServerID identifies the server in the broker, the machine id by default.
	ServerID string
	// CANs are the buses to serve, SocketCAN interfaces or loop:<name>.
	CANs []string
	// MQTTBrokerURL selects the MQTT frontend when not empty,
	// e.g. mqtt://host:1883/rubi/.
	MQTTBrokerURL string
	// ConfigFile is an optional TOML file overlaying the defaults.
	ConfigFile string
	// Sim runs simulated boards on SimBus.
	Sim       bool
	SimBoards []sim.BoardSpec

	KeepAliveInterval time.Duration
	DeadAfter         int
	LoopInterval      time.Duration
	LoadInterval      time.Duration
	Blocking          bool
}

var defaultConfig = Config{
	CANs:              []string{"can0"},
	KeepAliveInterval: boards.DefaultKeepAliveInterval,
	DeadAfter:         boards.DefaultDeadAfter,
	LoopInterval:      10 * time.Millisecond,
	LoadInterval:      boards.DefaultLoadInterval,
}

func init() {
	loadEnv(&defaultConfig)
	defaultConfig.ServerID = MachineID()
}

func loadEnv(c *Config) {
	if val := os.Getenv("RUBI_CANS"); val != "" {
		c.CANs = splitList(val)
	}
	if val := os.Getenv("RUBI_MQTT_URL"); val != "" {
		c.MQTTBrokerURL = val
	}
	if val := os.Getenv("RUBI_CONFIG"); val != "" {
		c.ConfigFile = val
	}
}

func splitList(val string) []string {
	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

type listFlag struct {
	items *[]string
}

func (f listFlag) String() string {
	if f.items == nil {
		return ""
	}
	return strings.Join(*f.items, ",")
}

func (f listFlag) Set(val string) error {
	*f.items = splitList(val)
	return nil
}

// SetupFlags binds the server flags to the defaults.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ServerID, "id", defaultConfig.ServerID, "Server ID")
	flag.Var(listFlag{&defaultConfig.CANs}, "cans", "Comma separated CAN interfaces, loop:<name> for an in-process bus")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, logs only if empty")
	flag.StringVar(&defaultConfig.ConfigFile, "config", defaultConfig.ConfigFile, "TOML config file")
	flag.BoolVar(&defaultConfig.Sim, "sim", defaultConfig.Sim, "Run simulated boards on "+SimBus)
	flag.DurationVar(&defaultConfig.KeepAliveInterval, "keepalive", defaultConfig.KeepAliveInterval, "Keep-alive interval")
	flag.IntVar(&defaultConfig.DeadAfter, "dead-after", defaultConfig.DeadAfter, "Missed keep-alives before a board is dead")
	flag.DurationVar(&defaultConfig.LoopInterval, "interval", defaultConfig.LoopInterval, "Polling interval")
	flag.DurationVar(&defaultConfig.LoadInterval, "load-interval", defaultConfig.LoadInterval, "Bus load report interval")
	flag.BoolVar(&defaultConfig.Blocking, "blocking", defaultConfig.Blocking, "Retry frame sends until the bus accepts them")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config from the defaults, overlaid by
// ConfigFile when set. Flags given on the command line win over the file.
func NewConfig() (*Config, error) {
	conf := defaultConfig
	conf.CANs = append([]string(nil), defaultConfig.CANs...)
	conf.SimBoards = append([]sim.BoardSpec(nil), defaultConfig.SimBoards...)
	if conf.ConfigFile != "" {
		if err := conf.LoadFile(conf.ConfigFile, explicitFlags()); err != nil {
			return nil, err
		}
	}
	return &conf, nil
}

// MustNewConfig creates a Config and fails on error.
func MustNewConfig() *Config {
	conf, err := NewConfig()
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

func explicitFlags() map[string]bool {
	set := make(map[string]bool)
	if flag.Parsed() {
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	}
	return set
}

// BusOptions returns the options of every bus.
func (c *Config) BusOptions() boards.BusOptions {
	return boards.BusOptions{
		KeepAliveInterval: c.KeepAliveInterval,
		DeadAfter:         c.DeadAfter,
		Blocking:          c.Blocking,
	}
}

// Env is the running server environment.
type Env struct {
	Config   *Config
	Frontend boards.Frontend
	Registry *boards.Registry
	Server   *boards.Server
	Sims     *sim.Runner
}

// NewEnv opens all buses and creates the frontend.
func (c *Config) NewEnv() (*Env, error) {
	e := &Env{Config: c}
	if c.MQTTBrokerURL != "" {
		fe, err := mqtt.NewFromURL(c.MQTTBrokerURL, c.ServerID, c.buses())
		if err != nil {
			return nil, fmt.Errorf("create MQTT frontend error: %w", err)
		}
		e.Frontend = fe
	} else {
		e.Frontend = logfe.New()
	}
	e.Registry = boards.NewRegistry(e.Frontend)
	e.Server = boards.NewServer(e.Registry)
	e.Server.LoadInterval = c.LoadInterval

	buses := c.buses()
	if len(buses) == 0 {
		return nil, fmt.Errorf("at least one bus is required")
	}
	var errs fx.AggregatedError
	for _, name := range buses {
		t, err := can.Open(name)
		if err != nil {
			errs.Add(err)
			continue
		}
		bus, err := boards.NewBus(name, t, e.Registry, c.BusOptions())
		if err != nil {
			t.Close()
			errs.Add(err)
			continue
		}
		e.Server.AddBus(bus)
	}
	if err := errs.Aggregate(); err != nil {
		e.Server.Close()
		return nil, err
	}

	if c.simulated() {
		specs := c.SimBoards
		if len(specs) == 0 {
			specs = []sim.BoardSpec{sim.Thermo()}
		}
		e.Sims = sim.NewRunner(can.Loopback(SimBus[len(can.LoopbackPrefix):]), specs...)
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

func (c *Config) simulated() bool {
	return c.Sim || len(c.SimBoards) > 0
}

// buses returns CANs plus SimBus when simulating.
func (c *Config) buses() []string {
	buses := c.CANs
	if c.simulated() {
		for _, name := range buses {
			if name == SimBus {
				return buses
			}
		}
		buses = append(append([]string(nil), buses...), SimBus)
	}
	return buses
}

// AddToLoop implements fx.LoopAdder.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Interval = e.Config.LoopInterval
	loop.Add(e.Server)
	if adder, ok := e.Frontend.(fx.LoopAdder); ok {
		loop.Add(adder)
	}
	if e.Sims != nil {
		loop.AddRunnable(e.Sims)
	}
}

// Close closes all buses.
func (e *Env) Close() error {
	return e.Server.Close()
}
