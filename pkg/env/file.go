package env

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/rubi.go/pkg/sim"
)

// fileConfig is the TOML layout of the config file.
type fileConfig struct {
	ServerID          string          `toml:"server_id"`
	CANs              []string        `toml:"cans"`
	MQTTURL           string          `toml:"mqtt_url"`
	KeepAliveInterval string          `toml:"keepalive_interval"`
	DeadAfter         int             `toml:"dead_after"`
	LoopInterval      string          `toml:"loop_interval"`
	LoadInterval      string          `toml:"load_interval"`
	Blocking          bool            `toml:"blocking"`
	Sim               []sim.BoardSpec `toml:"sim"`
}

// LoadFile overlays the keys defined in a TOML file. Keys whose flag
// is in skip keep their current value.
func (c *Config) LoadFile(path string, skip map[string]bool) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config %s: unknown keys %v", path, undecoded)
	}
	defined := func(key, flagName string) bool {
		return meta.IsDefined(key) && !skip[flagName]
	}

	if defined("server_id", "id") {
		c.ServerID = strings.TrimSpace(raw.ServerID)
	}
	if defined("cans", "cans") {
		c.CANs = raw.CANs
	}
	if defined("mqtt_url", "mqtt") {
		c.MQTTBrokerURL = strings.TrimSpace(raw.MQTTURL)
	}
	if defined("dead_after", "dead-after") {
		c.DeadAfter = raw.DeadAfter
	}
	if defined("blocking", "blocking") {
		c.Blocking = raw.Blocking
	}
	durations := []struct {
		key, flag string
		text      string
		value     *time.Duration
	}{
		{"keepalive_interval", "keepalive", raw.KeepAliveInterval, &c.KeepAliveInterval},
		{"loop_interval", "interval", raw.LoopInterval, &c.LoopInterval},
		{"load_interval", "load-interval", raw.LoadInterval, &c.LoadInterval},
	}
	for _, d := range durations {
		if !defined(d.key, d.flag) {
			continue
		}
		v, err := time.ParseDuration(d.text)
		if err != nil {
			return fmt.Errorf("load config %s: %s: %w", path, d.key, err)
		}
		*d.value = v
	}
	if meta.IsDefined("sim") {
		for n := range raw.Sim {
			if err := raw.Sim[n].Resolve(); err != nil {
				return fmt.Errorf("load config %s: %w", path, err)
			}
		}
		c.SimBoards = raw.Sim
	}
	return c.validate()
}

func (c *Config) validate() error {
	switch {
	case c.KeepAliveInterval <= 0:
		return fmt.Errorf("keep-alive interval must be positive")
	case c.DeadAfter <= 0:
		return fmt.Errorf("dead-after must be positive")
	case c.LoopInterval <= 0:
		return fmt.Errorf("loop interval must be positive")
	}
	return nil
}
