package env

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rubi.go/pkg/descriptor"
	"github.com/robotalks/rubi.go/pkg/frontend/logfe"
	fx "github.com/robotalks/rubi.go/pkg/framework"
)

func writeFile(t *testing.T, content string) string {
	dir, err := ioutil.TempDir("", "rubi-env")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "rubi.toml")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
cans = ["can1", "loop:test"]
mqtt_url = " mqtt://broker:1883/rubi/ "
keepalive_interval = "2s"
dead_after = 3

[[sim]]
name = "Relay"
version = "1.0"
id = "r1"
publish = "100ms"

  [[sim.fields]]
  name = "On"
  type = "bool"
  access = "rw"
  values = ["true"]

  [[sim.fields]]
  name = "Pos"
  type = "int16"
  access = "ro"
  subfields = ["x", "y"]
  values = ["1", "-2"]
`)
	conf := defaultConfig
	conf.CANs = []string{"can0"}
	require.NoError(t, conf.LoadFile(path, map[string]bool{"dead-after": true}))
	require.Equal(t, []string{"can1", "loop:test"}, conf.CANs)
	require.Equal(t, "mqtt://broker:1883/rubi/", conf.MQTTBrokerURL)
	require.Equal(t, 2*time.Second, conf.KeepAliveInterval)
	require.Equal(t, defaultConfig.DeadAfter, conf.DeadAfter)
	require.Equal(t, defaultConfig.LoopInterval, conf.LoopInterval)

	require.Len(t, conf.SimBoards, 1)
	spec := conf.SimBoards[0]
	require.Equal(t, "r1", spec.ID)
	require.Equal(t, 100*time.Millisecond, spec.PublishInterval)
	require.Len(t, spec.Fields, 2)
	require.Equal(t, descriptor.TypeBool, spec.Fields[0].Type)
	require.Equal(t, descriptor.AccessReadOnly, spec.Fields[1].Access)
	require.Equal(t, 4, spec.Descriptor().Entries[1].Size())
	require.True(t, conf.simulated())
	require.Equal(t, []string{"can1", "loop:test", SimBus}, conf.buses())
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `cans = [`},
		{"unknown key", `bogus = 1`},
		{"duration", `loop_interval = "fast"`},
		{"zero interval", `keepalive_interval = "0s"`},
		{"sim type", "[[sim]]\nname = \"X\"\n[[sim.fields]]\nname = \"F\"\ntype = \"double\"\naccess = \"rw\""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conf := defaultConfig
			require.Error(t, conf.LoadFile(writeFile(t, test.content), nil))
		})
	}
}

func TestNewEnvLoopback(t *testing.T) {
	conf := defaultConfig
	conf.CANs = []string{"loop:env-test"}
	conf.MQTTBrokerURL = ""
	conf.Sim = true
	env, err := conf.NewEnv()
	require.NoError(t, err)
	defer env.Close()

	require.IsType(t, &logfe.Frontend{}, env.Frontend)
	require.Len(t, env.Server.Buses, 2)
	require.Equal(t, SimBus, env.Server.Buses[1].Name)
	require.NotNil(t, env.Sims)
	require.Len(t, env.Sims.Boards, 1)
	require.Equal(t, "Thermo", env.Sims.Boards[0].Spec.Name)

	loop := fx.NewLoop()
	env.AddToLoop(loop)
	require.Equal(t, conf.LoopInterval, loop.Interval)
}

func TestNewEnvBadBroker(t *testing.T) {
	conf := defaultConfig
	conf.CANs = []string{"loop:env-bad"}
	conf.MQTTBrokerURL = "http://broker"
	_, err := conf.NewEnv()
	require.Error(t, err)
}

func TestListFlag(t *testing.T) {
	var items []string
	f := listFlag{&items}
	require.NoError(t, f.Set(" can0, ,can1 "))
	require.Equal(t, []string{"can0", "can1"}, items)
	require.Equal(t, "can0,can1", f.String())
}
