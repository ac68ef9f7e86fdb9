package env

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/robotalks/rubi.go/pkg/frontend/mqtt"
)

// ClientConfig provides the options of tools talking to a server.
type ClientConfig struct {
	// BrokerURL is the broker the server publishes to.
	BrokerURL string
	// Board preselects a board as name or name:id.
	Board string
}

var defaultClientConfig = ClientConfig{
	BrokerURL: "mqtt://localhost:1883/rubi/",
}

func init() {
	if val := os.Getenv("RUBI_MQTT_URL"); val != "" {
		defaultClientConfig.BrokerURL = val
	}
	if val := os.Getenv("RUBI_BOARD"); val != "" {
		defaultClientConfig.Board = val
	}
}

// SetupClientFlags binds the client flags to the defaults.
func SetupClientFlags() {
	flag.StringVar(&defaultClientConfig.BrokerURL, "mqtt", defaultClientConfig.BrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultClientConfig.Board, "board", defaultClientConfig.Board, "Board to use, name or name:id")
}

// NewClientConfig creates a ClientConfig with default configurations.
func NewClientConfig() *ClientConfig {
	conf := defaultClientConfig
	return &conf
}

// Connect creates a Connector and connects it to the broker.
func (c *ClientConfig) Connect(ctx context.Context) (*mqtt.Connector, *mqtt.Queue, error) {
	connector, q, err := mqtt.NewConnector(c.BrokerURL)
	if err != nil {
		return nil, nil, err
	}
	if err := q.Connect(ctx); err != nil {
		return nil, nil, err
	}
	return connector, q, nil
}

// MustConnect connects and fails on error.
func (c *ClientConfig) MustConnect(ctx context.Context) (*mqtt.Connector, *mqtt.Queue) {
	connector, q, err := c.Connect(ctx)
	if err != nil {
		log.Fatalln(err)
	}
	return connector, q
}
