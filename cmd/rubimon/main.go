package main

import (
	"context"
	"flag"
	"log"

	"github.com/robotalks/rubi.go/pkg/env"
	fx "github.com/robotalks/rubi.go/pkg/framework"
	"github.com/robotalks/rubi.go/pkg/frontend/mqtt"
	"github.com/robotalks/rubi.go/pkg/monitor"
)

var (
	wsAddr = ""
	wsPath = "/stream"
)

func init() {
	env.SetupClientFlags()
	flag.StringVar(&wsAddr, "ws", wsAddr, "Also serve decoded lines to websocket clients on this address.")
	flag.StringVar(&wsPath, "ws-path", wsPath, "Websocket stream path.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conf := env.NewClientConfig()
	opts, prefix, err := mqtt.ClientOptionsFromURL(conf.BrokerURL)
	if err != nil {
		log.Fatalln(err)
	}
	q := mqtt.NewQueue(opts, prefix)

	stream := monitor.NewStream()
	q.Subscribe("#", func(topic string, payload []byte) {
		line := mqtt.Describe(topic, payload)
		log.Println(line)
		stream.Publish(line)
	})

	runner := fx.NewRunnerWith(context.Background()).HandleSignals().Go(q)
	if wsAddr != "" {
		runner.Go(fx.NamedRun("ws", fx.RunnableFunc(func(ctx context.Context) error {
			return stream.Serve(ctx, wsAddr, wsPath)
		})))
	}
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
