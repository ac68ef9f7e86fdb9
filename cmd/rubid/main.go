package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/rubi.go/pkg/env"
	fx "github.com/robotalks/rubi.go/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	e := env.MustNewConfig().MustNewEnv()
	loop := fx.NewLoop().Add(e)
	err := fx.NewRunner().HandleSignals().Go(loop).Wait()
	if cerr := e.Close(); cerr != nil {
		glog.Warningf("close: %v", cerr)
	}
	if err != nil {
		glog.Errorf("stopped: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}
