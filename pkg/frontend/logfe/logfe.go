// Package logfe is a frontend that only logs, used when no broker is
// configured.
package logfe

import (
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/rubi.go/pkg/boards"
	"github.com/robotalks/rubi.go/pkg/descriptor"
)

// Frontend logs everything through glog.
type Frontend struct {
	boards []*board
}

// New creates a Frontend.
func New() *Frontend {
	return &Frontend{}
}

// LogInfo implements boards.Logger.
func (f *Frontend) LogInfo(msg string) { glog.Info(msg) }

// LogWarning implements boards.Logger.
func (f *Frontend) LogWarning(msg string) { glog.Warning(msg) }

// LogError implements boards.Logger.
func (f *Frontend) LogError(msg string) { glog.Error(msg) }

// NewBoard implements boards.Frontend.
func (f *Frontend) NewBoard(inst *boards.Instance) boards.BoardHandler {
	glog.Infof("board %s online", inst)
	b := &board{inst: inst}
	f.boards = append(f.boards, b)
	return b
}

// ReportBusLoad implements boards.Frontend.
func (f *Frontend) ReportBusLoad(loads []boards.BusLoad) {
	for _, load := range loads {
		glog.V(1).Infof("bus %s: %.1f B/s", load.Bus, load.BytesPerSecond)
	}
}

// Boards returns the instances seen so far.
func (f *Frontend) Boards() []*boards.Instance {
	insts := make([]*boards.Instance, len(f.boards))
	for n, b := range f.boards {
		insts[n] = b.inst
	}
	return insts
}

type board struct {
	inst *boards.Instance
	// last holds the last decoded values by entry index.
	last map[int][]string
}

func (b *board) FieldDataInbound(index int, data []byte) {
	e := b.inst.Descriptor.Entry(index)
	if e == nil {
		return
	}
	var values []string
	var err error
	if e.Kind == descriptor.KindField {
		values, err = e.DecodeValues(data)
	} else {
		values, err = e.DecodeOutput(data)
	}
	if err != nil {
		glog.Warningf("board %s: %s: %v", b.inst, e.Name, err)
		return
	}
	if b.last == nil {
		b.last = make(map[int][]string)
	}
	b.last[index] = values
	glog.V(1).Infof("board %s: %s = %s", b.inst, e.Name, strings.Join(values, ", "))
}

func (b *board) ReplaceBackend(c *boards.Connection) {
	glog.Infof("board %s now served by %s", b.inst, c)
}

func (b *board) Shutdown() {
	glog.Infof("board %s shut down", b.inst)
}

func (b *board) ConnectionLost() {
	if c := b.inst.Reresolve(); c == nil {
		glog.Warningf("board %s lost, no replacement", b.inst)
	}
}

// Last returns the last values received for a field or function.
func (f *Frontend) Last(inst *boards.Instance, name string) []string {
	for _, b := range f.boards {
		if b.inst == inst {
			if e := inst.Descriptor.Lookup(name); e != nil {
				return b.last[e.Index]
			}
		}
	}
	return nil
}
