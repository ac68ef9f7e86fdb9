package mqtt

import (
	"fmt"

	"github.com/robotalks/rubi.go/pkg/boards"
	"github.com/robotalks/rubi.go/pkg/descriptor"
	pb "github.com/robotalks/rubi.go/pkg/proto/rubi/v1"
)

// request is posted into the loop by broker callbacks.
type request interface {
	apply() error
}

func (h *boardHandler) connection() (*boards.Connection, error) {
	c := h.inst.Connection()
	if c == nil || c.IsDead() {
		return nil, fmt.Errorf("%s: %w", h.inst, ErrNoConnection)
	}
	return c, nil
}

// entryRequest writes a field or calls a function.
type entryRequest struct {
	h     *boardHandler
	kind  descriptor.Kind
	name  string
	value *pb.FieldValue
}

func (r *entryRequest) apply() error {
	c, err := r.h.connection()
	if err != nil {
		return err
	}
	e := r.h.inst.Descriptor.Lookup(r.name)
	if e == nil || e.Kind != r.kind {
		return fmt.Errorf("%s: %w: %s %s", r.h.inst, boards.ErrNoEntry, r.kind, r.name)
	}
	data := r.value.Raw
	if len(data) == 0 {
		if data, err = e.EncodeValues(r.value.Values); err != nil {
			return fmt.Errorf("%s: %w", r.h.inst, err)
		}
	}
	if r.kind == descriptor.KindField {
		err = c.WriteField(e.Index, data)
	} else {
		err = c.CallFunction(e.Index, data)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", r.h.inst, err)
	}
	return nil
}

// commandRequest sends a power command.
type commandRequest struct {
	h    *boardHandler
	kind pb.CommandKind
}

func (r *commandRequest) apply() error {
	c, err := r.h.connection()
	if err != nil {
		return err
	}
	switch r.kind {
	case pb.CommandKind_SLEEP:
		c.CommandSleep()
	case pb.CommandKind_WAKE:
		c.CommandWake()
	case pb.CommandKind_REBOOT:
		c.CommandReboot()
	default:
		return fmt.Errorf("%s: unknown command %s", r.h.inst, r.kind)
	}
	return nil
}
