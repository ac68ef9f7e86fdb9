package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

// MachineID identifies the machine, scoped to rubi so the raw id isn't
// exposed. It falls back to the hostname when no machine id exists,
// e.g. in minimal containers.
func MachineID() string {
	if id, err := machineid.ProtectedID("rubi"); err == nil {
		return id[:16]
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "rubi"
}
