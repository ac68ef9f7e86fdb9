package boards

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEntry indicates the index isn't a field or function of the board.
	ErrNoEntry = errors.New("boards: no such entry")
	// ErrNotWritable indicates a write to a read-only field.
	ErrNotWritable = errors.New("boards: field not writable")
	// ErrDataSize indicates the data doesn't match the entry size.
	ErrDataSize = errors.New("boards: wrong data size")
	// ErrConnectionDead indicates the connection has been declared dead.
	ErrConnectionDead = errors.New("boards: connection dead")
	// ErrNotOperational indicates the connection hasn't completed registration.
	ErrNotOperational = errors.New("boards: connection not operational")
)

// ConflictError is a configuration conflict no retry can fix: two boards
// claiming one name with different descriptors, or an exhausted address pool.
type ConflictError struct {
	Board  string
	Detail string
}

// Error implements error.
func (e *ConflictError) Error() string {
	if e.Board == "" {
		return "configuration conflict: " + e.Detail
	}
	return fmt.Sprintf("descriptor conflict for board %s: %s", e.Board, e.Detail)
}

// IsConflict tells whether err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}
