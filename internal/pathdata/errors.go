package pathdata

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedPath    = errors.New("malformed path")
	ErrIndexOutOfRange  = errors.New("path command index out of range")
	ErrNotABezier       = errors.New("path command is not a cubic bezier")
	ErrInvalidSlot      = errors.New("bezier control slot must be 1 or 2")
	ErrNoEndpoint       = errors.New("path command has no endpoint")
	ErrInvalidParameter = errors.New("segment parameter must be within (0, 1)")
)

// MalformedPathError reports where parsing of path data stopped.
type MalformedPathError struct {
	Pos int  // byte offset into the input
	Cmd byte // command being parsed, 0 if none
	Msg string
}

func (e *MalformedPathError) Error() string {
	if e.Cmd == 0 {
		return fmt.Sprintf("malformed path at %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("malformed path at %d in %q: %s", e.Pos, e.Cmd, e.Msg)
}

func (e *MalformedPathError) Unwrap() error { return ErrMalformedPath }

func malformed(pos int, cmd byte, format string, args ...any) error {
	return &MalformedPathError{Pos: pos, Cmd: cmd, Msg: fmt.Sprintf(format, args...)}
}
