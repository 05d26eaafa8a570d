package unii

import (
	"errors"
	"fmt"
)

// ErrConnect indicates the TCP connection or the session handshake
// could not be established. Callers should back off and retry later.
var ErrConnect = errors.New("unii: connect failed")

// ErrBusy indicates the panel denied the session handshake because a
// stale session still occupies the connection slot, on both attempts.
var ErrBusy = errors.New("unii: session slot busy")

// ErrProtocol indicates a malformed frame on the wire: a declared
// length outside the sane bounds, a short read mid-frame, or a
// checksum mismatch. The connection is torn down.
var ErrProtocol = errors.New("unii: protocol error")

// ErrTimeout indicates the expected response did not arrive within the
// deadline. The connection is torn down so the next call reconnects
// with fresh session state.
var ErrTimeout = errors.New("unii: response timeout")

// ErrClosed indicates an operation was attempted on a client that is
// not connected.
var ErrClosed = errors.New("unii: not connected")

// Result is the outcome code carried in bypass/unbypass responses.
type Result byte

const (
	ResultSuccess    Result = 0x01
	ResultAuthFailed Result = 0x02
	ResultNotAllowed Result = 0x03
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultAuthFailed:
		return "authentication failed"
	case ResultNotAllowed:
		return "not allowed"
	default:
		return fmt.Sprintf("failure (code %d)", byte(r))
	}
}

// CommandFailure is returned when the panel answers a command with a
// well-formed response carrying a non-success result code. The
// connection remains usable afterwards.
type CommandFailure struct {
	Command Command
	Result  Result
}

func (e *CommandFailure) Error() string {
	return fmt.Sprintf("unii: %s failed: %s", e.Command, e.Result)
}
