package client

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches any exchange that failed because the stream did.
	ErrTransport = errors.New("transport failure")

	// ErrMalformedReply matches any exchange that failed because the reply
	// broke the grammar.
	ErrMalformedReply = errors.New("malformed reply")

	// ErrConnBroken is returned for exchanges attempted on a connection
	// whose previous exchange failed or was abandoned.
	ErrConnBroken = errors.New("connection is broken")

	ErrAbandoned = errors.New("exchange was abandoned")
	ErrNotDone   = errors.New("exchange has not completed")
)

type FailureKind int

const (
	FailureTransport FailureKind = iota + 1
	FailureMalformed
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// ExchangeError is the failure of a single exchange. The connection it
// happened on must not be used again.
type ExchangeError struct {
	Kind FailureKind

	// Op is the step that failed: write, read, parse or poll
	Op string

	// Command is the keyword of the command being executed
	Command string

	Err error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s %s failed (%s): %v", e.Command, e.Op, e.Kind, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

func (e *ExchangeError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == FailureTransport
	case ErrMalformedReply:
		return e.Kind == FailureMalformed
	default:
		return false
	}
}

// ConnectError is returned by Open when the connection cannot be made.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
