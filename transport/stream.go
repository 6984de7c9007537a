package transport

import (
	"errors"
	"io"
)

// ErrWouldBlock is returned by non-blocking streams when a read has no bytes
// available yet, or a write cannot accept any more right now. It is not the
// same thing as the peer closing the connection, which is io.EOF.
var ErrWouldBlock = errors.New("operation would block")

// Stream is everything the client needs from a connection.
//
// Write may accept fewer bytes than it was given without an error, callers
// retry with the remainder. Read returns whatever is available, up to
// len(p).
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
}

// Pollable is implemented by streams backed by a file descriptor that can
// be registered with a Poller.
type Pollable interface {
	Fd() int
}
