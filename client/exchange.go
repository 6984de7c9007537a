package client

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/luma/respkit/protocol"
	"github.com/luma/respkit/transport"
)

// readChunk is how much spare room is offered to every read.
const readChunk = 4096

// exchange is one command and its reply on a connection. Both executors
// drive the same exchange, they only differ in what they do when advance
// asks to wait.
type exchange struct {
	conn    *Conn
	mode    Mode
	keyword string

	out     []byte
	written int

	started time.Time
}

func begin(conn *Conn, cmd protocol.Command, mode Mode) (*exchange, error) {
	if conn.broken != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnBroken, conn.broken)
	}

	ex := &exchange{
		conn:    conn,
		mode:    mode,
		keyword: cmd.Args()[0],
		out:     protocol.Encode(cmd),
		started: time.Now(),
	}

	if ce := conn.log.Check(zap.DebugLevel, "Exchange started"); ce != nil {
		ce.Write(zap.Stringer("mode", mode), zap.String("cmd", protocol.Humanize(cmd)))
	}

	return ex, nil
}

// advance writes whatever is left of the request, then reads until a whole
// reply is parsed. When the stream would block it returns the readiness to
// wait for, and the exchange resumes where it stopped on the next call.
//
// Streams in blocking mode are not expected to ever report would-block, if
// one does the exchange fails.
func (e *exchange) advance() (protocol.Response, transport.Interest, error) {
	for e.written < len(e.out) {
		n, err := e.conn.stream.Write(e.out[e.written:])
		e.written += n
		bytesWritten.Add(n)

		switch {
		case errors.Is(err, transport.ErrWouldBlock):
			if e.mode == ModeBlocking {
				return e.fail(FailureTransport, "write", err)
			}

			e.suspended(transport.Writable)
			return protocol.Nothing(), transport.Writable, nil

		case err != nil:
			return e.fail(FailureTransport, "write", err)

		case n == 0:
			return e.fail(FailureTransport, "write", io.ErrShortWrite)
		}
	}

	for {
		resp, err := e.conn.state.Next()
		if err == nil {
			return e.finish(resp)
		}

		if !errors.Is(err, protocol.ErrIncomplete) {
			return e.fail(FailureMalformed, "parse", err)
		}

		n, err := e.conn.stream.Read(e.conn.state.Spare(readChunk))
		e.conn.state.Commit(n)
		bytesRead.Add(n)

		switch {
		case errors.Is(err, transport.ErrWouldBlock):
			if e.mode == ModeBlocking {
				return e.fail(FailureTransport, "read", err)
			}

			e.suspended(transport.Readable)
			return protocol.Nothing(), transport.Readable, nil

		case errors.Is(err, io.EOF):
			// The last read may carry the end of the reply along with EOF
			if n > 0 {
				if resp, err := e.conn.state.Next(); err == nil {
					return e.finish(resp)
				} else if !errors.Is(err, protocol.ErrIncomplete) {
					return e.fail(FailureMalformed, "parse", err)
				}
			}

			return e.fail(FailureTransport, "read", io.ErrUnexpectedEOF)

		case err != nil:
			return e.fail(FailureTransport, "read", err)
		}
	}
}

func (e *exchange) suspended(interest transport.Interest) {
	e.conn.log.Debug("Exchange would block",
		zap.String("cmd", e.keyword),
		zap.Stringer("waiting", interest),
		zap.Int("written", e.written),
		zap.Int("buffered", e.conn.state.Len()))
}

func (e *exchange) finish(resp protocol.Response) (protocol.Response, transport.Interest, error) {
	outcome := "ok"
	if resp.Kind == protocol.KindError {
		outcome = "reply_error"
	}

	observe(e.mode, e.keyword, outcome, e.started)

	e.conn.log.Debug("Exchange finished",
		zap.String("cmd", e.keyword),
		zap.Stringer("kind", resp.Kind),
		zap.Duration("took", time.Since(e.started)))

	return resp, 0, nil
}

// fail aborts the exchange and breaks the connection, the stream may be
// desynchronised from the reply framing.
func (e *exchange) fail(kind FailureKind, op string, err error) (protocol.Response, transport.Interest, error) {
	failure := &ExchangeError{
		Kind:    kind,
		Op:      op,
		Command: e.keyword,
		Err:     err,
	}

	e.conn.markBroken(failure)
	observe(e.mode, e.keyword, kind.String(), e.started)

	e.conn.log.Debug("Exchange failed", zap.Error(failure))

	return protocol.Nothing(), 0, failure
}
