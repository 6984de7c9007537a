package client

import (
	"context"

	"go.uber.org/multierr"

	"github.com/luma/respkit/protocol"
)

// Execute sends cmd on conn and waits for its reply, blocking the calling
// goroutine inside every read and write.
//
// An error reply from the server is a successful exchange, it is returned
// as a Response of KindError. The returned error is an *ExchangeError when
// the exchange failed, which also breaks conn.
//
// Commands carrying a server side timeout, such as a blocking pop, are not
// timed locally: Execute waits until the server answers or the stream
// fails.
func Execute(conn *Conn, cmd protocol.Command) (protocol.Response, error) {
	ex, err := begin(conn, cmd, ModeBlocking)
	if err != nil {
		return protocol.Nothing(), err
	}

	resp, _, err := ex.advance()
	return resp, err
}

// Send opens a connection, executes cmd with the executor matching
// options.Mode and closes the connection again.
//
// A deadline on ctx also bounds the exchange when the stream supports
// deadlines, or when running cooperatively.
func Send(ctx context.Context, host string, port int, cmd protocol.Command, options Options) (resp protocol.Response, err error) {
	conn, err := Open(ctx, host, port, options)
	if err != nil {
		return protocol.Nothing(), err
	}

	defer func() {
		err = multierr.Append(err, conn.Close())
	}()

	if options.Mode == ModeCooperative {
		loop, lerr := NewLoop(options.Log)
		if lerr != nil {
			return protocol.Nothing(), lerr
		}

		defer func() {
			err = multierr.Append(err, loop.Close())
		}()

		return loop.Execute(ctx, conn, cmd)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return protocol.Nothing(), err
		}
	}

	return Execute(conn, cmd)
}
