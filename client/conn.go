package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/respkit/protocol"
	"github.com/luma/respkit/transport"
)

// Mode selects the kind of stream Open creates, and with it which
// executor the connection is meant for.
type Mode int

const (
	// ModeBlocking streams suspend the calling goroutine inside every read
	// and write. Use them with Execute.
	ModeBlocking Mode = iota

	// ModeCooperative streams never block, they are driven by a Loop.
	ModeCooperative
)

func (m Mode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModeCooperative:
		return "cooperative"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "blocking":
		return ModeBlocking, nil
	case "cooperative":
		return ModeCooperative, nil
	default:
		return 0, fmt.Errorf("unknown mode %q, expected blocking or cooperative", s)
	}
}

type Options struct {
	transport.Options

	Mode Mode
}

// Conn is a connection to a server. It runs one exchange at a time and
// keeps the bytes read past the end of a reply for the next one.
//
// A Conn is not safe for concurrent use. Once an exchange on it fails it is
// broken for good, close it and open another.
type Conn struct {
	stream transport.Stream
	state  protocol.ParseState

	addr   string
	broken error

	loop *Loop

	log *zap.Logger
}

// Open connects to host:port. Failures are returned as a *ConnectError.
func Open(ctx context.Context, host string, port int, options Options) (*Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var (
		stream transport.Stream
		err    error
	)

	switch options.Mode {
	case ModeCooperative:
		stream, err = transport.DialNonblocking(ctx, host, port, options.Options)
	default:
		stream, err = transport.Dial(ctx, host, port, options.Options)
	}

	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	conn := NewConn(stream, options.Log)
	conn.addr = addr
	conn.log = conn.log.With(zap.String("addr", addr))

	return conn, nil
}

// NewConn wraps an already established stream.
func NewConn(stream transport.Stream, log *zap.Logger) *Conn {
	if log == nil {
		log = zap.NewNop()
	}

	return &Conn{
		stream: stream,
		log:    log.Named("conn"),
	}
}

func (c *Conn) Addr() string {
	return c.addr
}

// Buffered returns the number of bytes read from the server that have not
// been parsed into a reply yet.
func (c *Conn) Buffered() int {
	return c.state.Len()
}

// Broken returns the reason the connection can no longer be used, or nil.
func (c *Conn) Broken() error {
	return c.broken
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// SetDeadline bounds the reads and writes of blocking exchanges. It does
// nothing for streams without deadlines, cooperative exchanges are bounded
// by the context given to the Loop instead.
func (c *Conn) SetDeadline(t time.Time) error {
	if d, ok := c.stream.(deadliner); ok {
		return d.SetDeadline(t)
	}

	return nil
}

func (c *Conn) markBroken(err error) {
	if c.broken == nil {
		c.broken = err
	}
}

// Close releases the stream. Exchanges still queued for the connection on a
// Loop are abandoned.
func (c *Conn) Close() error {
	var err error

	if c.loop != nil {
		err = c.loop.forget(c)
	}

	c.markBroken(net.ErrClosed)
	c.state.Reset()

	return multierr.Append(err, c.stream.Close())
}
