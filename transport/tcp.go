package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Dial opens a TCP connection whose reads and writes block the calling
// goroutine until the OS satisfies them.
func Dial(ctx context.Context, host string, port int, options Options) (Stream, error) {
	conn, err := dial(ctx, host, port, options)
	if err != nil {
		return nil, err
	}

	return Wrap(conn, options), nil
}

// DialNonblocking opens a TCP connection and hands its descriptor over to a
// RawStream, for use with a Poller. Connection establishment itself still
// blocks until it succeeds, fails or ctx is done.
func DialNonblocking(ctx context.Context, host string, port int, options Options) (Stream, error) {
	conn, err := dial(ctx, host, port, options)
	if err != nil {
		return nil, err
	}

	fd, err := detach(conn)
	if err != nil {
		return nil, err
	}

	stream, err := NewRawStream(fd)
	if err != nil {
		syscall.Close(fd)
		return nil, err
	}

	return Wrap(stream, options), nil
}

func dial(ctx context.Context, host string, port int, options Options) (*net.TCPConn, error) {
	dialer := net.Dialer{
		Timeout:   options.DialTimeout,
		KeepAlive: options.KeepAlive,
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	options.logger().Debug("Connected", zap.String("addr", addr))

	return conn.(*net.TCPConn), nil
}

// detach takes a private copy of the connection's descriptor and closes the
// runtime's copy, so the Go netpoller no longer knows about it.
func detach(conn *net.TCPConn) (fd int, err error) {
	file, err := conn.File()
	if err != nil {
		conn.Close()
		return -1, fmt.Errorf("failed to get connection file: %w", err)
	}

	fd, err = syscall.Dup(int(file.Fd()))
	if err != nil {
		fd = -1
		err = fmt.Errorf("failed to dup connection fd: %w", err)
	} else {
		syscall.CloseOnExec(fd)
	}

	if cerr := multierr.Combine(file.Close(), conn.Close()); cerr != nil {
		if fd >= 0 {
			syscall.Close(fd)
		}

		return -1, multierr.Append(err, cerr)
	}

	return fd, err
}
