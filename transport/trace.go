package transport

import (
	"time"

	"go.uber.org/zap"
)

// Wrap returns stream unchanged unless options.Trace is set, in which case
// every read and write is logged. A pollable stream stays pollable.
func Wrap(stream Stream, options Options) Stream {
	if !options.Trace {
		return stream
	}

	traced := tracer{Stream: stream, log: options.logger().Named("trace")}

	if pollable, ok := stream.(Pollable); ok {
		return &pollableTracer{tracer: traced, fd: pollable.Fd}
	}

	return &traced
}

type tracer struct {
	Stream
	log *zap.Logger
}

func (t *tracer) Read(p []byte) (int, error) {
	n, err := t.Stream.Read(p)
	t.log.Debug("read", zap.ByteString("data", p[:n]), zap.Error(err))
	return n, err
}

func (t *tracer) Write(p []byte) (int, error) {
	n, err := t.Stream.Write(p)
	t.log.Debug("write", zap.ByteString("data", p[:n]), zap.Error(err))
	return n, err
}

// SetDeadline is passed through to streams that support it.
func (t *tracer) SetDeadline(deadline time.Time) error {
	if d, ok := t.Stream.(interface{ SetDeadline(time.Time) error }); ok {
		return d.SetDeadline(deadline)
	}

	return nil
}

type pollableTracer struct {
	tracer
	fd func() int
}

func (t *pollableTracer) Fd() int {
	return t.fd()
}
