package transport

import (
	"time"

	"go.uber.org/zap"
)

type Options struct {
	// DialTimeout bounds connection establishment. Zero means no timeout
	// beyond the one carried by the context.
	DialTimeout time.Duration

	// KeepAlive is the TCP keep-alive period. Zero uses the OS default,
	// negative disables it.
	KeepAlive time.Duration

	// Trace will log every byte read and written. This is only useful in
	// local debugging
	Trace bool

	Log *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}

	return o.Log
}
