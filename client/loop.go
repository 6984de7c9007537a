package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/respkit/protocol"
	"github.com/luma/respkit/transport"
)

// maxWait caps a single poll while a cancellable context is being watched,
// so cancellation is noticed without a helper goroutine.
const maxWait = 250 * time.Millisecond

// Pending is an exchange submitted to a Loop.
type Pending struct {
	conn *Conn
	cmd  protocol.Command
	ex   *exchange

	done bool
	resp protocol.Response
	err  error
}

func (p *Pending) Done() bool {
	return p.done
}

// Result returns the reply or the failure of the exchange, or ErrNotDone
// while it is still in flight.
func (p *Pending) Result() (protocol.Response, error) {
	if !p.done {
		return protocol.Nothing(), ErrNotDone
	}

	return p.resp, p.err
}

// Loop runs exchanges on many connections from a single goroutine. An
// exchange runs until its stream would block, then the loop moves on to
// other work and resumes it once the poller reports the stream ready.
//
// Exchanges on the same connection run strictly one after the other, in
// submission order. A Loop is not safe for concurrent use, except for
// Interrupt.
type Loop struct {
	poller *transport.Poller

	conns map[*Conn]struct{}

	// Per connection FIFO, the head is the exchange in progress
	queues map[*Conn][]*Pending

	// Runnable on this turn
	ready []*Pending

	// Suspended until their fd is reported ready
	waiting    map[int]*Pending
	registered map[int]bool

	// Suspended on streams that cannot be polled, retried on the next turn
	yielded []*Pending

	outstanding int

	log *zap.Logger
}

func NewLoop(log *zap.Logger) (*Loop, error) {
	if log == nil {
		log = zap.NewNop()
	}

	poller, err := transport.NewPoller()
	if err != nil {
		return nil, fmt.Errorf("failed to create poller: %w", err)
	}

	return &Loop{
		poller:     poller,
		conns:      make(map[*Conn]struct{}),
		queues:     make(map[*Conn][]*Pending),
		waiting:    make(map[int]*Pending),
		registered: make(map[int]bool),
		log:        log.Named("loop"),
	}, nil
}

// Submit queues cmd for conn. Nothing happens until Run or Execute is
// called.
func (l *Loop) Submit(conn *Conn, cmd protocol.Command) *Pending {
	p := &Pending{conn: conn, cmd: cmd}

	queue := l.queues[conn]
	l.queues[conn] = append(queue, p)

	if len(queue) == 0 {
		l.ready = append(l.ready, p)
	}

	conn.loop = l
	l.conns[conn] = struct{}{}
	l.outstanding++

	return p
}

// Run drives every submitted exchange until all of them are done or ctx
// is. Exchanges still in flight when ctx ends can be resumed by calling Run
// again.
func (l *Loop) Run(ctx context.Context) error {
	return l.run(ctx, func() bool { return l.outstanding == 0 })
}

// Execute submits cmd and runs the loop until its reply is in. Other
// submitted exchanges make progress meanwhile.
//
// If ctx ends first the exchange is abandoned and conn is broken.
func (l *Loop) Execute(ctx context.Context, conn *Conn, cmd protocol.Command) (protocol.Response, error) {
	p := l.Submit(conn, cmd)

	if err := l.run(ctx, p.Done); err != nil {
		l.abandon(conn, err)
		return protocol.Nothing(), err
	}

	return p.Result()
}

// Interrupt makes a Run blocked in the poller check its context again. It
// is safe to call from any goroutine.
func (l *Loop) Interrupt() error {
	return l.poller.Wake()
}

func (l *Loop) run(ctx context.Context, finished func() bool) error {
	for {
		for len(l.ready) > 0 {
			ready := l.ready
			l.ready = nil

			for _, p := range ready {
				l.step(p)
			}
		}

		if finished() {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if err := l.poll(ctx); err != nil {
			return err
		}
	}
}

func (l *Loop) poll(ctx context.Context) error {
	timeout := -1

	switch {
	case len(l.yielded) > 0:
		timeout = 0
	case ctx.Done() != nil:
		timeout = int(maxWait / time.Millisecond)

		if deadline, ok := ctx.Deadline(); ok {
			switch until := time.Until(deadline); {
			case until <= 0:
				timeout = 0
			case until < maxWait:
				timeout = int(until/time.Millisecond) + 1
			}
		}
	case len(l.waiting) == 0:
		return fmt.Errorf("%d exchanges outstanding but none can make progress", l.outstanding)
	}

	events, err := l.poller.Wait(timeout)
	if err != nil {
		return err
	}

	for _, ev := range events {
		p, ok := l.waiting[ev.Fd]
		if !ok {
			continue
		}

		delete(l.waiting, ev.Fd)
		l.ready = append(l.ready, p)
	}

	l.ready = append(l.ready, l.yielded...)
	l.yielded = nil

	return nil
}

func (l *Loop) step(p *Pending) {
	if p.done {
		return
	}

	if p.ex == nil {
		ex, err := begin(p.conn, p.cmd, ModeCooperative)
		if err != nil {
			l.complete(p, protocol.Nothing(), err)
			return
		}

		p.ex = ex
	}

	resp, interest, err := p.ex.advance()

	switch {
	case err != nil:
		l.complete(p, resp, err)

	case interest != 0:
		l.suspend(p, interest)

	default:
		l.complete(p, resp, nil)
	}
}

func (l *Loop) suspend(p *Pending, interest transport.Interest) {
	pollable, ok := p.conn.stream.(transport.Pollable)
	if !ok {
		l.yielded = append(l.yielded, p)
		return
	}

	fd := pollable.Fd()

	var err error
	if l.registered[fd] {
		err = l.poller.Modify(fd, interest)
	} else if err = l.poller.Add(fd, interest); err == nil {
		l.registered[fd] = true
	}

	if err != nil {
		resp, _, err := p.ex.fail(FailureTransport, "poll", err)
		l.complete(p, resp, err)
		return
	}

	l.waiting[fd] = p
}

// complete settles p and starts the next exchange queued on its connection.
func (l *Loop) complete(p *Pending, resp protocol.Response, err error) {
	p.done = true
	p.resp = resp
	p.err = err
	l.outstanding--

	queue := l.queues[p.conn]
	if len(queue) == 0 || queue[0] != p {
		return
	}

	queue = queue[1:]
	if len(queue) == 0 {
		delete(l.queues, p.conn)
		return
	}

	l.queues[p.conn] = queue
	l.ready = append(l.ready, queue[0])
}

// abandon settles every exchange queued on conn with ErrAbandoned and
// breaks conn, its stream may hold half an exchange.
func (l *Loop) abandon(conn *Conn, cause error) {
	queue := l.queues[conn]
	delete(l.queues, conn)

	if len(queue) == 0 {
		return
	}

	for _, p := range queue {
		if !p.done {
			p.done = true
			p.resp = protocol.Nothing()
			p.err = fmt.Errorf("%w: %v", ErrAbandoned, cause)
			l.outstanding--
		}
	}

	conn.markBroken(ErrAbandoned)
	l.unwait(conn)
}

func (l *Loop) unwait(conn *Conn) {
	if pollable, ok := conn.stream.(transport.Pollable); ok {
		delete(l.waiting, pollable.Fd())
	}

	kept := l.yielded[:0]
	for _, p := range l.yielded {
		if p.conn != conn {
			kept = append(kept, p)
		}
	}
	l.yielded = kept
}

// forget removes conn from the loop before its stream is closed.
func (l *Loop) forget(conn *Conn) error {
	l.abandon(conn, net.ErrClosed)
	delete(l.conns, conn)
	conn.loop = nil

	pollable, ok := conn.stream.(transport.Pollable)
	if !ok {
		return nil
	}

	fd := pollable.Fd()
	if !l.registered[fd] {
		return nil
	}

	delete(l.registered, fd)
	return l.poller.Remove(fd)
}

// Close abandons everything still queued and releases the poller. The
// connections stay open, they are the caller's to close.
func (l *Loop) Close() error {
	var err error

	for conn := range l.conns {
		err = multierr.Append(err, l.forget(conn))
	}

	return multierr.Append(err, l.poller.Close())
}
