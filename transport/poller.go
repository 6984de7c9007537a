package transport

import (
	"encoding/binary"
	"fmt"
	"syscall"

	"go.uber.org/multierr"
)

// Interest is the readiness a caller waits for on a descriptor.
type Interest uint32

const (
	Readable Interest = syscall.EPOLLIN
	Writable Interest = syscall.EPOLLOUT
)

func (i Interest) String() string {
	switch i {
	case Readable:
		return "readable"
	case Writable:
		return "writable"
	case Readable | Writable:
		return "readable|writable"
	default:
		return fmt.Sprintf("interest(%#x)", uint32(i))
	}
}

// Event reports that Fd became ready. Events holds the raw epoll flags,
// hangups and errors included.
type Event struct {
	Fd     int
	Events uint32
}

func (e Event) Hangup() bool {
	return e.Events&(syscall.EPOLLHUP|syscall.EPOLLERR) != 0
}

// Poller waits for readiness on a set of descriptors with epoll.
//
// Every registration is one-shot: once a descriptor has been reported it
// stays silent until it is re-armed with Modify. A Poller is not safe for
// concurrent use, except for Wake.
type Poller struct {
	fd     int
	wakeFd int
	events []syscall.EpollEvent
}

const maxEvents = 128

func NewPoller() (*Poller, error) {
	var (
		poller Poller
		err    error
	)

	// Open an epoll fd
	// https://man7.org/linux/man-pages/man2/epoll_create.2.html
	poller.fd, err = syscall.EpollCreate1(syscall.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}

	// https://man7.org/linux/man-pages/man2/eventfd.2.html
	r0, _, e0 := syscall.Syscall(syscall.SYS_EVENTFD2, 0, syscall.O_NONBLOCK|syscall.O_CLOEXEC, 0)
	if e0 != 0 {
		syscall.Close(poller.fd)
		return nil, fmt.Errorf("eventfd2: %w", e0)
	}
	poller.wakeFd = int(r0)

	// The wake fd is the only level triggered registration
	event := &syscall.EpollEvent{
		Fd:     int32(poller.wakeFd),
		Events: syscall.EPOLLIN,
	}

	err = syscall.EpollCtl(poller.fd, syscall.EPOLL_CTL_ADD, poller.wakeFd, event)
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("epoll_ctl: %w", err), poller.Close())
	}

	poller.events = make([]syscall.EpollEvent, maxEvents)

	return &poller, nil
}

// Add registers fd and arms it for interest.
func (p *Poller) Add(fd int, interest Interest) error {
	return p.ctl(syscall.EPOLL_CTL_ADD, fd, interest)
}

// Modify re-arms an fd that was already added.
func (p *Poller) Modify(fd int, interest Interest) error {
	return p.ctl(syscall.EPOLL_CTL_MOD, fd, interest)
}

func (p *Poller) Remove(fd int) error {
	// Kernels before 2.6.9 want a non-nil event even for a delete
	return p.ctl(syscall.EPOLL_CTL_DEL, fd, 0)
}

func (p *Poller) ctl(op int, fd int, interest Interest) error {
	event := &syscall.EpollEvent{
		Fd:     int32(fd),
		Events: uint32(interest) | syscall.EPOLLONESHOT,
	}

	if err := syscall.EpollCtl(p.fd, op, fd, event); err != nil {
		return fmt.Errorf("epoll_ctl(%d, fd %d): %w", op, fd, err)
	}

	return nil
}

// Wait blocks for up to msec milliseconds, -1 meaning forever, and returns
// the descriptors that became ready. A call to Wake makes it return early,
// possibly with no events.
func (p *Poller) Wait(msec int) ([]Event, error) {
	n, err := syscall.EpollWait(p.fd, p.events, msec)
	if err == syscall.EINTR {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("epoll_wait: %w", err)
	}

	events := make([]Event, 0, n)

	for _, ev := range p.events[:n] {
		if int(ev.Fd) == p.wakeFd {
			p.drain()
			continue
		}

		events = append(events, Event{Fd: int(ev.Fd), Events: ev.Events})
	}

	return events, nil
}

// Wake interrupts a concurrent or the next call to Wait. It is safe to call
// from any goroutine.
func (p *Poller) Wake() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)

	_, err := syscall.Write(p.wakeFd, buf[:])
	if err == syscall.EAGAIN {
		// The counter is saturated, Wait will wake up anyway
		return nil
	}

	return err
}

func (p *Poller) drain() {
	var buf [8]byte
	syscall.Read(p.wakeFd, buf[:])
}

func (p *Poller) Close() error {
	return multierr.Combine(
		syscall.Close(p.wakeFd),
		syscall.Close(p.fd),
	)
}
