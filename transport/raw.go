package transport

import (
	"fmt"
	"io"
	"syscall"
)

// RawStream is a non-blocking socket used directly through syscalls. Reads
// and writes never block, they return ErrWouldBlock instead.
type RawStream struct {
	fd int
}

// NewRawStream takes ownership of fd and switches it to non-blocking mode.
func NewRawStream(fd int) (*RawStream, error) {
	if err := syscall.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("failed to set O_NONBLOCK: %w", err)
	}

	return &RawStream{fd: fd}, nil
}

func (s *RawStream) Fd() int {
	return s.fd
}

func (s *RawStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		n, err := syscall.Read(s.fd, p)

		switch {
		case err == syscall.EINTR:
			continue
		case err == syscall.EAGAIN:
			return 0, ErrWouldBlock
		case err != nil:
			return 0, fmt.Errorf("read: %w", err)
		case n == 0:
			return 0, io.EOF
		}

		return n, nil
	}
}

// Write writes as much of p as the socket buffer accepts. It returns
// ErrWouldBlock only when nothing could be written.
func (s *RawStream) Write(p []byte) (int, error) {
	for {
		n, err := syscall.Write(s.fd, p)

		switch {
		case err == syscall.EINTR:
			continue
		case err == syscall.EAGAIN:
			return 0, ErrWouldBlock
		case err != nil:
			return 0, fmt.Errorf("write: %w", err)
		}

		return n, nil
	}
}

func (s *RawStream) Close() error {
	if s.fd < 0 {
		return nil
	}

	err := syscall.Close(s.fd)
	s.fd = -1
	return err
}
