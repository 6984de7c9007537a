package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	ErrUnexpectedWrite = errors.New("unexpected write")
	ErrClosed          = errors.New("stream is closed")
)

type scripted struct {
	request []byte
	replies [][]byte
}

// MemoryStream is an in-memory Stream that plays a scripted conversation:
// each expected request, once fully written, releases its reply chunks to
// the reader. It is meant for tests.
//
// A non-blocking MemoryStream reports ErrWouldBlock once before every reply
// chunk and once after every partial write, the way a socket does when the
// peer is slower than the caller.
type MemoryStream struct {
	mu sync.Mutex

	nonblocking bool
	writeLimit  int

	script  []scripted
	pending []byte
	written []byte
	chunks  [][]byte

	readStarved  bool
	writeStarved bool

	readErr error
	closed  bool
}

func NewMemoryStream(nonblocking bool) *MemoryStream {
	return &MemoryStream{nonblocking: nonblocking}
}

// Expect queues a request and the chunks of its reply. The chunks are
// concatenated on the wire, how they are split only controls how many
// reads it takes to receive them.
func (m *MemoryStream) Expect(request []byte, replies ...[]byte) *MemoryStream {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, scripted{request: request, replies: replies})
	return m
}

// SetWriteLimit caps how many bytes a single Write accepts. Zero means no
// cap.
func (m *MemoryStream) SetWriteLimit(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeLimit = n
}

// FailReads makes every read after the released chunks are drained return
// err instead of io.EOF.
func (m *MemoryStream) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readErr = err
}

// Written returns a copy of every byte accepted so far.
func (m *MemoryStream) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]byte(nil), m.written...)
}

// Remaining returns the number of expected requests that were never written.
func (m *MemoryStream) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.script)
}

func (m *MemoryStream) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

func (m *MemoryStream) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	if m.nonblocking && m.writeStarved {
		m.writeStarved = false
		return 0, ErrWouldBlock
	}

	if len(m.chunks) > 0 {
		return 0, fmt.Errorf("%w: %q sent before the previous reply was read", ErrUnexpectedWrite, p)
	}

	n := len(p)
	if m.writeLimit > 0 && n > m.writeLimit {
		n = m.writeLimit
		m.writeStarved = true
	}

	m.written = append(m.written, p[:n]...)
	m.pending = append(m.pending, p[:n]...)

	if len(m.script) == 0 {
		return n, fmt.Errorf("%w: %q", ErrUnexpectedWrite, m.pending)
	}

	next := m.script[0]

	if !bytes.HasPrefix(next.request, m.pending) {
		return n, fmt.Errorf("%w: got %q, expected %q", ErrUnexpectedWrite, m.pending, next.request)
	}

	if len(m.pending) == len(next.request) {
		m.script = m.script[1:]
		m.pending = m.pending[:0]
		m.chunks = append(m.chunks, next.replies...)
		m.readStarved = true
	}

	return n, nil
}

func (m *MemoryStream) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	if len(m.chunks) == 0 {
		if m.readErr != nil {
			return 0, m.readErr
		}

		if m.nonblocking && len(m.pending) > 0 {
			return 0, ErrWouldBlock
		}

		return 0, io.EOF
	}

	if m.nonblocking && m.readStarved {
		m.readStarved = false
		return 0, ErrWouldBlock
	}

	n := copy(p, m.chunks[0])
	if n < len(m.chunks[0]) {
		m.chunks[0] = m.chunks[0][n:]
	} else {
		m.chunks = m.chunks[1:]
	}

	m.readStarved = true

	return n, nil
}

func (m *MemoryStream) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
