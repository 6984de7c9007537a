// Package resptest runs an in-process server speaking the reply grammar,
// for tests of code that talks to one.
package resptest

import (
	"errors"
	"net"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/respkit/protocol"
)

// Handler answers one request. Returning Nothing hangs up on the client.
type Handler func(args []string) protocol.Response

type Server struct {
	Host string
	Port int

	listener net.Listener
	handler  Handler

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg    sync.WaitGroup

	log *zap.Logger
}

// NewServer listens on a random loopback port and serves every connection
// with handler until Close.
func NewServer(handler Handler, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	addr := listener.Addr().(*net.TCPAddr)

	s := &Server{
		Host:     addr.IP.String(),
		Port:     addr.Port,
		listener: listener,
		handler:  handler,
		conns:    make(map[net.Conn]struct{}),
		log:      log.Named("resptest"),
	}

	s.wg.Add(1)
	go s.accept()

	return s, nil
}

func (s *Server) accept() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Warn("Failed to accept", zap.Error(err))
			}

			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()

		conn.Close()
		s.wg.Done()
	}()

	var state protocol.ParseState

	for {
		req, err := state.Next()
		if errors.Is(err, protocol.ErrIncomplete) {
			buf := state.Spare(4096)

			n, err := conn.Read(buf)
			if err != nil {
				return
			}

			state.Commit(n)
			continue
		}

		if err != nil {
			s.log.Warn("Bad request", zap.Error(err))
			return
		}

		args := make([]string, 0, len(req.Elements))
		for _, el := range req.Elements {
			args = append(args, string(el.Bytes))
		}

		resp := s.handler(args)
		if resp.Kind == protocol.KindNothing {
			return
		}

		if err := protocol.WriteResponse(conn, resp); err != nil {
			return
		}
	}
}

// Close stops accepting, hangs up on every client and waits for the
// handlers to return. Closing twice is a no-op.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	err := s.listener.Close()

	for conn := range s.conns {
		err = multierr.Append(err, conn.Close())
	}
	s.mu.Unlock()

	s.wg.Wait()

	return err
}

// Echo answers PING with PONG, ECHO with its argument and anything else
// with the request itself as an array of bulks.
func Echo(args []string) protocol.Response {
	switch {
	case len(args) == 1 && args[0] == "PING":
		return protocol.Status("PONG")
	case len(args) == 2 && args[0] == "ECHO":
		return protocol.BulkString(args[1])
	}

	elements := make([]protocol.Response, 0, len(args))
	for _, arg := range args {
		elements = append(elements, protocol.BulkString(arg))
	}

	return protocol.Array(elements...)
}
