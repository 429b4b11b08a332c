package oracle

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/GoSim-25-26J-441/simtune/internal/protocol"
	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
)

// ErrServerClosed is returned by Serve after Close.
var ErrServerClosed = errors.New("oracle: server closed")

// Server accepts connections and answers one request per connection, each on
// its own goroutine.
type Server struct {
	handler protocol.Handler

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	conns    sync.WaitGroup
}

// NewServer creates a server for handler.
func NewServer(handler protocol.Handler) *Server {
	return &Server{handler: handler}
}

// ListenAndServe listens on addr and serves until Close.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Close. It always returns a non-nil
// error, ErrServerClosed after Close.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.mu.Unlock()

	logger.Info("listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			return err
		}
		logger.Debug("connection accepted", "remote", conn.RemoteAddr().String())

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return ErrServerClosed
		}
		s.conns.Add(1)
		s.mu.Unlock()
		go func() {
			defer s.conns.Done()
			s.serveConn(conn)
		}()
	}
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops accepting and waits for in-flight connections to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.listener
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.conns.Wait()
	return err
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	var resp *protocol.Response
	// A last line without terminator still counts once the client closes.
	line, err := protocol.ReadRecord(bufio.NewReader(conn))
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	if err != nil || len(bytes.TrimSpace(line)) == 0 {
		resp = protocol.ErrorResponse("Empty request")
	} else if req, err := protocol.DecodeRequest(line); err != nil {
		resp = protocol.ErrorResponse("Can't parse request")
	} else {
		resp = s.handler.Handle(context.Background(), req)
	}

	payload, err := protocol.EncodeResponse(resp)
	if err != nil {
		logger.Error("encoding response failed", "error", err)
		return
	}
	if _, err := conn.Write(payload); err != nil {
		logger.Warn("exception during response", "remote", conn.RemoteAddr().String(), "error", err)
	}
}
