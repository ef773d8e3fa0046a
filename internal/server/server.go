// Package server wires the socket layer, the reactor and the request
// assembler into an HTTP/1.1 server with a callback surface.
package server

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Brownie44l1/epollhttp/internal/request"
	"github.com/Brownie44l1/epollhttp/internal/response"
	"github.com/Brownie44l1/epollhttp/internal/sock"
)

var ErrNoRequestHandler = errors.New("no request handler registered")

// Server is the facade over the whole stack. Construct it, fill in
// Callbacks (OnRequest at minimum), then call ListenAndServe, which
// blocks until Stop is invoked from any goroutine.
type Server struct {
	Callbacks Callbacks

	addr sock.Addr
	cfg  Config
	log  zerolog.Logger

	listener *sock.Socket
	epfd     int
	table    *connTable
	running  atomic.Bool
}

// New creates a server bound to addr once ListenAndServe runs.
func New(addr sock.Addr, cfg Config) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		addr:  addr,
		cfg:   cfg,
		log:   *cfg.Logger,
		table: newConnTable(),
	}
}

// Addr reports the configured bind address.
func (s *Server) Addr() sock.Addr {
	return s.addr
}

// ListenAndServe binds the listener and runs the reactor on the calling
// goroutine until Stop flips the running flag. Bind and listen failures
// are fatal and returned immediately.
func (s *Server) ListenAndServe() error {
	listener, err := sock.Listen(s.addr, s.cfg.Backlog)
	if err != nil {
		return err
	}
	s.listener = listener
	if bound, err := listener.BoundAddr(); err == nil {
		// reflects ephemeral port assignment when addr.Port was 0
		s.addr = bound
	}
	s.running.Store(true)

	s.log.Info().Str("addr", s.addr.String()).Msg("listening")
	if s.Callbacks.OnListenSuccess != nil {
		s.Callbacks.OnListenSuccess(s.addr)
	}

	return s.run()
}

// Stop asks the reactor to exit at its next wake. Safe from any
// goroutine, including signal handlers. Idempotent.
func (s *Server) Stop() {
	s.running.Store(false)
}

// Running reports whether the loop is live.
func (s *Server) Running() bool {
	return s.running.Load()
}

// ConnectionCount reports the number of live connections.
func (s *Server) ConnectionCount() int {
	return s.table.Len()
}

// dispatch builds the request/response pair for a completed request and
// invokes the handler. The reactor does not wait for End: a handler may
// offload the pair and return, and the close happens on a later pass.
func (s *Server) dispatch(c *conn, req *request.Request) {
	if s.Callbacks.OnRequest == nil {
		s.reportError(ErrNoRequestHandler)
		c.scheduleClose()
		return
	}

	res := response.New(c.writeAll, c.scheduleClose)

	defer func() {
		if r := recover(); r != nil {
			s.reportError(fmt.Errorf("handler panic on connection %d: %v", c.id, r))
			c.scheduleClose()
		}
	}()

	s.Callbacks.OnRequest(req, res)
}

// reportError surfaces terminal failures: reactor breakage and handler
// faults. Logged at error level.
func (s *Server) reportError(err error) {
	s.log.Error().Err(err).Msg("server error")
	if s.Callbacks.OnError != nil {
		s.Callbacks.OnError(err)
	}
}

// reportConnError surfaces routine per-connection failures, like
// malformed requests or a peer vanishing mid-read. These are everyday
// wire noise, so they log at debug while still reaching OnError.
func (s *Server) reportConnError(err error) {
	s.log.Debug().Err(err).Msg("connection error")
	if s.Callbacks.OnError != nil {
		s.Callbacks.OnError(err)
	}
}
