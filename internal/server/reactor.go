package server

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Brownie44l1/epollhttp/internal/headers"
	"github.com/Brownie44l1/epollhttp/internal/request"
	"github.com/Brownie44l1/epollhttp/internal/sock"
)

const (
	maxEvents     = 128
	readChunkSize = 4096
	sweepInterval = time.Second
)

// ProtocolError is what OnError receives when the assembler rejects a
// connection's byte stream.
type ProtocolError struct {
	ConnID int
	Code   request.FatalCode
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("connection %d: %s", e.ConnID, e.Code)
}

// run is the reactor: a single-threaded readiness loop over the listener
// and every accepted connection. It owns all epoll bookkeeping; nothing
// else registers or closes fds.
func (s *Server) run() error {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		s.listener.Close()
		return fmt.Errorf("epoll_create1: %w", err)
	}
	s.epfd = epfd

	lfd := s.listener.FD()
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, lfd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(lfd),
	}); err != nil {
		unix.Close(epfd)
		s.listener.Close()
		return fmt.Errorf("epoll_ctl add listener: %w", err)
	}

	events := make([]unix.EpollEvent, maxEvents)
	pollMS := int(s.cfg.PollTimeout.Milliseconds())
	lastSweep := time.Now()

	defer s.shutdown()

	for s.running.Load() {
		n, err := unix.EpollWait(epfd, events, pollMS)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			err = fmt.Errorf("epoll_wait: %w", err)
			s.reportError(err)
			return err
		}

		if n == 0 && s.Callbacks.OnIdleTick != nil {
			s.Callbacks.OnIdleTick()
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == lfd {
				s.acceptBurst()
			} else {
				s.readBurst(fd)
			}
		}

		if time.Since(lastSweep) >= sweepInterval {
			s.idleSweep()
			lastSweep = time.Now()
		}

		s.closePass()
	}

	return nil
}

// acceptBurst drains the accept queue. At the connection cap it stops
// and leaves the remainder in the OS backlog; their readiness events
// will fire again once a slot frees.
func (s *Server) acceptBurst() {
	for {
		if s.table.Len() >= s.cfg.MaxFileDescriptors {
			s.log.Debug().Int("cap", s.cfg.MaxFileDescriptors).Msg("connection cap reached, deferring accepts")
			return
		}

		client, remote, err := sock.Accept(s.listener)
		if err == sock.ErrWouldBlock {
			return
		}
		if err != nil {
			s.reportConnError(err)
			return
		}

		if err := client.SetKeepAlive(true); err != nil {
			// connection still works without it
			s.log.Debug().Err(err).Msg("keepalive not set")
		}

		c := newConn(client, remote, request.Limits{
			MaxHeaderSize: s.cfg.MaxHeaderSize,
			MaxBodySize:   s.cfg.MaxBodySize,
		})
		c.asm.SetCloser(c.scheduleClose)
		if s.Callbacks.OnHeadersReceived != nil {
			id := c.id
			c.asm.SetHeadersCallback(func(method, uri, version string, h *headers.Headers) {
				s.Callbacks.OnHeadersReceived(id, method, uri, version, h)
			})
		}

		if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, c.id, &unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(c.id),
		}); err != nil {
			s.reportError(fmt.Errorf("epoll_ctl add connection %d: %w", c.id, err))
			client.Close()
			continue
		}

		s.table.Insert(c)
		s.log.Debug().Int("id", c.id).Str("remote", remote.String()).Msg("connection opened")
		if s.Callbacks.OnConnectionOpened != nil {
			s.Callbacks.OnConnectionOpened(c.id, remote)
		}
	}
}

// readBurst pulls everything the kernel has for one connection and runs
// the assembler after each read.
func (s *Server) readBurst(fd int) {
	c, ok := s.table.Get(fd)
	if !ok {
		// stale readiness for an fd already closed this wake
		return
	}

	var buf [readChunkSize]byte
	for {
		n, err := c.sock.Read(buf[:])
		if err == sock.ErrWouldBlock {
			return
		}
		if err == sock.ErrClosedByPeer {
			c.scheduleClose()
			return
		}
		if err != nil {
			s.reportConnError(err)
			c.scheduleClose()
			return
		}

		c.touch()
		c.inbound.Append(buf[:n])

		if c.inbound.Len() > s.cfg.MaxHeaderSize+s.cfg.MaxBodySize {
			s.reportConnError(&ProtocolError{ConnID: c.id, Code: request.BadHeadersTooLarge})
			c.scheduleClose()
			return
		}

		if !s.feed(c) {
			return
		}
	}
}

// feed hands the inbound buffer to the assembler and acts on the verdict.
// Returns false once the connection is done reading.
func (s *Server) feed(c *conn) bool {
	res, consumed := c.asm.Feed(c.inbound.Bytes())

	switch res.Outcome {
	case request.Complete:
		// close-after-response: whatever trails the request is dropped
		c.inbound.Reset()
		s.dispatch(c, res.Request)
		return false

	case request.Fatal:
		s.reportConnError(&ProtocolError{ConnID: c.id, Code: res.Code})
		c.scheduleClose()
		return false

	default:
		c.inbound.Consume(consumed)
		return true
	}
}

// idleSweep schedules every connection quiet for longer than MaxIdleTime.
func (s *Server) idleSweep() {
	now := time.Now()
	swept := 0
	s.table.ForEach(func(c *conn) {
		if c.idleSince(now) > s.cfg.MaxIdleTime {
			c.scheduleClose()
			swept++
		}
	})
	if swept > 0 {
		s.log.Debug().Int("count", swept).Msg("idle sweep closed connections")
	}
}

// closePass destroys every connection scheduled for close. A record leaves
// the table through Cleanup before destroy runs, here and in shutdown, so
// each connection fd is closed exactly once.
func (s *Server) closePass() {
	removed := s.table.Cleanup(func(c *conn) bool {
		return c.closing.Load()
	})
	for _, c := range removed {
		s.destroy(c)
	}
}

func (s *Server) destroy(c *conn) {
	unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, c.id, nil)
	c.sock.Close()
	s.log.Debug().Int("id", c.id).Str("remote", c.remote.String()).Msg("connection closed")
	if s.Callbacks.OnConnectionClosed != nil {
		s.Callbacks.OnConnectionClosed(c.id, c.remote)
	}
}

// shutdown tears the loop down: listener first, then every live
// connection, partial requests discarded.
func (s *Server) shutdown() {
	s.listener.Close()

	removed := s.table.Cleanup(func(*conn) bool { return true })
	for _, c := range removed {
		s.destroy(c)
	}

	unix.Close(s.epfd)
	s.log.Info().Msg("server stopped")
	if s.Callbacks.OnShutdown != nil {
		s.Callbacks.OnShutdown()
	}
}
