package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Brownie44l1/epollhttp/internal/buffer"
	"github.com/Brownie44l1/epollhttp/internal/request"
	"github.com/Brownie44l1/epollhttp/internal/sock"
)

// writeStallTimeoutMS bounds how long a blocked response write waits for
// the peer to drain before the write is abandoned.
const writeStallTimeoutMS = 10_000

// conn is the per-accepted-client record. It exclusively owns its socket;
// the reactor borrows the fd for polling and I/O and the connection table
// is the only place a conn is destroyed from.
type conn struct {
	id     int // the fd doubles as the stable connection id
	sock   *sock.Socket
	remote sock.Addr

	asm     *request.Assembler
	inbound *buffer.Buffer

	lastActivity atomic.Int64 // unix nanos
	closing      atomic.Bool

	writeMu sync.Mutex
}

func newConn(s *sock.Socket, remote sock.Addr, limits request.Limits) *conn {
	c := &conn{
		id:      s.FD(),
		sock:    s,
		remote:  remote,
		asm:     request.NewAssembler(limits),
		inbound: buffer.New(4096),
	}
	c.touch()
	return c
}

// touch records activity for the idle sweep.
func (c *conn) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// idleSince reports how long the connection has been quiet.
func (c *conn) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastActivity.Load()))
}

// scheduleClose marks the connection; the reactor closes it exactly once
// on its next pass. Safe from any goroutine.
func (c *conn) scheduleClose() {
	c.closing.Store(true)
}

// writeAll delivers the whole of p, looping over partial writes and
// waiting for writability when the socket would block. Serialized so a
// handler offloaded to another goroutine cannot interleave bytes with
// the reactor.
func (c *conn) writeAll(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for len(p) > 0 {
		n, err := c.sock.Write(p)
		if err == sock.ErrWouldBlock {
			ready, perr := c.sock.WaitWritable(writeStallTimeoutMS)
			if perr != nil {
				return perr
			}
			if !ready {
				// the peer stopped draining; give up rather than
				// retry forever
				op := fmt.Sprintf("connection %d: %d bytes undelivered", c.id, len(p))
				return sock.NewError(sock.KindPartialWrite, op, nil)
			}
			continue
		}
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
