package sock

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Protocol selects the transport a socket speaks
type Protocol int

const (
	TCP Protocol = iota
	UDP
)

func (p Protocol) String() string {
	if p == UDP {
		return "udp"
	}
	return "tcp"
}

func (p Protocol) sockType() int {
	if p == UDP {
		return unix.SOCK_DGRAM
	}
	return unix.SOCK_STREAM
}

// Sentinel results from Read/Write on non-blocking sockets.
// These are expected outcomes, not failures.
var (
	ErrWouldBlock   = errors.New("operation would block")
	ErrClosedByPeer = errors.New("connection closed by peer")
	ErrClosed       = errors.New("socket is closed")
)

const invalidFD = -1

// Socket owns one OS socket descriptor. The zero value owns nothing.
// Ownership is exclusive: Close releases the descriptor exactly once,
// Detach hands it off and leaves the Socket empty.
type Socket struct {
	fd    int
	proto Protocol
	laddr Addr
}

// New creates an unbound socket for the given protocol and family.
func New(proto Protocol, family Family) (*Socket, error) {
	fd, err := unix.Socket(family.domain(), proto.sockType(), 0)
	if err != nil {
		return nil, NewError(KindCreate, "socket "+proto.String()+"/"+family.String(), err)
	}
	return &Socket{fd: fd, proto: proto}, nil
}

// NewBound creates a socket and binds it to addr.
func NewBound(addr Addr, proto Protocol, reuse bool) (*Socket, error) {
	s, err := New(proto, addr.Family)
	if err != nil {
		return nil, err
	}
	if reuse {
		if err := s.SetReuseAddress(true); err != nil {
			s.Close()
			return nil, err
		}
	}
	if err := s.Bind(addr); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Bind attaches the socket to a local address.
func (s *Socket) Bind(addr Addr) error {
	sa, err := addr.Sockaddr()
	if err != nil {
		return NewError(KindBind, "bind "+addr.String(), err)
	}
	if err := unix.Bind(s.fd, sa); err != nil {
		return NewError(KindBind, "bind "+addr.String(), err)
	}
	s.laddr = addr
	return nil
}

// Listen creates a bound, listening, non-blocking TCP socket in one step.
// SO_REUSEADDR is always set so restarts do not trip over TIME_WAIT.
func Listen(addr Addr, backlog int) (*Socket, error) {
	s, err := NewBound(addr, TCP, true)
	if err != nil {
		return nil, err
	}
	if err := unix.Listen(s.fd, backlog); err != nil {
		s.Close()
		return nil, NewError(KindListen, "listen "+addr.String(), err)
	}
	if err := s.SetNonBlocking(true); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Accept takes one pending connection off a listening socket.
// The accepted socket is set non-blocking before it is returned.
// Returns ErrWouldBlock when the queue is empty.
func Accept(l *Socket) (*Socket, Addr, error) {
	if l.proto != TCP {
		return nil, Addr{}, NewError(KindProtocolMismatch, "accept on "+l.proto.String()+" socket", nil)
	}

	nfd, sa, err := unix.Accept(l.fd)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, Addr{}, ErrWouldBlock
		}
		return nil, Addr{}, NewError(KindAccept, "accept", err)
	}

	remote, err := FromSockaddr(sa)
	if err != nil {
		unix.Close(nfd)
		return nil, Addr{}, NewError(KindAccept, "accept peer address", err)
	}

	conn := &Socket{fd: nfd, proto: TCP}
	if err := conn.SetNonBlocking(true); err != nil {
		conn.Close()
		return nil, Addr{}, err
	}
	return conn, remote, nil
}

// Connect establishes an outbound TCP connection.
func (s *Socket) Connect(addr Addr) error {
	if s.proto != TCP {
		return NewError(KindProtocolMismatch, "connect on "+s.proto.String()+" socket", nil)
	}
	sa, err := addr.Sockaddr()
	if err != nil {
		return NewError(KindConnect, "connect "+addr.String(), err)
	}
	if err := unix.Connect(s.fd, sa); err != nil {
		return NewError(KindConnect, "connect "+addr.String(), err)
	}
	return nil
}

// Read fills p with whatever the kernel has buffered.
// Returns ErrWouldBlock when nothing is ready and ErrClosedByPeer on
// orderly shutdown by the remote side.
func (s *Socket) Read(p []byte) (int, error) {
	if s.fd == invalidFD {
		return 0, ErrClosed
	}
	n, err := unix.Read(s.fd, p)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		return 0, NewError(KindRead, "read", err)
	}
	if n == 0 {
		return 0, ErrClosedByPeer
	}
	return n, nil
}

// Write performs at most one OS write. The caller owns the remainder on a
// short write; would-block is reported as ErrWouldBlock, not an error kind.
func (s *Socket) Write(p []byte) (int, error) {
	n, err := unix.Write(s.fd, p)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		return 0, NewError(KindWrite, "write", err)
	}
	return n, nil
}

// WaitWritable blocks until the socket accepts more bytes or the timeout
// elapses. Used by callers looping a partial write on a non-blocking fd.
// A false result means the timeout passed with no writability.
func (s *Socket) WaitWritable(timeoutMS int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLOUT}}
	for {
		n, err := unix.Poll(fds, timeoutMS)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, NewError(KindWrite, "poll for writability", err)
		}
		return n > 0, nil
	}
}

// SendTo transmits a datagram on a UDP socket.
func (s *Socket) SendTo(p []byte, addr Addr) error {
	if s.proto != UDP {
		return NewError(KindProtocolMismatch, "sendto on "+s.proto.String()+" socket", nil)
	}
	sa, err := addr.Sockaddr()
	if err != nil {
		return NewError(KindWrite, "sendto "+addr.String(), err)
	}
	if err := unix.Sendto(s.fd, p, 0, sa); err != nil {
		return NewError(KindWrite, "sendto "+addr.String(), err)
	}
	return nil
}

// RecvFrom receives one datagram on a UDP socket.
func (s *Socket) RecvFrom(p []byte) (int, Addr, error) {
	if s.proto != UDP {
		return 0, Addr{}, NewError(KindProtocolMismatch, "recvfrom on "+s.proto.String()+" socket", nil)
	}
	n, sa, err := unix.Recvfrom(s.fd, p, 0)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, Addr{}, ErrWouldBlock
		}
		return 0, Addr{}, NewError(KindRead, "recvfrom", err)
	}
	from, err := FromSockaddr(sa)
	if err != nil {
		return n, Addr{}, NewError(KindRead, "recvfrom peer address", err)
	}
	return n, from, nil
}

// FD exposes the descriptor for registration with a readiness mechanism.
// The caller must not close it; ownership stays with the Socket.
func (s *Socket) FD() int {
	return s.fd
}

// Protocol reports the transport this socket speaks.
func (s *Socket) Protocol() Protocol {
	return s.proto
}

// LocalAddr reports the bound address, if any.
func (s *Socket) LocalAddr() Addr {
	return s.laddr
}

// BoundAddr asks the kernel for the actual bound address. Unlike
// LocalAddr this reflects ephemeral port assignment after binding
// port 0.
func (s *Socket) BoundAddr() (Addr, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return Addr{}, NewError(KindBind, "getsockname", err)
	}
	return FromSockaddr(sa)
}

// Detach transfers descriptor ownership to the caller and empties the Socket.
func (s *Socket) Detach() int {
	fd := s.fd
	s.fd = invalidFD
	return fd
}

// Close releases the descriptor. Safe to call more than once.
func (s *Socket) Close() error {
	if s.fd == invalidFD {
		return nil
	}
	fd := s.fd
	s.fd = invalidFD
	if err := unix.Close(fd); err != nil {
		return NewError(KindCreate, "close", err)
	}
	return nil
}
