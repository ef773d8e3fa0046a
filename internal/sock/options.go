package sock

import (
	"golang.org/x/sys/unix"
)

// Option setters. Each maps to one setsockopt/fcntl call and fails with
// KindOption carrying the OS error. Options the platform does not expose
// fail with KindUnsupported instead of being silently dropped.

func (s *Socket) SetNonBlocking(enable bool) error {
	if err := unix.SetNonblock(s.fd, enable); err != nil {
		return NewError(KindOption, "set O_NONBLOCK", err)
	}
	return nil
}

func (s *Socket) SetReuseAddress(enable bool) error {
	return s.setIntOption(unix.SOL_SOCKET, unix.SO_REUSEADDR, "SO_REUSEADDR", enable)
}

func (s *Socket) SetKeepAlive(enable bool) error {
	return s.setIntOption(unix.SOL_SOCKET, unix.SO_KEEPALIVE, "SO_KEEPALIVE", enable)
}

// SetLinger controls close behavior: when enabled, Close blocks up to
// seconds while unsent data drains; disabled restores the default.
func (s *Socket) SetLinger(enable bool, seconds int) error {
	l := &unix.Linger{}
	if enable {
		l.Onoff = 1
		l.Linger = int32(seconds)
	}
	if err := unix.SetsockoptLinger(s.fd, unix.SOL_SOCKET, unix.SO_LINGER, l); err != nil {
		return NewError(KindOption, "setsockopt SO_LINGER", err)
	}
	return nil
}

func (s *Socket) SetSendBuffer(bytes int) error {
	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_SNDBUF, bytes); err != nil {
		return NewError(KindOption, "setsockopt SO_SNDBUF", err)
	}
	return nil
}

func (s *Socket) SetReceiveBuffer(bytes int) error {
	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_RCVBUF, bytes); err != nil {
		return NewError(KindOption, "setsockopt SO_RCVBUF", err)
	}
	return nil
}

func (s *Socket) SetTCPNoDelay(enable bool) error {
	if s.proto != TCP {
		return NewError(KindProtocolMismatch, "TCP_NODELAY on "+s.proto.String()+" socket", nil)
	}
	return s.setIntOption(unix.IPPROTO_TCP, unix.TCP_NODELAY, "TCP_NODELAY", enable)
}

func (s *Socket) SetIPv6Only(enable bool) error {
	return s.setIntOption(unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, "IPV6_V6ONLY", enable)
}

func (s *Socket) SetBroadcast(enable bool) error {
	return s.setIntOption(unix.SOL_SOCKET, unix.SO_BROADCAST, "SO_BROADCAST", enable)
}

// SetQuickAck disables delayed ACKs. Linux-only: unix.TCP_QUICKACK is
// not defined on other platforms. A kernel that answers ENOPROTOOPT
// yields KindUnsupported.
func (s *Socket) SetQuickAck(enable bool) error {
	if s.proto != TCP {
		return NewError(KindProtocolMismatch, "TCP_QUICKACK on "+s.proto.String()+" socket", nil)
	}
	err := s.setIntOption(unix.IPPROTO_TCP, unix.TCP_QUICKACK, "TCP_QUICKACK", enable)
	if err != nil {
		if opErr, ok := err.(*Error); ok && opErr.Err == unix.ENOPROTOOPT {
			return NewError(KindUnsupported, "TCP_QUICKACK", opErr.Err)
		}
		return err
	}
	return nil
}

func (s *Socket) setIntOption(level, opt int, name string, enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	if err := unix.SetsockoptInt(s.fd, level, opt, v); err != nil {
		return NewError(KindOption, "setsockopt "+name, err)
	}
	return nil
}
