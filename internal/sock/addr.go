package sock

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// Family is the address family of a socket address
type Family int

const (
	IPv4 Family = iota
	IPv6
)

func (f Family) String() string {
	if f == IPv6 {
		return "ipv6"
	}
	return "ipv4"
}

// domain returns the OS-level address family constant
func (f Family) domain() int {
	if f == IPv6 {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

// Addr is a socket address: textual IP, port and family.
// The family decides the layout of the OS sockaddr it converts to.
type Addr struct {
	IP     string
	Port   int
	Family Family
}

var ErrBadAddress = fmt.Errorf("malformed address")

// ParseAddr validates ip and port and derives the family from the IP form.
// Conversions fail closed: anything net.ParseIP rejects is rejected here.
func ParseAddr(ip string, port int) (Addr, error) {
	if port < 0 || port > 65535 {
		return Addr{}, fmt.Errorf("%w: port %d out of range", ErrBadAddress, port)
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Addr{}, fmt.Errorf("%w: %q is not an IP address", ErrBadAddress, ip)
	}

	family := IPv4
	if parsed.To4() == nil {
		family = IPv6
	}

	return Addr{IP: ip, Port: port, Family: family}, nil
}

// Sockaddr converts to the OS representation matching the family.
func (a Addr) Sockaddr() (unix.Sockaddr, error) {
	parsed := net.ParseIP(a.IP)
	if parsed == nil {
		return nil, fmt.Errorf("%w: %q is not an IP address", ErrBadAddress, a.IP)
	}
	if a.Port < 0 || a.Port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrBadAddress, a.Port)
	}

	switch a.Family {
	case IPv4:
		ip4 := parsed.To4()
		if ip4 == nil {
			return nil, fmt.Errorf("%w: %q is not an IPv4 address", ErrBadAddress, a.IP)
		}
		sa := &unix.SockaddrInet4{Port: a.Port}
		copy(sa.Addr[:], ip4)
		return sa, nil

	case IPv6:
		ip16 := parsed.To16()
		if ip16 == nil || parsed.To4() != nil {
			return nil, fmt.Errorf("%w: %q is not an IPv6 address", ErrBadAddress, a.IP)
		}
		sa := &unix.SockaddrInet6{Port: a.Port}
		copy(sa.Addr[:], ip16)
		return sa, nil

	default:
		return nil, fmt.Errorf("%w: unknown family %d", ErrBadAddress, a.Family)
	}
}

// FromSockaddr converts an OS sockaddr back to an Addr.
func FromSockaddr(sa unix.Sockaddr) (Addr, error) {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return Addr{
			IP:     net.IP(v.Addr[:]).String(),
			Port:   v.Port,
			Family: IPv4,
		}, nil
	case *unix.SockaddrInet6:
		return Addr{
			IP:     net.IP(v.Addr[:]).String(),
			Port:   v.Port,
			Family: IPv6,
		}, nil
	default:
		return Addr{}, fmt.Errorf("%w: unsupported sockaddr %T", ErrBadAddress, sa)
	}
}

func (a Addr) String() string {
	if a.Family == IPv6 {
		return "[" + a.IP + "]:" + strconv.Itoa(a.Port)
	}
	return a.IP + ":" + strconv.Itoa(a.Port)
}
