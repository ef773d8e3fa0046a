package sock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestParseAddrIPv4(t *testing.T) {
	a, err := ParseAddr("127.0.0.1", 8080)
	require.NoError(t, err)
	assert.Equal(t, IPv4, a.Family)
	assert.Equal(t, "127.0.0.1:8080", a.String())
}

func TestParseAddrIPv6(t *testing.T) {
	a, err := ParseAddr("::1", 443)
	require.NoError(t, err)
	assert.Equal(t, IPv6, a.Family)
	assert.Equal(t, "[::1]:443", a.String())
}

func TestParseAddrFailsClosed(t *testing.T) {
	cases := []struct {
		ip   string
		port int
	}{
		{"not-an-ip", 80},
		{"256.1.1.1", 80},
		{"", 80},
		{"127.0.0.1", -1},
		{"127.0.0.1", 70000},
	}
	for _, c := range cases {
		_, err := ParseAddr(c.ip, c.port)
		require.Errorf(t, err, "%s:%d", c.ip, c.port)
		assert.ErrorIs(t, err, ErrBadAddress)
	}
}

func TestSockaddrRoundTripIPv4(t *testing.T) {
	a, err := ParseAddr("192.168.1.10", 9000)
	require.NoError(t, err)

	sa, err := a.Sockaddr()
	require.NoError(t, err)

	sa4, ok := sa.(*unix.SockaddrInet4)
	require.True(t, ok)
	assert.Equal(t, 9000, sa4.Port)
	assert.Equal(t, [4]byte{192, 168, 1, 10}, sa4.Addr)

	back, err := FromSockaddr(sa)
	require.NoError(t, err)
	assert.Equal(t, a, back)
}

func TestSockaddrRoundTripIPv6(t *testing.T) {
	a, err := ParseAddr("2001:db8::1", 8443)
	require.NoError(t, err)

	sa, err := a.Sockaddr()
	require.NoError(t, err)
	_, ok := sa.(*unix.SockaddrInet6)
	require.True(t, ok)

	back, err := FromSockaddr(sa)
	require.NoError(t, err)
	assert.Equal(t, a, back)
}

func TestSockaddrFamilyMismatchFailsClosed(t *testing.T) {
	// IPv4 literal declared as IPv6 must not convert
	a := Addr{IP: "127.0.0.1", Port: 80, Family: IPv6}
	_, err := a.Sockaddr()
	require.Error(t, err)
}

func TestErrorCarriesKindAndContext(t *testing.T) {
	err := NewError(KindBind, "bind 0.0.0.0:80", unix.EACCES)
	assert.Contains(t, err.Error(), "Bind")
	assert.Contains(t, err.Error(), "bind 0.0.0.0:80")
	assert.ErrorIs(t, err, unix.EACCES)
}
