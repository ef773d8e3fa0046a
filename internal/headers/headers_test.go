package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderParse(t *testing.T) {
	// Test: Valid single header
	h := NewHeaders()
	data := []byte("Host: localhost:42069\r\n")
	n, done, err := h.Parse(data)
	require.NoError(t, err)
	val, ok := h.Get("host")
	assert.True(t, ok)
	assert.Equal(t, "localhost:42069", val)
	assert.Equal(t, 23, n)
	assert.False(t, done)

	// Test: Valid single header with extra whitespace
	h = NewHeaders()
	data = []byte("Host:   localhost:42069   \r\n")
	n, done, err = h.Parse(data)
	require.NoError(t, err)
	val, ok = h.Get("host")
	assert.True(t, ok)
	assert.Equal(t, "localhost:42069", val)
	assert.False(t, done)

	// Test: Duplicate headers keep arrival order
	h = NewHeaders()
	data = []byte("Set-Cookie: a=1\r\nSet-Cookie: b=2\r\n")
	n, done, err = h.Parse(data)
	require.NoError(t, err)
	values := h.Values("set-cookie")
	assert.Equal(t, []string{"a=1", "b=2"}, values)
	assert.False(t, done)

	// Test: Get returns first value for duplicate headers
	val, ok = h.Get("set-cookie")
	assert.True(t, ok)
	assert.Equal(t, "a=1", val)

	// Test: Empty line signals end of headers
	h = NewHeaders()
	data = []byte("\r\n")
	n, done, err = h.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, done)

	// Test: Headers followed by empty line
	h = NewHeaders()
	data = []byte("Host: example.com\r\n\r\n")
	n, done, err = h.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 21, n)
	assert.True(t, done)
	assert.Equal(t, 1, h.Len())

	// Test: Incomplete line is left unconsumed
	h = NewHeaders()
	data = []byte("Host: exam")
	n, done, err = h.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, done)
}

func TestHeaderParseBareLF(t *testing.T) {
	h := NewHeaders()
	n, done, err := h.Parse([]byte("Host: x\nAccept: */*\n\n"))

	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 21, n)

	val, ok := h.Get("accept")
	assert.True(t, ok)
	assert.Equal(t, "*/*", val)
}

func TestHeaderNamesStoredUpperCased(t *testing.T) {
	h := NewHeaders()
	h.Add("Content-Type", "text/plain")

	fields := h.Fields()
	require.Len(t, fields, 1)
	assert.Equal(t, "CONTENT-TYPE", fields[0].Name)
	assert.Equal(t, "text/plain", fields[0].Value)

	// lookup works with any casing
	for _, key := range []string{"content-type", "CONTENT-TYPE", "Content-Type"} {
		val, ok := h.Get(key)
		assert.True(t, ok, key)
		assert.Equal(t, "text/plain", val)
	}
}

func TestHeaderParseRejectsObsFold(t *testing.T) {
	h := NewHeaders()
	_, _, err := h.Parse([]byte("Host: x\r\n continued\r\n\r\n"))
	require.Error(t, err)
}

func TestHeaderParseRejectsMissingColon(t *testing.T) {
	h := NewHeaders()
	_, _, err := h.Parse([]byte("no colon here\r\n"))
	require.Error(t, err)
}

func TestHeaderParseRejectsWhitespaceInName(t *testing.T) {
	h := NewHeaders()
	_, _, err := h.Parse([]byte("Bad Name: value\r\n"))
	require.Error(t, err)
}

func TestHeaderParseLenientSkipsMalformedLines(t *testing.T) {
	h := NewHeaders()
	n, done := h.ParseLenient([]byte("Host: x\r\nno colon here\r\nAccept: */*\r\n\r\n"))

	assert.True(t, done)
	assert.Equal(t, 39, n)
	assert.Equal(t, 2, h.Len())
	_, ok := h.Get("host")
	assert.True(t, ok)
	_, ok = h.Get("accept")
	assert.True(t, ok)
}

func TestHeaderSetReplacesAllValues(t *testing.T) {
	h := NewHeaders()
	h.Add("X-Tag", "one")
	h.Add("X-Tag", "two")
	h.Set("X-Tag", "three")

	assert.Equal(t, []string{"three"}, h.Values("x-tag"))
	assert.Equal(t, 1, h.Count("X-Tag"))
}

func TestHeaderDel(t *testing.T) {
	h := NewHeaders()
	h.Add("A", "1")
	h.Add("B", "2")
	h.Add("A", "3")
	h.Del("a")

	assert.Equal(t, 0, h.Count("A"))
	assert.Equal(t, 1, h.Len())
	val, ok := h.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "2", val)
}

func TestHeaderByteSize(t *testing.T) {
	h := NewHeaders()
	h.Add("Host", "example.com") // 4 + 11
	assert.Equal(t, 15, h.ByteSize())

	h.Add("A", "b") // +2
	assert.Equal(t, 17, h.ByteSize())

	h.Del("host")
	assert.Equal(t, 2, h.ByteSize())
}

func TestHeaderCount(t *testing.T) {
	h := NewHeaders()
	h.Add("X", "1")
	h.Add("x", "2")
	assert.Equal(t, 2, h.Count("X"))
	assert.Equal(t, 0, h.Count("Y"))
}
