// Package buffer provides the append-only byte container the reactor
// accumulates inbound connection data into.
package buffer

// Buffer is an append-only sequence of octets. Len is O(1), String is O(n).
// The zero value is ready to use. Not safe for concurrent use; each
// connection's buffer has a single owner.
type Buffer struct {
	data []byte
}

// New returns a buffer with the given initial capacity.
func New(capacity int) *Buffer {
	return &Buffer{data: make([]byte, 0, capacity)}
}

// Append copies p onto the end of the buffer.
func (b *Buffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

// AppendString copies s onto the end of the buffer.
func (b *Buffer) AppendString(s string) {
	b.data = append(b.data, s...)
}

// Len reports the number of buffered bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Bytes exposes the buffered bytes. The slice is valid until the next
// mutation; callers must not modify it.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// String renders the buffered bytes as text.
func (b *Buffer) String() string {
	return string(b.data)
}

// Consume discards the first n bytes, keeping the remainder.
func (b *Buffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.data) {
		b.data = b.data[:0]
		return
	}
	remaining := copy(b.data, b.data[n:])
	b.data = b.data[:remaining]
}

// Reset empties the buffer, keeping its capacity.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}
