package headers

import (
	"bytes"
	"fmt"
	"strings"
)

// Field is one header occurrence. Names are stored upper-cased.
type Field struct {
	Name  string
	Value string
}

// Headers is an order-preserving multimap of HTTP header fields.
// Lookup is case-insensitive; repeated names keep their arrival order.
type Headers struct {
	fields []Field
	size   int // cumulative name+value bytes, for limit enforcement
}

func NewHeaders() *Headers {
	return &Headers{}
}

// CanonicalKey upper-cases a header name for storage and lookup.
func CanonicalKey(name string) string {
	return strings.ToUpper(name)
}

// Get returns the first value for a header.
func (h *Headers) Get(name string) (string, bool) {
	key := CanonicalKey(name)
	for _, f := range h.fields {
		if f.Name == key {
			return f.Value, true
		}
	}
	return "", false
}

// Values returns every value for a header, in arrival order.
func (h *Headers) Values(name string) []string {
	key := CanonicalKey(name)
	var values []string
	for _, f := range h.fields {
		if f.Name == key {
			values = append(values, f.Value)
		}
	}
	return values
}

// Count reports how many times a header occurs.
func (h *Headers) Count(name string) int {
	key := CanonicalKey(name)
	n := 0
	for _, f := range h.fields {
		if f.Name == key {
			n++
		}
	}
	return n
}

// Add appends an occurrence of name with value.
func (h *Headers) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: CanonicalKey(name), Value: value})
	h.size += len(name) + len(value)
}

// Set replaces every occurrence of name with a single value.
func (h *Headers) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes every occurrence of name.
func (h *Headers) Del(name string) {
	key := CanonicalKey(name)
	kept := h.fields[:0]
	for _, f := range h.fields {
		if f.Name == key {
			h.size -= len(f.Name) + len(f.Value)
			continue
		}
		kept = append(kept, f)
	}
	h.fields = kept
}

// Fields returns every header occurrence in arrival order.
func (h *Headers) Fields() []Field {
	return h.fields
}

// Len reports the number of header occurrences.
func (h *Headers) Len() int {
	return len(h.fields)
}

// ByteSize reports the cumulative size of stored names plus values.
func (h *Headers) ByteSize() int {
	return h.size
}

// Parse consumes complete header lines from data, stopping at the empty
// line that terminates the section. Lines end with CRLF or bare LF; a
// trailing CR is stripped. Returns the bytes consumed and whether the
// terminator was seen. Incomplete trailing lines are left unconsumed.
func (h *Headers) Parse(data []byte) (int, bool, error) {
	return h.parse(data, true)
}

// ParseLenient is Parse with malformed lines discarded instead of
// reported. Used for request headers, where a bad line drops silently;
// trailers go through the strict variant.
func (h *Headers) ParseLenient(data []byte) (int, bool) {
	n, done, _ := h.parse(data, false)
	return n, done
}

func (h *Headers) parse(data []byte, strict bool) (int, bool, error) {
	read := 0

	for {
		idx := bytes.IndexByte(data[read:], '\n')
		if idx == -1 {
			// need more data
			return read, false, nil
		}

		line := data[read : read+idx]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		read += idx + 1

		if len(line) == 0 {
			// end of headers
			return read, true, nil
		}

		// obs-fold continuations are not supported
		if line[0] == ' ' || line[0] == '\t' {
			if strict {
				return read, false, fmt.Errorf("obsolete line folding not supported")
			}
			continue
		}

		name, value, err := parseField(line)
		if err != nil {
			if strict {
				return read, false, err
			}
			continue
		}
		h.Add(name, value)
	}
}

func parseField(line []byte) (string, string, error) {
	colonIdx := bytes.IndexByte(line, ':')
	if colonIdx == -1 {
		return "", "", fmt.Errorf("malformed header: no colon")
	}

	name := line[:colonIdx]
	if len(name) == 0 {
		return "", "", fmt.Errorf("malformed header: empty name")
	}
	if bytes.ContainsAny(name, " \t") {
		return "", "", fmt.Errorf("malformed header: whitespace in name")
	}

	value := bytes.Trim(line[colonIdx+1:], " \t")
	return string(name), string(value), nil
}
