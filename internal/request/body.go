package request

import (
	"bytes"

	"github.com/Brownie44l1/epollhttp/internal/headers"
)

// Chunked framing: size line, data, CRLF, repeated until a zero-sized
// chunk, then trailer lines until a bare CRLF. The three chunk states
// keep enough context (chunkSize, chunkRead) that a chunk may straddle
// any number of reads.

// feedChunkSize parses one SIZE[;extensions] line.
func (a *Assembler) feedChunkSize(data []byte) (Result, int) {
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		if len(data) > a.limits.MaxHeaderSize {
			return a.fatal(BadChunkEncoding)
		}
		return Result{Outcome: NeedMore}, 0
	}

	line := data[:idx]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	consumed := idx + 1

	// chunk extensions are ignored
	if semi := bytes.IndexByte(line, ';'); semi != -1 {
		line = line[:semi]
	}

	size, ok := parseHex(line)
	if !ok {
		res, _ := a.fatal(BadChunkEncoding)
		return res, consumed
	}

	if size == 0 {
		a.state = stateTrailers
		return Result{Outcome: NeedMore}, consumed
	}

	if size > a.limits.MaxBodySize || len(a.body)+size > a.limits.MaxBodySize {
		res, _ := a.fatal(BadContentTooLarge)
		return res, consumed
	}

	a.chunkSize = size
	a.chunkRead = 0
	a.state = stateChunkData
	return Result{Outcome: NeedMore}, consumed
}

// feedChunkData appends chunk octets until chunkSize have arrived.
func (a *Assembler) feedChunkData(data []byte) (Result, int) {
	remaining := a.chunkSize - a.chunkRead
	take := remaining
	if len(data) < take {
		take = len(data)
	}

	a.body = append(a.body, data[:take]...)
	a.chunkRead += take

	if a.chunkRead == a.chunkSize {
		a.state = stateChunkDataCRLF
	}
	return Result{Outcome: NeedMore}, take
}

// feedChunkDataCRLF requires the literal CRLF that closes a chunk.
func (a *Assembler) feedChunkDataCRLF(data []byte) (Result, int) {
	if len(data) < 2 {
		return Result{Outcome: NeedMore}, 0
	}
	if data[0] != '\r' || data[1] != '\n' {
		return a.fatal(BadChunkEncoding)
	}
	a.state = stateChunkSize
	return Result{Outcome: NeedMore}, 2
}

// feedTrailers parses trailer lines for validity and discards them.
func (a *Assembler) feedTrailers(data []byte) (Result, int) {
	if a.trailers == nil {
		a.trailers = headers.NewHeaders()
	}

	n, done, err := a.trailers.Parse(data)
	if err != nil {
		res, _ := a.fatal(BadTrailerHeaders)
		return res, n
	}
	if a.trailers.ByteSize() > a.limits.MaxHeaderSize {
		res, _ := a.fatal(BadTrailerHeaders)
		return res, n
	}
	if !done {
		if len(data)-n > a.limits.MaxHeaderSize {
			return a.fatal(BadTrailerHeaders)
		}
		return Result{Outcome: NeedMore}, n
	}

	// trailer values are validated, then dropped
	return Result{Outcome: Complete}, n
}

// parseHex parses a non-empty, case-insensitive hexadecimal integer.
// Leading zeros are fine; anything else is not.
func parseHex(s []byte) (int, bool) {
	if len(s) == 0 {
		return 0, false
	}
	const cutoff = (1<<63 - 1) >> 4
	n := 0
	for _, c := range s {
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'f':
			d = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int(c-'A') + 10
		default:
			return 0, false
		}
		if n > cutoff {
			return 0, false
		}
		n = n<<4 | d
	}
	return n, true
}
