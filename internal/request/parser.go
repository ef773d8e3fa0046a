package request

import (
	"strings"

	"github.com/Brownie44l1/epollhttp/internal/headers"
)

// parserState tracks where the assembler is in the message grammar
type parserState int

const (
	stateRequestLine parserState = iota
	stateHeaders
	stateBodyContentLength
	stateChunkSize
	stateChunkData
	stateChunkDataCRLF
	stateTrailers
)

// Outcome is the assembler's verdict for one Feed call
type Outcome int

const (
	// NeedMore means the buffered bytes do not yet form a full request
	NeedMore Outcome = iota
	// Complete means a request was assembled; Result.Request is set
	Complete
	// Fatal means the stream is unrecoverable; Result.Code is set
	Fatal
)

// Result is what Feed hands back to the reactor.
type Result struct {
	Outcome Outcome
	Code    FatalCode
	Request *Request
}

// Limits bound what one request may consume.
type Limits struct {
	MaxHeaderSize int // cumulative header name+value bytes
	MaxBodySize   int // declared or accumulated body bytes
}

// Assembler is the per-connection parsing state machine. It consumes the
// connection's inbound bytes incrementally: each Feed call reports how
// many bytes it consumed and whether a request completed, more data is
// needed, or the stream is fatally malformed. State survives across calls
// so a request may arrive in arbitrarily many fragments.
type Assembler struct {
	limits Limits
	state  parserState

	method  string
	uri     string
	version string
	hdrs    *headers.Headers
	body    []byte

	// Content-Length framing
	contentLength int

	// chunked framing
	chunkSize int
	chunkRead int
	trailers  *headers.Headers

	// headers-received notification, fired once per request after the
	// header section is parsed and framing is selected
	onHeaders func(method, uri, version string, h *headers.Headers)

	// closer is handed to every Request this assembler completes; it is
	// the one path a handler has to ask for connection closure
	closer func()
}

// NewAssembler creates an assembler in the request-line state.
func NewAssembler(limits Limits) *Assembler {
	return &Assembler{
		limits: limits,
		hdrs:   headers.NewHeaders(),
	}
}

// SetHeadersCallback installs the optional headers-received hook.
func (a *Assembler) SetHeadersCallback(fn func(method, uri, version string, h *headers.Headers)) {
	a.onHeaders = fn
}

// SetCloser installs the connection-close hook handed to completed requests.
func (a *Assembler) SetCloser(fn func()) {
	a.closer = fn
}

// Idle reports whether no request is in progress.
func (a *Assembler) Idle() bool {
	return a.state == stateRequestLine && a.hdrs.Len() == 0 && len(a.body) == 0
}

// Feed consumes as much of data as the grammar allows. It returns the
// verdict and the number of bytes consumed; the caller discards consumed
// bytes from its buffer. On Complete the assembler resets so the next
// Feed starts a new request.
func (a *Assembler) Feed(data []byte) (Result, int) {
	consumed := 0

	for {
		var res Result
		var n int

		switch a.state {
		case stateRequestLine:
			res, n = a.feedRequestLine(data[consumed:])
		case stateHeaders:
			res, n = a.feedHeaders(data[consumed:])
		case stateBodyContentLength:
			res, n = a.feedContentLengthBody(data[consumed:])
		case stateChunkSize:
			res, n = a.feedChunkSize(data[consumed:])
		case stateChunkData:
			res, n = a.feedChunkData(data[consumed:])
		case stateChunkDataCRLF:
			res, n = a.feedChunkDataCRLF(data[consumed:])
		case stateTrailers:
			res, n = a.feedTrailers(data[consumed:])
		}

		consumed += n

		switch res.Outcome {
		case Complete:
			res.Request = a.finish()
			return res, consumed
		case Fatal:
			return res, consumed
		}

		// NeedMore from a sub-state either wants more bytes from the
		// wire (n exhausted or zero progress) or moved to the next
		// state with bytes still buffered.
		if n == 0 || consumed == len(data) {
			return Result{Outcome: NeedMore}, consumed
		}
	}
}

// finish snapshots the assembled request and resets for the next one.
func (a *Assembler) finish() *Request {
	req := NewRequest(a.method, a.uri, a.version, a.hdrs, a.body, a.closer)
	a.reset()
	return req
}

func (a *Assembler) reset() {
	a.state = stateRequestLine
	a.method = ""
	a.uri = ""
	a.version = ""
	a.hdrs = headers.NewHeaders()
	a.body = nil
	a.contentLength = 0
	a.chunkSize = 0
	a.chunkRead = 0
	a.trailers = nil
}

func (a *Assembler) fatal(code FatalCode) (Result, int) {
	return Result{Outcome: Fatal, Code: code}, 0
}

// feedHeaders consumes header lines until the empty terminator line,
// then selects the body framing.
func (a *Assembler) feedHeaders(data []byte) (Result, int) {
	n, done := a.hdrs.ParseLenient(data)

	if a.hdrs.ByteSize() > a.limits.MaxHeaderSize {
		res, _ := a.fatal(BadHeadersTooLarge)
		return res, n
	}
	if !done {
		// a header section that never terminates must not buffer
		// without bound
		if len(data)-n > a.limits.MaxHeaderSize {
			return a.fatal(BadHeadersTooLarge)
		}
		return Result{Outcome: NeedMore}, n
	}

	res, extra := a.selectFraming()
	return res, n + extra
}

// selectFraming applies the framing table after the header terminator.
func (a *Assembler) selectFraming() (Result, int) {
	hasLength := a.hdrs.Count("Content-Length") > 0
	chunked := transferEncodingChunked(a.hdrs)

	if a.hdrs.Count("Content-Length") > 1 || (hasLength && chunked) {
		return Result{Outcome: Fatal, Code: BadRepeatedLengthOrTransferEncodingOrBoth}, 0
	}

	a.notifyHeaders()

	switch {
	case chunked:
		a.state = stateChunkSize
		return Result{Outcome: NeedMore}, 0

	case hasLength:
		value, _ := a.hdrs.Get("Content-Length")
		length, ok := parseDecimal(value)
		if !ok {
			// a length we cannot trust is treated as oversized
			return Result{Outcome: Fatal, Code: BadContentTooLarge}, 0
		}
		if length > a.limits.MaxBodySize {
			return Result{Outcome: Fatal, Code: BadContentTooLarge}, 0
		}
		a.contentLength = length
		if length == 0 {
			return Result{Outcome: Complete}, 0
		}
		a.state = stateBodyContentLength
		return Result{Outcome: NeedMore}, 0

	default:
		// no framing header, no body
		return Result{Outcome: Complete}, 0
	}
}

func (a *Assembler) notifyHeaders() {
	if a.onHeaders != nil {
		a.onHeaders(a.method, a.uri, a.version, a.hdrs)
	}
}

// feedContentLengthBody accumulates exactly contentLength octets.
// Anything buffered beyond the declared length is a protocol error:
// with close-after-response semantics no second request can follow.
func (a *Assembler) feedContentLengthBody(data []byte) (Result, int) {
	remaining := a.contentLength - len(a.body)
	if len(data) > remaining {
		return a.fatal(BadContentTooLarge)
	}

	a.body = append(a.body, data...)
	if len(a.body) == a.contentLength {
		return Result{Outcome: Complete}, len(data)
	}
	return Result{Outcome: NeedMore}, len(data)
}

// transferEncodingChunked reports whether any Transfer-Encoding value
// names the chunked coding. Matching is a case-insensitive substring
// check over every occurrence of the header.
func transferEncodingChunked(h *headers.Headers) bool {
	for _, value := range h.Values("Transfer-Encoding") {
		if strings.Contains(strings.ToLower(value), "chunked") {
			return true
		}
	}
	return false
}

// parseDecimal parses a non-negative base-10 integer, rejecting empty
// input, signs and any non-digit.
func parseDecimal(s string) (int, bool) {
	if len(s) == 0 {
		return 0, false
	}
	const cutoff = (1<<63 - 1) / 10
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		if n > cutoff {
			return 0, false
		}
		n = n*10 + int(c-'0')
		if n < 0 {
			return 0, false
		}
	}
	return n, true
}
