package response

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Brownie44l1/epollhttp/internal/headers"
)

// rfc1123GMT pins the Date header to GMT regardless of local zone
const rfc1123GMT = "Mon, 02 Jan 2006 15:04:05 GMT"

var (
	ErrEnded    = errors.New("response already ended")
	ErrNotBound = errors.New("response has no connection")
)

// Response builds one HTTP response and serializes it to the wire.
// Defaults: HTTP/1.1, 200 OK, empty headers and body. Send writes the
// full serialized form; End schedules the connection for close and is
// a no-op on re-entry. The server never reuses a connection, so every
// response carries Connection: close.
type Response struct {
	version       string
	statusCode    int
	statusMessage string
	headers       *headers.Headers
	trailers      *headers.Headers
	body          []byte

	sendFn  func([]byte) error
	closeFn func()

	sent  bool
	ended bool

	now func() time.Time
}

// New creates a response bound to a connection through its send and
// close hooks.
func New(send func([]byte) error, closeConn func()) *Response {
	return &Response{
		version:       "HTTP/1.1",
		statusCode:    StatusOK,
		statusMessage: "OK",
		headers:       headers.NewHeaders(),
		trailers:      headers.NewHeaders(),
		sendFn:        send,
		closeFn:       closeConn,
		now:           time.Now,
	}
}

// SetStatus sets the status code and reason phrase. An empty message
// picks the canonical phrase for the code.
func (r *Response) SetStatus(code int, message string) {
	r.statusCode = code
	if message == "" {
		message = StatusText(code)
	}
	r.statusMessage = message
}

// SetVersion overrides the HTTP version token of the status line.
func (r *Response) SetVersion(version string) {
	r.version = version
}

// AddHeader appends a header occurrence; repeated names are allowed.
func (r *Response) AddHeader(name, value string) {
	r.headers.Add(name, value)
}

// AddTrailer appends a trailer occurrence, emitted after the body.
func (r *Response) AddTrailer(name, value string) {
	r.trailers.Add(name, value)
}

// SetBody replaces the response body.
func (r *Response) SetBody(body []byte) {
	r.body = body
}

func (r *Response) StatusCode() int { return r.statusCode }

func (r *Response) StatusMessage() string { return r.statusMessage }

func (r *Response) Version() string { return r.version }

func (r *Response) Body() []byte { return r.body }

// Header returns the first value set for name.
func (r *Response) Header(name string) (string, bool) {
	return r.headers.Get(name)
}

// Serialize renders the response in wire order: status line, Date,
// headers (names upper-cased), blank line, body, trailers.
func (r *Response) Serialize() []byte {
	var b strings.Builder

	b.WriteString(r.version)
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(r.statusCode))
	b.WriteByte(' ')
	b.WriteString(r.statusMessage)
	b.WriteString("\r\n")

	b.WriteString("Date: ")
	b.WriteString(r.now().UTC().Format(rfc1123GMT))
	b.WriteString("\r\n")

	for _, f := range r.headers.Fields() {
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteString("\r\n")
	}

	b.WriteString("\r\n")
	b.Write(r.body)

	for _, f := range r.trailers.Fields() {
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteString("\r\n")
	}

	return []byte(b.String())
}

// Send serializes and writes the response. The connection never carries
// a second response, so Connection: close is forced on before writing.
func (r *Response) Send() error {
	if r.ended {
		return ErrEnded
	}
	if r.sendFn == nil {
		return ErrNotBound
	}

	r.headers.Set("Connection", "close")

	if err := r.sendFn(r.Serialize()); err != nil {
		return err
	}
	r.sent = true
	return nil
}

// Sent reports whether Send completed at least once.
func (r *Response) Sent() bool {
	return r.sent
}

// End schedules the connection for close. Calling End without a prior
// Send drops the connection with no wire response. Re-entry is a no-op.
func (r *Response) End() {
	if r.ended {
		return
	}
	r.ended = true
	if r.closeFn != nil {
		r.closeFn()
	}
}

// Ended reports whether End has run.
func (r *Response) Ended() bool {
	return r.ended
}
