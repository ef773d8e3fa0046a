package request

import (
	"github.com/Brownie44l1/epollhttp/internal/headers"
)

// Request is the immutable view over one fully assembled HTTP request.
// Header lookup is case-insensitive; names are stored upper-cased.
type Request struct {
	method  string
	uri     string
	version string
	headers *headers.Headers
	body    []byte

	closer func()
}

// NewRequest builds the view the handler receives. closer is the single
// path through which the handler can ask for the connection to be closed.
func NewRequest(method, uri, version string, h *headers.Headers, body []byte, closer func()) *Request {
	return &Request{
		method:  method,
		uri:     uri,
		version: version,
		headers: h,
		body:    body,
		closer:  closer,
	}
}

func (r *Request) Method() string { return r.method }

func (r *Request) URI() string { return r.uri }

func (r *Request) Version() string { return r.version }

// Header returns the first value for name.
func (r *Request) Header(name string) (string, bool) {
	return r.headers.Get(name)
}

// HeaderValues returns every value for name in arrival order.
func (r *Request) HeaderValues(name string) []string {
	return r.headers.Values(name)
}

// Headers exposes the full header multimap.
func (r *Request) Headers() *headers.Headers {
	return r.headers
}

func (r *Request) Body() []byte { return r.body }

func (r *Request) BodyString() string { return string(r.body) }

// Close schedules the underlying connection for closure.
func (r *Request) Close() {
	if r.closer != nil {
		r.closer()
	}
}
