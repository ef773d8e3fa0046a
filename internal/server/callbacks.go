package server

import (
	"github.com/Brownie44l1/epollhttp/internal/headers"
	"github.com/Brownie44l1/epollhttp/internal/request"
	"github.com/Brownie44l1/epollhttp/internal/response"
	"github.com/Brownie44l1/epollhttp/internal/sock"
)

// Handler processes one assembled request. It must eventually call
// res.End(); the reactor does not wait on it, so a handler may hand the
// pair to another goroutine and return.
type Handler func(req *request.Request, res *response.Response)

// Callbacks is the full event surface of the server. OnRequest is
// required; every other slot may stay nil. Each event has exactly one
// distinct slot, so no two events can alias the same function by
// accident.
type Callbacks struct {
	// OnRequest runs for every completed request.
	OnRequest Handler

	// OnConnectionOpened fires after a connection is accepted and
	// registered.
	OnConnectionOpened func(id int, remote sock.Addr)

	// OnConnectionClosed fires after a connection is closed and removed,
	// whatever the reason.
	OnConnectionClosed func(id int, remote sock.Addr)

	// OnListenSuccess fires once the listener is bound and the loop is
	// about to start.
	OnListenSuccess func(addr sock.Addr)

	// OnShutdown fires after Stop has drained and closed everything.
	OnShutdown func()

	// OnError receives protocol errors, per-connection I/O errors and
	// handler failures.
	OnError func(err error)

	// OnIdleTick fires when a poll wake found no readiness events.
	OnIdleTick func()

	// OnHeadersReceived fires as soon as a request's header section is
	// parsed, before the body is complete.
	OnHeadersReceived func(id int, method, uri, version string, h *headers.Headers)
}
