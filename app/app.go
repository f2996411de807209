// Package app defines the synchronous calling convention applications are
// served with. An App receives the Environ of a request and a StartResponse
// function. It reports the status line and headers through StartResponse,
// then returns the response body as a lazy sequence of chunks.
package app

import (
	"github.com/a69/apig.go/environ"
)

// Header is one response header. Headers are passed as an ordered list so
// that repeated names keep their order.
type Header struct {
	Name  string
	Value string
}

// WriteFunc writes body bytes ahead of the chunks returned by the App.
type WriteFunc func([]byte) (int, error)

// StartResponse receives the status line, for example "200 OK", and the
// response headers. It may be called again to append more headers.
//
// A non-nil excInfo aborts the response: StartResponse returns it unchanged
// and the invocation fails with it. Applications must return that error.
type StartResponse func(status string, headers []Header, excInfo error) (WriteFunc, error)

// App serves one request.
type App interface {
	Serve(env environ.Environ, start StartResponse) (Body, error)
}

// Func is an adapter to allow the use of ordinary functions as App.
type Func func(env environ.Environ, start StartResponse) (Body, error)

// Serve calls f(env, start).
func (f Func) Serve(env environ.Environ, start StartResponse) (Body, error) {
	return f(env, start)
}
