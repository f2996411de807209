// Package environ builds the Environment an application is served with: a
// CGI style map of request meta-variables, synthesized from a gateway event.
//
// Well-known entries have typed accessors. The map stays open so that
// applications and the adapter can carry additional values, namespaced with
// a dotted prefix ("gateway." for the calling convention, "apig." for the
// gateway escape hatches) so they never collide with meta-variables.
package environ

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-lambda-go/lambdacontext"
)

// Meta-variables.
const (
	KeyRequestMethod  = "REQUEST_METHOD"
	KeyScriptName     = "SCRIPT_NAME"
	KeyPathInfo       = "PATH_INFO"
	KeyQueryString    = "QUERY_STRING"
	KeyContentType    = "CONTENT_TYPE"
	KeyContentLength  = "CONTENT_LENGTH"
	KeyServerName     = "SERVER_NAME"
	KeyServerPort     = "SERVER_PORT"
	KeyServerProtocol = "SERVER_PROTOCOL"
	KeyRemoteAddr     = "REMOTE_ADDR"

	// HeaderPrefix starts the key of every request header entry.
	HeaderPrefix = "HTTP_"
)

// Calling convention entries.
const (
	KeyInput     = "gateway.input"      // io.ReadSeeker over the request body
	KeyURLScheme = "gateway.url_scheme" // "http" or "https"
	KeyErrors    = "gateway.errors"     // io.Writer for application diagnostics
)

// Gateway escape hatches.
const (
	KeyFullEvent         = "apig.full_event"          // map[string]any, the whole event
	KeyContext           = "apig.context"             // context.Context of the invocation
	KeyRequestContext    = "apig.request_context"     // map[string]any, event requestContext
	KeyMultiValueHeaders = "apig.multi_value_headers" // bool, response uses multiValueHeaders
)

// Environ is the input an application is served with.
type Environ map[string]any

// String returns the entry for key when it holds a string, "" otherwise.
func (e Environ) String(key string) string {
	s, _ := e[key].(string)
	return s
}

// Method returns REQUEST_METHOD.
func (e Environ) Method() string { return e.String(KeyRequestMethod) }

// PathInfo returns PATH_INFO. Each rune of the result stands for one byte
// of the percent-decoded path, as in ISO-8859-1.
func (e Environ) PathInfo() string { return e.String(KeyPathInfo) }

// QueryString returns QUERY_STRING, percent-encoded.
func (e Environ) QueryString() string { return e.String(KeyQueryString) }

// ContentType returns CONTENT_TYPE, "" when the request had none.
func (e Environ) ContentType() string { return e.String(KeyContentType) }

// ContentLength returns CONTENT_LENGTH, the decimal size of the body.
func (e Environ) ContentLength() string { return e.String(KeyContentLength) }

// ServerName returns SERVER_NAME.
func (e Environ) ServerName() string { return e.String(KeyServerName) }

// ServerPort returns SERVER_PORT.
func (e Environ) ServerPort() string { return e.String(KeyServerPort) }

// Protocol returns SERVER_PROTOCOL.
func (e Environ) Protocol() string { return e.String(KeyServerProtocol) }

// RemoteAddr returns REMOTE_ADDR.
func (e Environ) RemoteAddr() string { return e.String(KeyRemoteAddr) }

// Scheme returns the URL scheme the client used.
func (e Environ) Scheme() string { return e.String(KeyURLScheme) }

// Input returns the request body, or nil if the entry is missing.
func (e Environ) Input() io.ReadSeeker {
	r, _ := e[KeyInput].(io.ReadSeeker)
	return r
}

// Errors returns the diagnostics writer, io.Discard if there is none.
func (e Environ) Errors() io.Writer {
	if w, ok := e[KeyErrors].(io.Writer); ok {
		return w
	}
	return io.Discard
}

// Header returns the entry of the named request header. Multiple values of
// the header are joined with commas.
func (e Environ) Header(name string) (string, bool) {
	v, ok := e[HeaderKey(name)].(string)
	return v, ok
}

// FullEvent returns the complete gateway event.
func (e Environ) FullEvent() map[string]any {
	m, _ := e[KeyFullEvent].(map[string]any)
	return m
}

// Context returns the invocation context, never nil.
func (e Environ) Context() context.Context {
	if ctx, ok := e[KeyContext].(context.Context); ok && ctx != nil {
		return ctx
	}
	return context.Background()
}

// LambdaContext returns the Lambda runtime metadata of the invocation.
func (e Environ) LambdaContext() (*lambdacontext.LambdaContext, bool) {
	return lambdacontext.FromContext(e.Context())
}

// RequestContext returns the requestContext object of the event, if it
// carried a non-null one. It holds gateway specific metadata such as
// authorizer claims or the target group ARN.
func (e Environ) RequestContext() (map[string]any, bool) {
	m, ok := e[KeyRequestContext].(map[string]any)
	return m, ok
}

// MultiValueHeaders reports whether the response will be serialized with
// multi-value headers.
func (e Environ) MultiValueHeaders() bool {
	b, _ := e[KeyMultiValueHeaders].(bool)
	return b
}

// HeaderKey returns the Environ key of a request header:
// "X-Forwarded-For" becomes "HTTP_X_FORWARDED_FOR".
func HeaderKey(name string) string {
	return HeaderPrefix + strings.ReplaceAll(strings.ToUpper(name), "-", "_")
}

type contextKey int

const environKey contextKey = 0

// NewContext returns a copy of ctx carrying env.
func NewContext(ctx context.Context, env Environ) context.Context {
	return context.WithValue(ctx, environKey, env)
}

// FromContext returns the Environ carried by ctx, if any. Requests produced
// by Request carry the Environ they were built from.
func FromContext(ctx context.Context) (Environ, bool) {
	env, ok := ctx.Value(environKey).(Environ)
	return env, ok
}
