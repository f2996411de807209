package awslambda

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-kit/log"

	"github.com/a69/apig.go/app"
	"github.com/a69/apig.go/endpoint"
	"github.com/a69/apig.go/environ"
	"github.com/a69/apig.go/event"
	"github.com/a69/apig.go/response"
	"github.com/a69/apig.go/transport"
)

// ErrResponseNotStarted is reported to the error handler when the
// application returns without calling StartResponse. The invocation still
// answers, with status 500.
var ErrResponseNotStarted = errors.New("application returned without starting the response")

var _ lambda.Handler = (*Handler)(nil)

// Handler wraps an app.App.
type Handler struct {
	app           app.App
	e             endpoint.Endpoint[event.Request, event.Response]
	dec           DecodeRequestFunc
	enc           EncodeResponseFunc
	binarySupport *bool
	prefixes      []string
	before        []HandlerRequestFunc
	after         []HandlerResponseFunc
	errorEncoder  ErrorEncoder
	finalizer     []HandlerFinalizerFunc
	errorHandler  transport.ErrorHandler
}

// NewHandler constructs a new handler, which implements
// the AWS lambda.Handler interface.
func NewHandler(a app.App, options ...HandlerOption) *Handler {
	h := &Handler{
		app:          a,
		dec:          DecodeEvent,
		enc:          EncodeJSONResponse,
		errorEncoder: DefaultErrorEncoder,
		errorHandler: transport.NewLogErrorHandler(log.NewNopLogger()),
	}
	for _, option := range options {
		option(h)
	}
	h.e = h.Serve
	return h
}

// Endpoint returns the endpoint Invoke serves decoded events through.
func (h *Handler) Endpoint() endpoint.Endpoint[event.Request, event.Response] {
	return h.e
}

// HandlerOption sets an optional parameter for handlers.
type HandlerOption func(*Handler)

// BinarySupport forces binary responses on or off for 1.0 and load balancer
// events. When unset, 1.0 events answer in text and load balancer events
// may answer in binary. 2.0 events always may.
func BinarySupport(enabled bool) HandlerOption {
	return func(h *Handler) { h.binarySupport = &enabled }
}

// NonBinaryContentTypePrefixes replaces the content type prefixes whose
// bodies are sent as text, see response.DefaultNonBinaryContentTypePrefixes.
func NonBinaryContentTypePrefixes(prefixes ...string) HandlerOption {
	return func(h *Handler) { h.prefixes = append([]string{}, prefixes...) }
}

// HandlerDecoder replaces DecodeEvent.
func HandlerDecoder(dec DecodeRequestFunc) HandlerOption {
	return func(h *Handler) { h.dec = dec }
}

// HandlerEncoder replaces EncodeJSONResponse.
func HandlerEncoder(enc EncodeResponseFunc) HandlerOption {
	return func(h *Handler) { h.enc = enc }
}

// HandlerBefore functions are executed on the payload byte,
// before the request is decoded.
func HandlerBefore(before ...HandlerRequestFunc) HandlerOption {
	return func(h *Handler) { h.before = append(h.before, before...) }
}

// HandlerAfter functions are only executed after serving the application
// but prior to returning a response.
func HandlerAfter(after ...HandlerResponseFunc) HandlerOption {
	return func(h *Handler) { h.after = append(h.after, after...) }
}

// HandlerErrorHandler is used to handle non-terminal errors.
// By default, non-terminal errors are ignored.
func HandlerErrorHandler(errorHandler transport.ErrorHandler) HandlerOption {
	return func(h *Handler) { h.errorHandler = errorHandler }
}

// HandlerErrorEncoder is used to encode errors.
func HandlerErrorEncoder(ee ErrorEncoder) HandlerOption {
	return func(h *Handler) { h.errorEncoder = ee }
}

// HandlerFinalizer sets finalizer which are called at the end of
// request. By default no finalizer is registered.
func HandlerFinalizer(f ...HandlerFinalizerFunc) HandlerOption {
	return func(h *Handler) { h.finalizer = append(h.finalizer, f...) }
}

// DefaultErrorEncoder defines the default behavior of encoding an error response,
// where it returns nil, and the error itself.
func DefaultErrorEncoder(ctx context.Context, err error) ([]byte, error) {
	return nil, err
}

// Invoke represents implementation of the AWS lambda.Handler interface.
func (h *Handler) Invoke(
	ctx context.Context,
	payload []byte,
) (resp []byte, err error) {
	if len(h.finalizer) > 0 {
		defer func() {
			for _, f := range h.finalizer {
				f(ctx, resp, err)
			}
		}()
	}

	for _, f := range h.before {
		ctx = f(ctx, payload)
	}

	request, err := h.dec(ctx, payload)
	if err != nil {
		h.errorHandler.Handle(ctx, err)
		return h.errorEncoder(ctx, err)
	}
	ctx = context.WithValue(ctx, ContextKeyEventKind, request.Kind())

	res, err := h.e(ctx, request)
	if err != nil {
		h.errorHandler.Handle(ctx, err)
		return h.errorEncoder(ctx, err)
	}
	ctx = context.WithValue(ctx, ContextKeyStatusCode, res.Status())

	for _, f := range h.after {
		ctx = f(ctx, res)
	}

	if resp, err = h.enc(ctx, res); err != nil {
		h.errorHandler.Handle(ctx, err)
		return h.errorEncoder(ctx, err)
	}

	return resp, err
}

// Serve runs the application for a decoded event and returns the response
// matching the event's format. Errors the application aborts the response
// with are returned unchanged.
func (h *Handler) Serve(ctx context.Context, req event.Request) (event.Response, error) {
	env, err := environ.Build(ctx, req)
	if err != nil {
		return nil, err
	}

	c := response.New(h.binary(req.Kind()), h.prefixes)
	body, err := h.app.Serve(env, c.StartResponse)
	if err != nil {
		if closer, ok := body.(io.Closer); ok {
			closer.Close()
		}
		return nil, err
	}
	if err := c.Consume(body); err != nil {
		return nil, err
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	if !c.Started() {
		h.errorHandler.Handle(ctx, ErrResponseNotStarted)
	}

	if req.Kind() == event.KindV2 {
		return c.HTTPResponse(), nil
	}
	return c.ProxyResponse(env.MultiValueHeaders()), nil
}

func (h *Handler) binary(kind event.Kind) bool {
	switch {
	case kind == event.KindV2:
		return true
	case h.binarySupport != nil:
		return *h.binarySupport
	default:
		return kind == event.KindALB
	}
}
