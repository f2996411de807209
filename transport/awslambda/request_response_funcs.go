package awslambda

import (
	"context"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/a69/apig.go/event"
)

// HandlerRequestFunc may take information from the received
// AWS Lambda payload and use it to place items in the request scoped
// context. HandlerRequestFuncs are executed prior to decoding the event.
type HandlerRequestFunc func(ctx context.Context, payload []byte) context.Context

// HandlerResponseFunc may take information from a request context and the
// gateway response. HandlerResponseFuncs are only executed after serving
// the application but prior to encoding the response.
type HandlerResponseFunc func(ctx context.Context, resp event.Response) context.Context

// HandlerFinalizerFunc is executed at the end of every invocation, with the
// encoded response and the error returned to the runtime.
type HandlerFinalizerFunc func(ctx context.Context, resp []byte, err error)

// PopulateRequestContext is a HandlerRequestFunc that populates several
// values into the context from the Lambda invocation metadata. Those values
// may be extracted using the corresponding ContextKey type in this package.
func PopulateRequestContext(ctx context.Context, _ []byte) context.Context {
	ctx = context.WithValue(ctx, ContextKeyFunctionName, lambdacontext.FunctionName)
	ctx = context.WithValue(ctx, ContextKeyFunctionVersion, lambdacontext.FunctionVersion)
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		ctx = context.WithValue(ctx, ContextKeyRequestID, lc.AwsRequestID)
		ctx = context.WithValue(ctx, ContextKeyInvokedFunctionArn, lc.InvokedFunctionArn)
	}
	return ctx
}

type contextKey int

const (
	// ContextKeyFunctionName is populated in the context by
	// PopulateRequestContext. Its value is lambdacontext.FunctionName.
	ContextKeyFunctionName contextKey = iota

	// ContextKeyFunctionVersion is populated in the context by
	// PopulateRequestContext. Its value is lambdacontext.FunctionVersion.
	ContextKeyFunctionVersion

	// ContextKeyRequestID is populated in the context by
	// PopulateRequestContext. Its value is the AwsRequestID of the invocation.
	ContextKeyRequestID

	// ContextKeyInvokedFunctionArn is populated in the context by
	// PopulateRequestContext. Its value is the ARN the function was invoked with.
	ContextKeyInvokedFunctionArn

	// ContextKeyEventKind is populated in the context once the payload has
	// been decoded. Its value is the event.Kind of the event.
	ContextKeyEventKind

	// ContextKeyStatusCode is populated in the context once the application
	// has been served. Its value is the int status code of the response.
	ContextKeyStatusCode
)
