package awslambda

import (
	"context"
	"encoding/json"

	"github.com/a69/apig.go/event"
)

// DecodeRequestFunc extracts a gateway event from an AWS Lambda payload.
type DecodeRequestFunc func(context.Context, []byte) (event.Request, error)

// EncodeResponseFunc encodes the passed gateway response into []byte,
// ready to be sent as AWS Lambda response.
type EncodeResponseFunc func(context.Context, event.Response) ([]byte, error)

// ErrorEncoder is responsible for encoding an error.
type ErrorEncoder func(ctx context.Context, err error) ([]byte, error)

// DecodeEvent is the default DecodeRequestFunc. It sniffs the event format
// and decodes the payload with event.Decode.
func DecodeEvent(_ context.Context, payload []byte) (event.Request, error) {
	return event.Decode(payload)
}

// EncodeJSONResponse is the default EncodeResponseFunc.
func EncodeJSONResponse(_ context.Context, resp event.Response) ([]byte, error) {
	return json.Marshal(resp)
}
