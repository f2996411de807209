// Package endpoint defines the function a transport serves decoded requests
// through.
package endpoint

import (
	"context"
)

// Endpoint serves a single decoded request. For the Lambda transport REQ is
// the inbound event and RES the gateway response.
type Endpoint[REQ any, RES any] func(ctx context.Context, request REQ) (response RES, err error)

// Nop is an endpoint that returns the zero response and a nil error.
func Nop[REQ any, RES any](context.Context, REQ) (_ RES, _ error) { return }
