package event

import "fmt"

// UnknownVersionError is returned for events whose version is neither 1.0
// nor 2.0. Such an event cannot be served and the invocation is aborted.
type UnknownVersionError struct {
	Version string
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("unknown version %q", e.Version)
}

// MalformedError is returned when an event of a known Kind lacks a required
// field or carries a field of the wrong type.
type MalformedError struct {
	Kind Kind
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s event: %v", e.Kind, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }
