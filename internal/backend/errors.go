package backend

import (
	"errors"
	"fmt"
)

// The client surfaces each failure class as a distinct type so handlers can
// map them to different user-facing messages. None of them trigger a retry.

// TransportError wraps a network-level failure (connection refused, DNS,
// timeout) talking to the analysis backend.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend unreachable (%s): %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response, carrying the status code and any
// error text the backend returned.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d (%s)", e.Status, e.Endpoint)
	}
	return fmt.Sprintf("backend returned status %d (%s): %s", e.Status, e.Endpoint, e.Body)
}

// DecodeError reports a 2xx response whose body was not the expected JSON.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unexpected response from server (%s): %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AsTransportError reports whether err is a TransportError.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	ok := errors.As(err, &te)
	return te, ok
}

// AsStatusError reports whether err is a StatusError.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	ok := errors.As(err, &se)
	return se, ok
}

// AsDecodeError reports whether err is a DecodeError.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	ok := errors.As(err, &de)
	return de, ok
}
