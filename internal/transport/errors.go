package transport

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnconfigured     Kind = "unconfigured"
	KindServerRejected   Kind = "server_rejected"
	KindInvalidResponse  Kind = "invalid_response"
	KindConnectionFailed Kind = "connection_failed"
)

// Error is the only error type returned by Client.Request. Status is 0 when
// no HTTP response was received.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	RawBody string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnconfigured:
		return "api url or bearer token not configured"
	case KindServerRejected:
		return fmt.Sprintf("server rejected request (%d): %s", e.Status, e.Message)
	case KindInvalidResponse:
		if e.RawBody != "" {
			return fmt.Sprintf("invalid response (%d): %s", e.Status, e.RawBody)
		}
		return fmt.Sprintf("invalid response from server (%d)", e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("connection failed: %v", e.Err)
		}
		return "connection failed"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the transport kind carried anywhere in err's chain.
// Errors that did not originate in this package are reported as connection failures.
func KindOf(err error) Kind {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind
	}
	return KindConnectionFailed
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var terr *Error
	if errors.As(err, &terr) {
		return terr, true
	}
	return nil, false
}
