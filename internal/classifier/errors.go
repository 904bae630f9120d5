package classifier

import (
	"errors"
	"fmt"
)

// Error kinds, used for logging and the prediction journal
const (
	KindConnection        = "connection"
	KindServer            = "server"
	KindMalformedResponse = "malformed_response"
	KindUnknown           = "unknown"
)

// ConnectionError means the classifier could not be reached or timed out.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("classifier unreachable: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ServerError means the classifier answered with a non-2xx status.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("classifier returned status %d: %s", e.StatusCode, e.Body)
}

// MalformedResponseError means a 2xx body did not match the prediction shape.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed classifier response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Kind names the failure category of err.
func Kind(err error) string {
	var connErr *ConnectionError
	var serverErr *ServerError
	var malformedErr *MalformedResponseError

	switch {
	case errors.As(err, &connErr):
		return KindConnection
	case errors.As(err, &serverErr):
		return KindServer
	case errors.As(err, &malformedErr):
		return KindMalformedResponse
	default:
		return KindUnknown
	}
}
