package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-success HTTP response from the chat server.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.Code, e.Body)
	}
	return fmt.Sprintf("%s: server returned %d", e.Op, e.Code)
}

func (e *StatusError) StatusCode() int {
	return e.Code
}

// CredentialMissing reports whether the status means the server has no
// usable credential for the caller.
func (e *StatusError) CredentialMissing() bool {
	switch e.Code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// TransportError means the request never produced a readable response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsCredentialMissing reports whether err carries a credential-shaped status.
func IsCredentialMissing(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.CredentialMissing()
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
