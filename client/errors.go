package client

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	errorskg "github.com/sweetpotato0/ragdeck/errors"
)

// Outcome tells the caller how to react to a failed request.
type Outcome int

const (
	// OutcomeFailure is a plain failure: report it and carry on.
	OutcomeFailure Outcome = iota
	// OutcomeReauthenticate means the credentials were rejected; the caller
	// should drop its session and log in again.
	OutcomeReauthenticate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReauthenticate:
		return "reauthenticate"
	default:
		return "failure"
	}
}

// TransportError is returned when a request does not produce a 2xx response.
type TransportError struct {
	Outcome    Outcome
	StatusCode int
	// Detail is the start of the error response body, if any.
	Detail string
	// Err is the underlying cause when no response was received.
	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP error, status %d", e.StatusCode)
	}
	if e.Err != nil {
		return "transport failure: " + e.Err.Error()
	}
	return "transport failure"
}

// Unwrap exposes errors.ErrUnauthorized or errors.ErrTransport plus the cause.
func (e *TransportError) Unwrap() []error {
	sentinel := errorskg.ErrTransport
	if e.Outcome == OutcomeReauthenticate {
		sentinel = errorskg.ErrUnauthorized
	}
	if e.Err != nil {
		return []error{sentinel, e.Err}
	}
	return []error{sentinel}
}

// statusError builds the error for a non-2xx response and closes its body.
func statusError(resp *http.Response) *TransportError {
	te := &TransportError{Outcome: OutcomeFailure, StatusCode: resp.StatusCode}
	if resp.StatusCode == http.StatusUnauthorized {
		te.Outcome = OutcomeReauthenticate
	}
	if resp.Body != nil {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorDetail))
		te.Detail = strings.TrimSpace(string(data))
	}
	return te
}
