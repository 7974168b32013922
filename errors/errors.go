package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the backend rejected the credentials (HTTP 401)
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransport indicates the request failed before or instead of a 2xx response
	ErrTransport = errors.New("transport failure")

	// ErrEmptyBody indicates a streaming response arrived without a body
	ErrEmptyBody = errors.New("response body is empty")

	// ErrClosed indicates an operation on a closed session or store
	ErrClosed = errors.New("closed")
)
