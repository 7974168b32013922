package errorhandler

import (
	"net/http"

	"github.com/sweetpotato0/ragdeck/middleware"
)

// ErrorHandlerFunc handles errors
type ErrorHandlerFunc func(error) error

// UnauthorizedFunc is called when the backend answers 401
type UnauthorizedFunc func(*middleware.Context)

// ErrorHandler handles errors in the middleware chain
type ErrorHandler struct {
	handler        ErrorHandlerFunc
	onUnauthorized UnauthorizedFunc
}

// NewErrorHandler creates an error handling middleware
func NewErrorHandler(handler ErrorHandlerFunc) *ErrorHandler {
	return &ErrorHandler{handler: handler}
}

// OnUnauthorized registers a hook run for every 401 response
func (m *ErrorHandler) OnUnauthorized(fn UnauthorizedFunc) *ErrorHandler {
	m.onUnauthorized = fn
	return m
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Execute handles errors and unauthorized responses from downstream middlewares
func (m *ErrorHandler) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	if err == nil && ctx.StatusCode() == http.StatusUnauthorized && m.onUnauthorized != nil {
		m.onUnauthorized(ctx)
	}
	if err != nil && m.handler != nil {
		return m.handler(err)
	}
	return err
}
