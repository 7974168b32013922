package logger

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/ragdeck/middleware"
)

// RequestLogger logs outgoing requests
type RequestLogger struct {
	logger *slog.Logger
}

// NewRequestLogger creates a request logging middleware
func NewRequestLogger(logger *slog.Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

// Name returns the middleware name
func (m *RequestLogger) Name() string {
	return "RequestLogger"
}

// Execute logs the request
func (m *RequestLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.logger != nil && ctx.Request != nil {
		m.logger.DebugContext(ctx.Context(), "request",
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
		)
	}
	return next(ctx)
}

// ResponseLogger logs the outcome of each exchange
type ResponseLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewResponseLogger creates a response logging middleware
func NewResponseLogger(logger *slog.Logger) *ResponseLogger {
	return &ResponseLogger{logger: logger, now: time.Now}
}

// Name returns the middleware name
func (m *ResponseLogger) Name() string {
	return "ResponseLogger"
}

// Execute logs the response status or the transport error
func (m *ResponseLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	start := m.now()
	err := next(ctx)
	if m.logger == nil {
		return err
	}

	attrs := []any{"duration", m.now().Sub(start)}
	if ctx.Request != nil {
		attrs = append(attrs, "method", ctx.Request.Method, "path", ctx.Request.URL.Path)
	}
	switch {
	case err != nil:
		m.logger.WarnContext(ctx.Context(), "request failed", append(attrs, "error", err)...)
	case ctx.StatusCode() >= 400:
		m.logger.WarnContext(ctx.Context(), "response", append(attrs, "status", ctx.StatusCode())...)
	default:
		m.logger.DebugContext(ctx.Context(), "response", append(attrs, "status", ctx.StatusCode())...)
	}
	return err
}
