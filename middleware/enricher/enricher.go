package enricher

import (
	"github.com/sweetpotato0/ragdeck/middleware"
)

// APIKeyHeader carries the optional backend API key
const APIKeyHeader = "X-API-Key"

// EnricherFunc enriches the context
type EnricherFunc func(*middleware.Context) error

// ContextEnricher adds headers or metadata before the request is sent
type ContextEnricher struct {
	enricher EnricherFunc
}

// NewContextEnricher creates a context enriching middleware
func NewContextEnricher(enricher EnricherFunc) *ContextEnricher {
	return &ContextEnricher{enricher: enricher}
}

// Headers sets fixed request headers, leaving ones already present
func Headers(headers map[string]string) *ContextEnricher {
	return NewContextEnricher(func(ctx *middleware.Context) error {
		if ctx.Request == nil {
			return middleware.ErrInvalidContext
		}
		for k, v := range headers {
			if ctx.Request.Header.Get(k) == "" {
				ctx.Request.Header.Set(k, v)
			}
		}
		return nil
	})
}

// APIKey sets X-API-Key from key on every request when it returns a non-empty value
func APIKey(key func() string) *ContextEnricher {
	return NewContextEnricher(func(ctx *middleware.Context) error {
		if ctx.Request == nil {
			return middleware.ErrInvalidContext
		}
		if v := key(); v != "" {
			ctx.Request.Header.Set(APIKeyHeader, v)
		}
		return nil
	})
}

// Name returns the middleware name
func (m *ContextEnricher) Name() string {
	return "ContextEnricher"
}

// Execute enriches the context
func (m *ContextEnricher) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.enricher != nil {
		if err := m.enricher(ctx); err != nil {
			return err
		}
	}
	return next(ctx)
}
