package limiter

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/sweetpotato0/ragdeck/middleware"
)

// ErrRateLimitExceeded indicates rate limit has been exceeded
var ErrRateLimitExceeded = middleware.ErrRateLimitExceeded

// RateLimiter middleware throttles outgoing requests with a token bucket
type RateLimiter struct {
	limiter  *rate.Limiter
	blocking bool
}

// Option configures a RateLimiter
type Option func(*RateLimiter)

// NonBlocking makes the limiter reject requests immediately when no token is available
func NonBlocking() Option {
	return func(m *RateLimiter) {
		m.blocking = false
	}
}

// NewRateLimiter creates a rate limiting middleware allowing perSecond
// requests on average with the given burst
func NewRateLimiter(perSecond float64, burst int, opts ...Option) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	m := &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		blocking: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the middleware name
func (m *RateLimiter) Name() string {
	return "RateLimiter"
}

// Execute waits for or checks a token before passing the request on
func (m *RateLimiter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if !m.blocking {
		if !m.limiter.Allow() {
			return ErrRateLimitExceeded
		}
		return next(ctx)
	}
	if err := m.limiter.Wait(ctx.Context()); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimitExceeded, err)
	}
	return next(ctx)
}

// Tokens returns the number of tokens currently available
func (m *RateLimiter) Tokens() float64 {
	return m.limiter.Tokens()
}
