package middleware

import (
	"context"
	"net/http"
)

// Context carries one HTTP exchange through the middleware chain
type Context struct {
	// Outgoing request; middlewares may modify headers before next is called
	Request *http.Request

	// Response set by the final handler, nil until then or on transport error
	Response *http.Response

	// Error from execution
	Error error

	// Metadata for passing data between middlewares
	Metadata map[string]any

	// Internal state
	context context.Context
}

// NewContext creates a new middleware context for req
func NewContext(req *http.Request) *Context {
	ctx := context.Background()
	if req != nil {
		ctx = req.Context()
	}
	return &Context{
		Request:  req,
		Metadata: make(map[string]any),
		context:  ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	if c.context == nil {
		return context.Background()
	}
	return c.context
}

// StatusCode returns the response status, or 0 when there is no response
func (c *Context) StatusCode() int {
	if c.Response == nil {
		return 0
	}
	return c.Response.StatusCode
}

// Middleware defines the interface for middleware components
// Middlewares can intercept and modify requests/responses of the API client
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic
	// It receives the current context and a next handler to continue the chain
	// Returning error will stop the middleware chain
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// Chain represents a sequence of middleware to be executed
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{
		middlewares: middlewares,
	}
}

// Add appends a middleware to the chain
func (c *Chain) Add(m Middleware) *Chain {
	if m != nil {
		c.middlewares = append(c.middlewares, m)
	}
	return c
}

// Len returns the number of middlewares in the chain
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Execute runs all middlewares in the chain
func (c *Chain) Execute(ctx *Context, finalHandler Handler) error {
	return c.executeMiddleware(ctx, 0, finalHandler)
}

// executeMiddleware recursively executes middlewares in sequence
func (c *Chain) executeMiddleware(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		// All middlewares executed, call the final handler
		return finalHandler(ctx)
	}

	// Create a handler for the next middleware
	nextHandler := func(ctx *Context) error {
		return c.executeMiddleware(ctx, index+1, finalHandler)
	}

	// Execute current middleware
	return c.middlewares[index].Execute(ctx, nextHandler)
}

// Func adapts a plain function into a named Middleware
type Func struct {
	name string
	fn   func(*Context, Handler) error
}

// NewFunc wraps fn as a middleware called name
func NewFunc(name string, fn func(*Context, Handler) error) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the middleware name
func (m *Func) Name() string {
	return m.name
}

// Execute calls the wrapped function
func (m *Func) Execute(ctx *Context, next Handler) error {
	if m.fn == nil {
		return next(ctx)
	}
	return m.fn(ctx, next)
}
