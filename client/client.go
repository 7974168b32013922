// Package client talks to the RAG backend over HTTP. Every request runs
// through a middleware chain, carries the bearer token and a trace span, and
// picks up refreshed tokens from the X-New-Token response header.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/sweetpotato0/ragdeck/middleware"
	"github.com/sweetpotato0/ragdeck/middleware/logger"
	"github.com/sweetpotato0/ragdeck/pkg/logging"
	"github.com/sweetpotato0/ragdeck/pkg/telemetry"
	"github.com/sweetpotato0/ragdeck/stream"
)

const (
	// NewTokenHeader carries a refreshed access token on any response.
	NewTokenHeader = "X-New-Token"

	defaultTimeout         = 60 * time.Second
	defaultEvidenceTimeout = 30 * time.Second
	maxErrorDetail         = 512
)

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Token() string
}

// TokenRefresher receives tokens the backend hands out in X-New-Token.
// A TokenSource that also implements it is refreshed automatically.
type TokenRefresher interface {
	RefreshToken(token string)
}

// StaticToken is a fixed TokenSource.
type StaticToken string

// Token returns the token itself.
func (t StaticToken) Token() string { return string(t) }

// Client is the backend API client. It is safe for concurrent use.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	timeout         time.Duration
	evidenceTimeout time.Duration
	tokens          TokenSource
	userAgent       string
	logger          *slog.Logger
	extra           []middleware.Middleware
	chain           *middleware.Chain
	streamOpts      []stream.Option
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient swaps the HTTP client (useful for proxies or test servers).
// Its own Timeout should stay zero so streaming requests are not cut off.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds one-shot requests. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithEvidenceTimeout bounds evidence API requests.
func WithEvidenceTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.evidenceTimeout = d
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used by the default logging middlewares and
// the stream decoder.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMiddleware appends middlewares after the built-in loggers.
func WithMiddleware(m ...middleware.Middleware) Option {
	return func(c *Client) {
		c.extra = append(c.extra, m...)
	}
}

// WithStreamOptions passes options to every stream decoder the client creates.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(c *Client) {
		c.streamOpts = append(c.streamOpts, opts...)
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: base url %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL:         u.String(),
		httpClient:      &http.Client{},
		timeout:         defaultTimeout,
		evidenceTimeout: defaultEvidenceTimeout,
		logger:          logging.WithComponent("client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.chain = middleware.NewChain(
		logger.NewRequestLogger(c.logger),
		logger.NewResponseLogger(c.logger),
	)
	for _, m := range c.extra {
		c.chain.Add(m)
	}
	c.streamOpts = append([]stream.Option{stream.WithLogger(c.logger)}, c.streamOpts...)
	return c, nil
}

// BaseURL returns the normalised backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Documents returns the document management API.
func (c *Client) Documents() *DocumentsAPI { return &DocumentsAPI{c: c} }

// Graph returns the knowledge graph API.
func (c *Client) Graph() *GraphAPI { return &GraphAPI{c: c} }

// Query returns the retrieval API.
func (c *Client) Query() *QueryAPI { return &QueryAPI{c: c} }

// Auth returns the authentication API.
func (c *Client) Auth() *AuthAPI { return &AuthAPI{c: c} }

// Health returns the health API.
func (c *Client) Health() *HealthAPI { return &HealthAPI{c: c} }

// Evidence returns the evidence chain API.
func (c *Client) Evidence() *EvidenceAPI { return &EvidenceAPI{c: c} }

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("client: build request %s %s: %w", method, path, err)
	}
	return req, nil
}

// send runs req through the middleware chain. A nil error means a 2xx
// response whose body the caller must close.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	ctx, span := telemetry.Start(req.Context(), "client "+req.Method+" "+req.URL.Path,
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.URL.Path),
	)
	req = req.WithContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	mctx := middleware.NewContext(req)
	err := c.chain.Execute(mctx, func(mc *middleware.Context) error {
		resp, err := c.httpClient.Do(mc.Request)
		if err != nil {
			return err
		}
		mc.Response = resp
		return nil
	})
	resp := mctx.Response
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		err = &TransportError{Outcome: OutcomeFailure, Err: err}
		telemetry.End(span, err)
		return nil, err
	}
	if resp == nil {
		err = &TransportError{Outcome: OutcomeFailure, Err: fmt.Errorf("no response for %s %s", req.Method, req.URL.Path)}
		telemetry.End(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = statusError(resp)
		telemetry.End(span, err)
		return nil, err
	}

	if token := resp.Header.Get(NewTokenHeader); token != "" {
		if r, ok := c.tokens.(TokenRefresher); ok {
			r.RefreshToken(token)
			c.logger.Debug("access token refreshed")
		}
	}
	telemetry.End(span, nil)
	return resp, nil
}

// doJSON sends in as a JSON body (when non-nil) and decodes the reply into
// out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any, timeout time.Duration) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeBody(resp, method, path, out)
}

func decodeBody(resp *http.Response, method, path string, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}
