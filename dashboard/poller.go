package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweetpotato0/ragdeck/pkg/logging"
	"github.com/sweetpotato0/ragdeck/state"
)

// DefaultPollInterval matches the documents view refresh rate.
const DefaultPollInterval = 5 * time.Second

// Poller keeps a state.Documents in sync with the backend.
type Poller struct {
	docs      DocumentLister
	state     *state.Documents
	interval  time.Duration
	logger    *slog.Logger
	onRefresh func(error)
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the refresh interval.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// OnRefresh registers a callback invoked after every refresh with its
// error, nil on success.
func OnRefresh(fn func(error)) PollerOption {
	return func(p *Poller) {
		p.onRefresh = fn
	}
}

// NewPoller creates a poller writing into st.
func NewPoller(docs DocumentLister, st *state.Documents, opts ...PollerOption) *Poller {
	p := &Poller{
		docs:     docs,
		state:    st,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.WithComponent("dashboard.poller")
	}
	return p
}

// Refresh fetches the document list once. On failure the state keeps its
// previous contents.
func (p *Poller) Refresh(ctx context.Context) error {
	p.state.SetLoading(true)
	defer p.state.SetLoading(false)

	resp, err := p.docs.All(ctx)
	if err != nil {
		return fmt.Errorf("refresh documents: %w", err)
	}
	p.state.Set(resp.All())
	counts := make(map[string]int, len(resp.Statuses))
	for status, group := range resp.Statuses {
		counts[string(status)] = len(group)
	}
	p.state.SetStatusCounts(counts)
	return nil
}

// Run refreshes immediately and then on every tick until ctx ends.
// Failures are logged and retried on the next tick. Run returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		err := p.Refresh(ctx)
		if err != nil && ctx.Err() == nil {
			p.logger.Warn("document refresh failed", "error", err)
		}
		if p.onRefresh != nil {
			p.onRefresh(err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
