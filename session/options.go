package session

import (
	"log/slog"

	"github.com/sweetpotato0/ragdeck/api"
	"github.com/sweetpotato0/ragdeck/history"
	"github.com/sweetpotato0/ragdeck/tokenizer"
)

const (
	// DefaultHistoryTurns is how many user/assistant pairs are sent as
	// conversation history.
	DefaultHistoryTurns = 3
	// DefaultTokenBudget caps the tokens of the history sent with a query.
	DefaultTokenBudget = 4000
	DefaultMode        = api.QueryModeMix
)

// Option configures a Manager and the conversations it creates.
type Option func(*settings)

type settings struct {
	store        Store
	history      history.Store
	tokenizer    tokenizer.Tokenizer
	historyTurns int
	tokenBudget  int
	mode         api.QueryMode
	topK         int
	logger       *slog.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		historyTurns: DefaultHistoryTurns,
		tokenBudget:  DefaultTokenBudget,
		mode:         DefaultMode,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.tokenizer == nil {
		s.tokenizer = tokenizer.NewSimpleTokenizer()
	}
	return s
}

// WithStore sets the store conversations are persisted to.
func WithStore(s Store) Option {
	return func(c *settings) {
		c.store = s
	}
}

// WithHistory records every finished query in h.
func WithHistory(h history.Store) Option {
	return func(c *settings) {
		c.history = h
	}
}

// WithTokenizer sets the tokenizer used to enforce the token budget.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(c *settings) {
		if t != nil {
			c.tokenizer = t
		}
	}
}

// WithHistoryTurns limits the history to n user/assistant pairs. Zero
// sends no history.
func WithHistoryTurns(n int) Option {
	return func(c *settings) {
		if n >= 0 {
			c.historyTurns = n
		}
	}
}

// WithTokenBudget caps the history tokens. Zero disables the cap.
func WithTokenBudget(n int) Option {
	return func(c *settings) {
		if n >= 0 {
			c.tokenBudget = n
		}
	}
}

// WithMode sets the query mode of new conversations.
func WithMode(m api.QueryMode) Option {
	return func(c *settings) {
		if m.Valid() {
			c.mode = m
		}
	}
}

// WithTopK sets top_k on every query. Zero leaves it to the backend.
func WithTopK(k int) Option {
	return func(c *settings) {
		c.topK = k
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *settings) {
		if logger != nil {
			c.logger = logger
		}
	}
}
