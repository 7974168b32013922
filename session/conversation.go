package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sweetpotato0/ragdeck/api"
	errorskg "github.com/sweetpotato0/ragdeck/errors"
	"github.com/sweetpotato0/ragdeck/history"
	"github.com/sweetpotato0/ragdeck/message"
	"github.com/sweetpotato0/ragdeck/pkg/logging"
	"github.com/sweetpotato0/ragdeck/pkg/telemetry"
	"github.com/sweetpotato0/ragdeck/stream"
)

// Streamer opens a streaming query. *client.QueryAPI implements it.
type Streamer interface {
	Stream(ctx context.Context, req api.QueryRequest, sink stream.Sink) (stream.Stats, error)
}

// Reply is the outcome of one Send.
type Reply struct {
	Response string
	Errors   []string
	Stats    stream.Stats
	// Trimmed counts earlier messages left out of the conversation history.
	Trimmed  int
	Duration time.Duration
}

// Conversation is one retrieval chat. Sends are serialized; all other
// methods are safe for concurrent use.
type Conversation struct {
	id       string
	streamer Streamer
	cfg      settings
	logger   *slog.Logger
	persist  func(context.Context, *Record) error

	busy atomic.Bool

	mu           sync.RWMutex
	mode         api.QueryMode
	state        State
	messages     []*message.Message
	lastDuration time.Duration
	createdAt    time.Time
	updatedAt    time.Time
}

// NewConversation creates an unsaved conversation with the supplied identifier.
func NewConversation(id string, streamer Streamer, opts ...Option) *Conversation {
	return newConversation(id, streamer, newSettings(opts))
}

func newConversation(id string, streamer Streamer, cfg settings) *Conversation {
	now := time.Now()
	c := &Conversation{
		id:        id,
		streamer:  streamer,
		cfg:       cfg,
		mode:      cfg.mode,
		state:     StateActive,
		createdAt: now,
		updatedAt: now,
	}
	c.logger = cfg.logger
	if c.logger == nil {
		c.logger = logging.WithComponent("conversation")
	}
	c.logger = c.logger.With("conversation", id)
	return c
}

func newConversationFromRecord(r *Record, streamer Streamer, cfg settings) *Conversation {
	c := newConversation(r.ID, streamer, cfg)
	if r.Mode.Valid() {
		c.mode = r.Mode
	}
	if r.State != "" {
		c.state = r.State
	}
	c.messages = message.CloneMessages(r.Messages)
	c.lastDuration = r.LastDuration
	c.createdAt = r.CreatedAt
	c.updatedAt = r.UpdatedAt
	return c
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string {
	return c.id
}

// Mode returns the query mode.
func (c *Conversation) Mode() api.QueryMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// SetMode changes the query mode used by the next Send.
func (c *Conversation) SetMode(m api.QueryMode) error {
	if !m.Valid() {
		return fmt.Errorf("query mode %q: %w", m, errorskg.ErrInvalidInput)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
	c.updatedAt = time.Now()
	return nil
}

// State returns the conversation state.
func (c *Conversation) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Messages returns a copy of the conversation history.
func (c *Conversation) Messages() []*message.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return message.CloneMessages(c.messages)
}

// Busy reports whether a Send is streaming.
func (c *Conversation) Busy() bool {
	return c.busy.Load()
}

// Snapshot returns a serializable record of the conversation.
func (c *Conversation) Snapshot() *Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Record{
		ID:           c.id,
		Mode:         c.mode,
		State:        c.state,
		Messages:     message.CloneMessages(c.messages),
		LastDuration: c.lastDuration,
		CreatedAt:    c.createdAt,
		UpdatedAt:    c.updatedAt,
	}
}

// Send appends input as a user message and streams the answer. Earlier
// messages go out as conversation history, trimmed to the configured
// turns and token budget. onFragment, when set, sees every fragment as it
// arrives. Error frames do not fail the call; they are returned in Reply.
//
// If the stream fails after fragments arrived, the partial answer is kept
// and returned together with the error.
func (c *Conversation) Send(ctx context.Context, input string, onFragment func(string)) (Reply, error) {
	if strings.TrimSpace(input) == "" {
		return Reply{}, fmt.Errorf("empty query: %w", errorskg.ErrInvalidInput)
	}
	if !c.busy.CompareAndSwap(false, true) {
		return Reply{}, ErrBusy
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return Reply{}, fmt.Errorf("conversation %s: %w", c.id, errorskg.ErrClosed)
	}
	window, trimmed := contextWindow(c.messages, c.cfg.historyTurns, c.cfg.tokenBudget, c.cfg.tokenizer)
	c.messages = append(c.messages, message.NewMessage(message.RoleUser, input))
	mode := c.mode
	c.updatedAt = time.Now()
	c.mu.Unlock()

	ctx, span := telemetry.Start(ctx, "session.Send",
		attribute.String("conversation.id", c.id),
		attribute.String("query.mode", string(mode)),
		attribute.Int("history.messages", len(window)),
	)

	streaming := true
	req := api.QueryRequest{
		Query:               input,
		Mode:                mode,
		Stream:              &streaming,
		TopK:                c.cfg.topK,
		ConversationHistory: window,
		HistoryTurns:        c.cfg.historyTurns,
	}

	reply := Reply{Trimmed: trimmed}
	var answer strings.Builder
	sink := stream.Sink{
		OnFragment: func(text string) {
			answer.WriteString(text)
			if onFragment != nil {
				onFragment(text)
			}
		},
		OnError: func(msg string) {
			reply.Errors = append(reply.Errors, msg)
		},
	}

	start := time.Now()
	stats, err := c.streamer.Stream(ctx, req, sink)
	reply.Stats = stats
	reply.Response = answer.String()
	reply.Duration = time.Since(start)
	telemetry.End(span, err)

	c.mu.Lock()
	if reply.Response != "" || len(reply.Errors) > 0 {
		assistant := message.NewMessage(message.RoleAssistant, reply.Response)
		assistant.Errors = slices.Clone(reply.Errors)
		c.messages = append(c.messages, assistant)
	}
	c.lastDuration = reply.Duration
	c.updatedAt = time.Now()
	c.mu.Unlock()

	// Bookkeeping outlives a cancelled query.
	bg := context.WithoutCancel(ctx)
	if err == nil || reply.Response != "" {
		c.record(bg, input, mode, reply)
	}
	c.save(bg)

	if err != nil {
		c.logger.Warn("query stream failed", "error", err, "fragments", stats.Fragments)
		return reply, fmt.Errorf("query stream: %w", err)
	}
	if stats.Dropped > 0 {
		c.logger.Warn("malformed frames dropped", "dropped", stats.Dropped)
	}
	return reply, nil
}

func (c *Conversation) record(ctx context.Context, input string, mode api.QueryMode, reply Reply) {
	if c.cfg.history == nil {
		return
	}
	r := &history.Record{
		SessionID: c.id,
		Query:     input,
		Mode:      mode,
		Response:  reply.Response,
		Errors:    reply.Errors,
		Dropped:   reply.Stats.Dropped,
		Duration:  reply.Duration,
	}
	if err := c.cfg.history.Add(ctx, r); err != nil {
		c.logger.Warn("failed to record query history", "error", err)
	}
}

func (c *Conversation) save(ctx context.Context) {
	if c.persist == nil {
		return
	}
	if err := c.persist(ctx, c.Snapshot()); err != nil {
		c.logger.Warn("failed to persist conversation", "error", err)
	}
}

// Clear drops every message.
func (c *Conversation) Clear(ctx context.Context) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)
	c.mu.Lock()
	c.messages = nil
	c.updatedAt = time.Now()
	c.mu.Unlock()
	c.save(ctx)
	return nil
}

// Close marks the conversation as closed. Later sends fail with ErrClosed.
func (c *Conversation) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return fmt.Errorf("conversation %s already closed: %w", c.id, errorskg.ErrClosed)
	}
	c.state = StateClosed
	c.updatedAt = time.Now()
	c.mu.Unlock()
	c.save(context.Background())
	return nil
}
