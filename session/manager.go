package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	errorskg "github.com/sweetpotato0/ragdeck/errors"
	"github.com/sweetpotato0/ragdeck/pkg/logging"
)

// Manager creates, loads and deletes conversations through a Store.
type Manager struct {
	mu            sync.RWMutex
	streamer      Streamer
	cfg           settings
	conversations map[string]*Conversation
	logger        *slog.Logger
}

// NewManager creates a new conversation manager with the given options.
//
// Example:
//
//	mgr := session.NewManager(c.Query(), session.WithStore(store.NewInMemoryStore()))
func NewManager(streamer Streamer, opts ...Option) *Manager {
	m := &Manager{
		streamer:      streamer,
		cfg:           newSettings(opts),
		conversations: make(map[string]*Conversation),
	}
	m.logger = m.cfg.logger
	if m.logger == nil {
		m.logger = logging.WithComponent("session_manager")
	}
	return m
}

// Create starts a conversation. An empty id gets a fresh UUID.
func (m *Manager) Create(ctx context.Context, id string) (*Conversation, error) {
	if id == "" {
		id = uuid.NewString()
	}
	m.logger.Info("creating conversation", "id", id)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureStore(); err != nil {
		return nil, err
	}
	if _, ok := m.conversations[id]; ok {
		return nil, fmt.Errorf("conversation %s already exists", id)
	}
	exists, err := m.cfg.store.Exists(ctx, id)
	if err != nil {
		m.logger.Error("create conversation existence check failed", "id", id, "error", err)
		return nil, fmt.Errorf("failed to check conversation existence: %w", err)
	}
	if exists {
		m.logger.Warn("create conversation aborted; already exists", "id", id)
		return nil, fmt.Errorf("conversation %s already exists", id)
	}

	conv := newConversation(id, m.streamer, m.cfg)
	if err := m.cfg.store.Save(ctx, conv.Snapshot()); err != nil {
		m.logger.Error("create conversation persist failed", "id", id, "error", err)
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}
	m.attachLocked(conv)
	return conv, nil
}

// Get returns a conversation, loading it from the store when it is not
// cached.
func (m *Manager) Get(ctx context.Context, id string) (*Conversation, error) {
	if conv, ok := m.getCached(id); ok {
		m.logger.Debug("conversation hit cache", "id", id)
		return conv, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if conv, ok := m.conversations[id]; ok {
		return conv, nil
	}
	if err := m.ensureStore(); err != nil {
		return nil, err
	}
	record, err := m.cfg.store.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, errorskg.ErrNotFound) {
			m.logger.Error("load conversation failed", "id", id, "error", err)
		}
		return nil, err
	}

	conv := newConversationFromRecord(record, m.streamer, m.cfg)
	m.attachLocked(conv)
	m.logger.Info("conversation loaded", "id", id, "messages", len(record.Messages))
	return conv, nil
}

// GetOrCreate returns the stored conversation or starts a new one.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Conversation, error) {
	if id == "" {
		return m.Create(ctx, "")
	}
	conv, err := m.Get(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, errorskg.ErrNotFound) {
		return nil, err
	}
	return m.Create(ctx, id)
}

// Delete closes and removes a conversation.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.logger.Warn("deleting conversation", "id", id)
	m.mu.Lock()
	defer m.mu.Unlock()

	if conv, ok := m.conversations[id]; ok {
		_ = conv.Close()
	}
	delete(m.conversations, id)

	if err := m.ensureStore(); err != nil {
		return err
	}
	if err := m.cfg.store.Delete(ctx, id); err != nil {
		m.logger.Error("delete conversation failed", "id", id, "error", err)
		return err
	}
	return nil
}

// List returns all stored conversation IDs.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	if err := m.ensureStore(); err != nil {
		return nil, err
	}
	return m.cfg.store.List(ctx)
}

// Count returns the number of stored conversations.
func (m *Manager) Count(ctx context.Context) (int, error) {
	if err := m.ensureStore(); err != nil {
		return 0, err
	}
	return m.cfg.store.Count(ctx)
}

// Save persists the current state of a conversation.
func (m *Manager) Save(ctx context.Context, conv *Conversation) error {
	if err := m.ensureStore(); err != nil {
		return err
	}
	if err := m.cfg.store.Save(ctx, conv.Snapshot()); err != nil {
		m.logger.Error("save conversation failed", "id", conv.ID(), "error", err)
		return err
	}
	return nil
}

func (m *Manager) ensureStore() error {
	if m.cfg.store == nil {
		return fmt.Errorf("session manager store is not configured")
	}
	return nil
}

func (m *Manager) getCached(id string) (*Conversation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversations[id]
	return conv, ok
}

func (m *Manager) attachLocked(conv *Conversation) {
	conv.persist = m.cfg.store.Save
	m.conversations[conv.ID()] = conv
}
