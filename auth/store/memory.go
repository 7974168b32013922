// Package store holds auth.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/sweetpotato0/ragdeck/auth"
	errorskg "github.com/sweetpotato0/ragdeck/errors"
)

// Memory keeps the session in process memory.
type Memory struct {
	mu  sync.RWMutex
	p   auth.Persisted
	set bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Load returns the saved session.
func (m *Memory) Load(ctx context.Context) (auth.Persisted, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return auth.Persisted{}, errorskg.ErrNotFound
	}
	return m.p, nil
}

// Save replaces the saved session.
func (m *Memory) Save(ctx context.Context, p auth.Persisted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p, m.set = p, true
	return nil
}

// Clear forgets the saved session.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p, m.set = auth.Persisted{}, false
	return nil
}
