// Package auth keeps the signed-in state of one backend user. A Session is
// created by the caller and passed to whatever needs a token; there is no
// package-level session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	errorskg "github.com/sweetpotato0/ragdeck/errors"
	"github.com/sweetpotato0/ragdeck/pkg/logging"
)

// Persisted is the part of a session that survives restarts.
type Persisted struct {
	Token       string `json:"token,omitempty" yaml:"token,omitempty"`
	Guest       bool   `json:"guest,omitempty" yaml:"guest,omitempty"`
	Username    string `json:"username,omitempty" yaml:"username,omitempty"`
	CoreVersion string `json:"core_version,omitempty" yaml:"core_version,omitempty"`
	APIVersion  string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
}

// Store persists sessions. Load returns errors.ErrNotFound when nothing
// has been saved yet.
type Store interface {
	Load(ctx context.Context) (Persisted, error)
	Save(ctx context.Context, p Persisted) error
	Clear(ctx context.Context) error
}

// Watcher is implemented by stores that can report changes made by other
// processes. fn runs for every change until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, fn func(Persisted)) error
}

// Identity describes who logged in.
type Identity struct {
	Guest       bool
	Username    string
	CoreVersion string
	APIVersion  string
}

// State is a point-in-time copy of a session.
type State struct {
	Authenticated    bool
	Guest            bool
	Token            string
	Username         string
	CoreVersion      string
	APIVersion       string
	WebUITitle       string
	WebUIDescription string
}

// Session holds authentication state. It is safe for concurrent use.
type Session struct {
	mu     sync.RWMutex
	state  State
	store  Store
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithStore persists the session through s.
func WithStore(s Store) Option {
	return func(sess *Session) {
		sess.store = s
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(sess *Session) {
		if l != nil {
			sess.logger = l
		}
	}
}

// NewSession creates a signed-out session.
func NewSession(opts ...Option) *Session {
	s := &Session{logger: logging.WithComponent("auth")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the persisted state. A missing record leaves the session
// signed out.
func (s *Session) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	p, err := s.store.Load(ctx)
	if errors.Is(err, errorskg.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	s.mu.Lock()
	s.applyLocked(p)
	s.mu.Unlock()
	return nil
}

// Watch follows external changes to the store, when it supports that.
// It blocks until ctx is done.
func (s *Session) Watch(ctx context.Context) error {
	w, ok := s.store.(Watcher)
	if !ok {
		<-ctx.Done()
		return nil
	}
	return w.Watch(ctx, func(p Persisted) {
		s.mu.Lock()
		s.applyLocked(p)
		s.mu.Unlock()
		s.logger.Debug("session reloaded", "authenticated", p.Token != "")
	})
}

func (s *Session) applyLocked(p Persisted) {
	s.state.Token = p.Token
	s.state.Guest = p.Guest
	s.state.Username = p.Username
	s.state.CoreVersion = p.CoreVersion
	s.state.APIVersion = p.APIVersion
	s.state.Authenticated = p.Token != ""
}

func (s *Session) persistedLocked() Persisted {
	return Persisted{
		Token:       s.state.Token,
		Guest:       s.state.Guest,
		Username:    s.state.Username,
		CoreVersion: s.state.CoreVersion,
		APIVersion:  s.state.APIVersion,
	}
}

func (s *Session) save(ctx context.Context, p Persisted) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, p); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Login marks the session authenticated with token.
func (s *Session) Login(ctx context.Context, token string, id Identity) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", errorskg.ErrInvalidInput)
	}
	s.mu.Lock()
	s.state.Authenticated = true
	s.state.Guest = id.Guest
	s.state.Token = token
	s.state.Username = id.Username
	s.state.CoreVersion = id.CoreVersion
	s.state.APIVersion = id.APIVersion
	p := s.persistedLocked()
	s.mu.Unlock()

	s.logger.Info("logged in", "username", id.Username, "guest", id.Guest)
	return s.save(ctx, p)
}

// Logout drops the token and identity. Versions and title are kept.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.state.Authenticated = false
	s.state.Guest = false
	s.state.Token = ""
	s.state.Username = ""
	p := s.persistedLocked()
	s.mu.Unlock()

	s.logger.Info("logged out")
	if s.store == nil {
		return nil
	}
	if p.CoreVersion == "" && p.APIVersion == "" {
		if err := s.store.Clear(ctx); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		return nil
	}
	return s.save(ctx, p)
}

// SetVersion records the backend versions.
func (s *Session) SetVersion(ctx context.Context, coreVersion, apiVersion string) error {
	s.mu.Lock()
	s.state.CoreVersion = coreVersion
	s.state.APIVersion = apiVersion
	p := s.persistedLocked()
	s.mu.Unlock()
	return s.save(ctx, p)
}

// SetCustomTitle records the backend's web UI title and description.
// They are not persisted.
func (s *Session) SetCustomTitle(title, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.WebUITitle = title
	s.state.WebUIDescription = description
}

// Token returns the current access token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// RefreshToken replaces the token handed out by the backend, keeping the
// rest of the identity. It is ignored while signed out.
func (s *Session) RefreshToken(token string) {
	s.mu.Lock()
	if !s.state.Authenticated || token == "" || token == s.state.Token {
		s.mu.Unlock()
		return
	}
	s.state.Token = token
	p := s.persistedLocked()
	s.mu.Unlock()

	if err := s.save(context.Background(), p); err != nil {
		s.logger.Warn("persist refreshed token failed", "error", err)
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
