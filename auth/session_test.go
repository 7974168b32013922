package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	errorskg "github.com/sweetpotato0/ragdeck/errors"
	"github.com/sweetpotato0/ragdeck/pkg/logging"
)

// mapStore is a minimal Store for tests.
type mapStore struct {
	mu      sync.Mutex
	p       *Persisted
	saves   int
	clears  int
	saveErr error
}

func (m *mapStore) Load(ctx context.Context) (Persisted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.p == nil {
		return Persisted{}, errorskg.ErrNotFound
	}
	return *m.p, nil
}

func (m *mapStore) Save(ctx context.Context, p Persisted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.p = &p
	return nil
}

func (m *mapStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.p = nil
	return nil
}

func newSession(store Store) *Session {
	return NewSession(WithStore(store), WithLogger(logging.Discard()))
}

func TestSessionLoginLogout(t *testing.T) {
	ctx := context.Background()
	store := &mapStore{}
	s := newSession(store)

	if s.Snapshot().Authenticated || s.Token() != "" {
		t.Fatal("new session should be signed out")
	}

	err := s.Login(ctx, "tok", Identity{Username: "alice", CoreVersion: "1.4", APIVersion: "0231"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	st := s.Snapshot()
	if !st.Authenticated || st.Token != "tok" || st.Username != "alice" || st.Guest {
		t.Errorf("state after login = %+v", st)
	}
	if store.p == nil || store.p.Token != "tok" || store.p.APIVersion != "0231" {
		t.Errorf("persisted = %+v", store.p)
	}

	s.SetCustomTitle("Deck", "desc")
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	st = s.Snapshot()
	if st.Authenticated || st.Token != "" || st.Username != "" {
		t.Errorf("state after logout = %+v", st)
	}
	if st.CoreVersion != "1.4" || st.WebUITitle != "Deck" {
		t.Errorf("versions and title should survive logout: %+v", st)
	}
	if store.p == nil || store.p.Token != "" || store.p.CoreVersion != "1.4" {
		t.Errorf("persisted after logout = %+v", store.p)
	}
}

func TestSessionLogoutWithoutVersionsClearsStore(t *testing.T) {
	ctx := context.Background()
	store := &mapStore{}
	s := newSession(store)
	s.Login(ctx, "tok", Identity{})
	s.Logout(ctx)
	if store.clears != 1 || store.p != nil {
		t.Errorf("expected store cleared, clears=%d p=%+v", store.clears, store.p)
	}
}

func TestSessionLoginRejectsEmptyToken(t *testing.T) {
	s := newSession(nil)
	if err := s.Login(context.Background(), "", Identity{}); !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSessionRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing record", func(t *testing.T) {
		s := newSession(&mapStore{})
		if err := s.Restore(ctx); err != nil {
			t.Fatalf("Restore: %v", err)
		}
		if s.Snapshot().Authenticated {
			t.Error("expected signed out")
		}
	})

	t.Run("saved token", func(t *testing.T) {
		s := newSession(&mapStore{p: &Persisted{Token: "t", Guest: true}})
		if err := s.Restore(ctx); err != nil {
			t.Fatalf("Restore: %v", err)
		}
		st := s.Snapshot()
		if !st.Authenticated || !st.Guest || st.Token != "t" {
			t.Errorf("state = %+v", st)
		}
	})

	t.Run("no store", func(t *testing.T) {
		if err := newSession(nil).Restore(ctx); err != nil {
			t.Errorf("Restore: %v", err)
		}
	})
}

func TestSessionRefreshToken(t *testing.T) {
	ctx := context.Background()
	store := &mapStore{}
	s := newSession(store)

	s.RefreshToken("ignored")
	if s.Token() != "" {
		t.Fatal("refresh must not sign in")
	}

	s.Login(ctx, "old", Identity{Username: "bob", Guest: true})
	s.RefreshToken("new")
	st := s.Snapshot()
	if st.Token != "new" || st.Username != "bob" || !st.Guest {
		t.Errorf("state = %+v", st)
	}
	if store.p.Token != "new" {
		t.Errorf("refreshed token not persisted: %+v", store.p)
	}

	saves := store.saves
	s.RefreshToken("new")
	if store.saves != saves {
		t.Error("unchanged token should not be saved again")
	}
}

func TestSessionSaveError(t *testing.T) {
	store := &mapStore{saveErr: errors.New("disk full")}
	s := newSession(store)
	if err := s.SetVersion(context.Background(), "1", "2"); err == nil {
		t.Error("expected save error")
	}
	if s.Snapshot().CoreVersion != "1" {
		t.Error("in-memory state should still change")
	}
}

func TestSessionWatchWithoutWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newSession(&mapStore{}).Watch(ctx); err != nil {
		t.Errorf("Watch: %v", err)
	}
}

func TestSessionConcurrentAccess(t *testing.T) {
	s := newSession(&mapStore{})
	s.Login(context.Background(), "t0", Identity{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RefreshToken("t")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Token()
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()
}
