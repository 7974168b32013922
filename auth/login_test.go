package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/sweetpotato0/ragdeck/api"
	errorskg "github.com/sweetpotato0/ragdeck/errors"
)

type fakeAuthenticator struct {
	status   api.AuthStatus
	login    api.LoginResponse
	err      error
	gotUser  string
	gotPass  string
	loggedIn bool
}

func (f *fakeAuthenticator) Status(ctx context.Context) (api.AuthStatus, error) {
	return f.status, f.err
}

func (f *fakeAuthenticator) Login(ctx context.Context, username, password string) (api.LoginResponse, error) {
	f.loggedIn = true
	f.gotUser, f.gotPass = username, password
	return f.login, f.err
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		user      string
		pass      string
		resp      api.LoginResponse
		err       error
		wantErr   error
		wantGuest bool
	}{
		{
			name: "credentials",
			user: "admin", pass: "pw",
			resp: api.LoginResponse{AccessToken: "tok", AuthMode: api.AuthModeEnabled, CoreVersion: "1.4"},
		},
		{
			name: "auth disabled means guest",
			user: "admin", pass: "pw",
			resp:      api.LoginResponse{AccessToken: "guest-tok", AuthMode: api.AuthModeDisabled},
			wantGuest: true,
		},
		{name: "missing password", user: "admin", wantErr: errorskg.ErrInvalidInput},
		{name: "backend rejects", user: "admin", pass: "bad", err: errorskg.ErrUnauthorized, wantErr: errorskg.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAuthenticator{login: tt.resp, err: tt.err}
			s := newSession(&mapStore{})

			_, err := Login(ctx, a, s, tt.user, tt.pass)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if s.Snapshot().Authenticated {
					t.Error("session should stay signed out")
				}
				return
			}
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			st := s.Snapshot()
			if st.Token != tt.resp.AccessToken || st.Guest != tt.wantGuest || st.Username != tt.user {
				t.Errorf("state = %+v", st)
			}
			if st.CoreVersion != tt.resp.CoreVersion {
				t.Errorf("core version = %q", st.CoreVersion)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	ctx := context.Background()

	t.Run("auth disabled signs in as guest", func(t *testing.T) {
		a := &fakeAuthenticator{status: api.AuthStatus{
			AuthConfigured: false, AccessToken: "guest", AuthMode: api.AuthModeDisabled,
			CoreVersion: "1.4", WebUITitle: "Deck",
		}}
		s := newSession(nil)
		required, err := Discover(ctx, a, s)
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		if required {
			t.Error("login should not be required")
		}
		st := s.Snapshot()
		if !st.Guest || st.Token != "guest" || st.WebUITitle != "Deck" || st.CoreVersion != "1.4" {
			t.Errorf("state = %+v", st)
		}
	})

	t.Run("auth configured requires login", func(t *testing.T) {
		a := &fakeAuthenticator{status: api.AuthStatus{AuthConfigured: true, APIVersion: "0231"}}
		s := newSession(nil)
		required, err := Discover(ctx, a, s)
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		if !required || s.Snapshot().Authenticated {
			t.Error("expected login to be required")
		}
		if s.Snapshot().APIVersion != "0231" {
			t.Error("versions should be recorded")
		}
	})

	t.Run("status failure", func(t *testing.T) {
		a := &fakeAuthenticator{err: errors.New("down")}
		if _, err := Discover(ctx, a, newSession(nil)); err == nil {
			t.Error("expected error")
		}
	})
}
