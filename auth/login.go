package auth

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/ragdeck/api"
	errorskg "github.com/sweetpotato0/ragdeck/errors"
)

// Authenticator is the backend side of the login flow.
type Authenticator interface {
	Status(ctx context.Context) (api.AuthStatus, error)
	Login(ctx context.Context, username, password string) (api.LoginResponse, error)
}

// Login signs in with credentials. The session enters guest mode when the
// backend reports auth_mode "disabled".
func Login(ctx context.Context, a Authenticator, s *Session, username, password string) (api.LoginResponse, error) {
	if username == "" || password == "" {
		return api.LoginResponse{}, fmt.Errorf("%w: username and password are required", errorskg.ErrInvalidInput)
	}
	resp, err := a.Login(ctx, username, password)
	if err != nil {
		return resp, fmt.Errorf("login: %w", err)
	}
	err = s.Login(ctx, resp.AccessToken, Identity{
		Guest:       resp.AuthMode == api.AuthModeDisabled,
		Username:    username,
		CoreVersion: resp.CoreVersion,
		APIVersion:  resp.APIVersion,
	})
	return resp, err
}

// Discover asks the backend whether login is required. When it is not, the
// session is signed in as a guest with the token the backend hands out and
// Discover returns false.
func Discover(ctx context.Context, a Authenticator, s *Session) (bool, error) {
	st, err := a.Status(ctx)
	if err != nil {
		return false, fmt.Errorf("auth status: %w", err)
	}
	s.SetCustomTitle(st.WebUITitle, st.WebUIDescription)
	if st.AuthConfigured || st.AccessToken == "" {
		if err := s.SetVersion(ctx, st.CoreVersion, st.APIVersion); err != nil {
			return true, err
		}
		return true, nil
	}
	err = s.Login(ctx, st.AccessToken, Identity{
		Guest:       true,
		CoreVersion: st.CoreVersion,
		APIVersion:  st.APIVersion,
	})
	return false, err
}
