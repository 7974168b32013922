package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/sweetpotato0/ragdeck/api"
)

// AuthAPI handles login and auth discovery.
type AuthAPI struct {
	c *Client
}

// Status reports whether the backend requires login. When it does not, the
// reply carries a guest token.
func (a *AuthAPI) Status(ctx context.Context) (api.AuthStatus, error) {
	var out api.AuthStatus
	err := a.c.doJSON(ctx, http.MethodGet, "/auth-status", nil, nil, &out, a.c.timeout)
	return out, err
}

// Login exchanges credentials for an access token.
func (a *AuthAPI) Login(ctx context.Context, username, password string) (api.LoginResponse, error) {
	var out api.LoginResponse

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("username", username); err != nil {
		return out, fmt.Errorf("client: encode login: %w", err)
	}
	if err := mw.WriteField("password", password); err != nil {
		return out, fmt.Errorf("client: encode login: %w", err)
	}
	if err := mw.Close(); err != nil {
		return out, fmt.Errorf("client: encode login: %w", err)
	}

	if a.c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.c.timeout)
		defer cancel()
	}
	req, err := a.c.newRequest(ctx, http.MethodPost, "/login", nil, &buf)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := a.c.send(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	err = decodeBody(resp, http.MethodPost, "/login", &out)
	return out, err
}
