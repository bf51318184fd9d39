package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lkpmandiri/backoffice/model"
)

// Login exchanges credentials for a bearer token and the user document.
func (c *Client) Login(ctx context.Context, email, password string) (model.LoginResult, error) {
	body := map[string]string{"email": email, "password": password}

	raw, err := c.Do(ctx, http.MethodPost, "/auth/login", nil, body)
	if err != nil {
		return model.LoginResult{}, err
	}

	var result model.LoginResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return model.LoginResult{}, fmt.Errorf("api: decode login response: %w", err)
	}
	if result.Token == "" {
		return model.LoginResult{}, model.NewUnauthorizedError("Login response carried no token")
	}
	return result, nil
}

// Logout revokes the bearer token on the backend. A failure here is logged by
// the caller but never blocks clearing the local session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	return err
}

// Me verifies the current token by fetching the authenticated user. This is
// the "whoami" call the session guard makes once per protected-page mount.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	raw, err := c.Do(ctx, http.MethodGet, "/auth/me", nil, nil)
	if err != nil {
		return model.User{}, err
	}

	// The endpoint returns either the user directly or {"user": {...}}.
	var wrapped struct {
		User *model.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return *wrapped.User, nil
	}

	var user model.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return model.User{}, fmt.Errorf("api: decode me response: %w", err)
	}
	return user, nil
}
