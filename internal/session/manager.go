package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lkpmandiri/backoffice/model"
)

// Manager mints and verifies the session tokens handed to the admin SPA.
// The token is an HS256 JWT whose sid claim keys the store; the backend
// bearer token never leaves the server.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
}

// NewManager creates a session Manager over the given store.
func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{store: store, secret: []byte(secret), ttl: ttl}
}

// Issue creates a session for a successful login and returns the signed
// token the SPA stores under admin_token.
func (m *Manager) Issue(ctx context.Context, login model.LoginResult) (string, *model.Session, error) {
	sess := &model.Session{
		ID:        uuid.NewString(),
		Token:     login.Token,
		User:      login.User,
		CreatedAt: time.Now().Unix(),
	}
	if err := m.store.Put(ctx, sess, m.ttl); err != nil {
		return "", nil, err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sid":  sess.ID,
		"sub":  login.User.Email,
		"name": login.User.Name,
		"iat":  now.Unix(),
		"exp":  now.Add(m.ttl).Unix(),
		"iss":  "backoffice",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("session: sign token: %w", err)
	}
	return signed, sess, nil
}

// Verify parses a session token and loads the session it names. Any failure
// collapses to UNAUTHORIZED; the caller redirects to login.
func (m *Manager) Verify(ctx context.Context, tokenStr string) (*model.Session, error) {
	token, err := jwt.Parse(tokenStr,
		func(token *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("backoffice"),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, model.NewUnauthorizedError("Invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, model.NewUnauthorizedError("Invalid session token")
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return nil, model.NewUnauthorizedError("Invalid session token")
	}

	sess, err := m.store.Get(ctx, sid)
	if err == ErrNotFound {
		return nil, model.NewUnauthorizedError("Session expired, please sign in again")
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Clear removes the session with the given ID. It is called by logout and by
// the api client's 401 hook, so a rejected backend token invalidates the
// whole session regardless of which screen triggered the call.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return m.store.Delete(ctx, sessionID)
}

// UnauthorizedHook returns the hook wired into the api client: it clears the
// session named by the request context. The side effect is unconditional.
func (m *Manager) UnauthorizedHook() func(ctx context.Context, rctx *model.RequestContext) {
	return func(ctx context.Context, rctx *model.RequestContext) {
		if rctx == nil {
			return
		}
		// Best effort: the caller already gets ErrUnauthorized either way.
		_ = m.Clear(context.WithoutCancel(ctx), rctx.SessionID)
	}
}
