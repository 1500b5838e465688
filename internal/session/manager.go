// Package session turns a verified login into a bearer token and tracks
// which tokens are still live. A session only gates the admin surface;
// it does not protect the stored data itself.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/event-showcase/internal/apperr"
	"github.com/iliyamo/event-showcase/internal/model"
	"github.com/iliyamo/event-showcase/internal/utils"
)

const DefaultTTL = 12 * time.Hour

// Verifier checks a username and password.
type Verifier interface {
	Verify(ctx context.Context, username, password string) (bool, error)
}

// Options configures a Manager. An empty Secret makes the manager sign
// with a random per-process key, so tokens die with the process.
type Options struct {
	Secret []byte
	TTL    time.Duration
	Logger *slog.Logger
}

// Manager issues, validates and revokes session tokens.
type Manager struct {
	verifier Verifier
	store    Store
	secret   []byte
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewManager(v Verifier, st Store, opts Options) (*Manager, error) {
	secret := opts.Secret
	if len(secret) == 0 {
		s, err := utils.NewToken(32)
		if err != nil {
			return nil, fmt.Errorf("session: generating secret: %w", err)
		}
		secret = []byte(s)
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		verifier: v,
		store:    st,
		secret:   secret,
		ttl:      ttl,
		logger:   logger.With("component", "session"),
		now:      time.Now,
	}, nil
}

// Login verifies the credentials and starts a session. Wrong credentials
// fail with apperr.ErrInvalidCredentials.
func (m *Manager) Login(ctx context.Context, username, password string) (model.Session, error) {
	username = strings.TrimSpace(username)
	ok, err := m.verifier.Verify(ctx, username, password)
	if err != nil {
		return model.Session{}, err
	}
	if !ok {
		m.logger.Info("login rejected", "username", username)
		return model.Session{}, apperr.InvalidCredentials()
	}

	tok, err := utils.NewSessionToken(m.secret, username, m.now(), m.ttl)
	if err != nil {
		return model.Session{}, fmt.Errorf("session: signing token: %w", err)
	}
	if err := m.store.Save(ctx, utils.HashToken(tok.Token), username, m.ttl); err != nil {
		return model.Session{}, apperr.StorageUnavailable("session: save", err)
	}
	m.logger.Info("login", "username", username, "expires_at", tok.Exp)
	return model.Session{User: username, Token: tok.Token, IssuedAt: tok.IssuedAt, ExpiresAt: tok.Exp}, nil
}

// Validate returns the session behind token. Bad signatures, expired
// tokens and tokens that were logged out fail with
// apperr.ErrUnauthorized.
func (m *Manager) Validate(ctx context.Context, token string) (model.Session, error) {
	if token == "" {
		return model.Session{}, apperr.Unauthorized("missing session token")
	}
	tok, err := utils.ParseSessionToken(m.secret, token, m.now())
	if err != nil {
		return model.Session{}, apperr.Unauthorized("invalid or expired session")
	}
	user, ok, err := m.store.Lookup(ctx, utils.HashToken(token))
	if err != nil {
		return model.Session{}, apperr.StorageUnavailable("session: lookup", err)
	}
	if !ok || user != tok.Subject {
		return model.Session{}, apperr.Unauthorized("session ended")
	}
	return model.Session{User: tok.Subject, Token: token, IssuedAt: tok.IssuedAt, ExpiresAt: tok.Exp}, nil
}

// Logout ends the session behind token. Unknown tokens are ignored.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, utils.HashToken(token)); err != nil {
		return apperr.StorageUnavailable("session: delete", err)
	}
	return nil
}

// NewTab returns a logged out browsing context.
func (m *Manager) NewTab() *Tab { return &Tab{m: m} }

// Resume returns a tab that carries token. The tab reports
// authenticated only while the token validates.
func (m *Manager) Resume(token string) *Tab {
	t := &Tab{m: m}
	if token != "" {
		t.session = &model.Session{Token: token}
	}
	return t
}
