package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-showcase/internal/apperr"
	"github.com/iliyamo/event-showcase/internal/credential"
	"github.com/iliyamo/event-showcase/internal/guard"
	"github.com/iliyamo/event-showcase/internal/repository"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	creds := credential.New(repository.NewMemory(), credential.Options{
		BootstrapUser:     "admin",
		BootstrapPassword: "rightpass",
	})
	_, err := creds.Bootstrap(context.Background())
	require.NoError(t, err)

	m, err := NewManager(creds, NewMemoryStore(), Options{Secret: []byte("test-secret"), TTL: time.Hour})
	require.NoError(t, err)
	return m
}

func TestTab_LoginLogout(t *testing.T) {
	ctx := context.Background()
	tab := newManager(t).NewTab()
	assert.False(t, tab.IsAuthenticated(ctx))

	err := tab.Login(ctx, "admin", "wrongpass")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.False(t, tab.IsAuthenticated(ctx))

	require.NoError(t, tab.Login(ctx, "admin", "rightpass"))
	assert.True(t, tab.IsAuthenticated(ctx))
	s, ok := tab.Session(ctx)
	require.True(t, ok)
	assert.Equal(t, "admin", s.User)

	require.NoError(t, tab.Logout(ctx))
	assert.False(t, tab.IsAuthenticated(ctx))
}

func TestTab_FailedLoginClearsSession(t *testing.T) {
	ctx := context.Background()
	tab := newManager(t).NewTab()
	require.NoError(t, tab.Login(ctx, "admin", "rightpass"))
	require.Error(t, tab.Login(ctx, "admin", "wrongpass"))
	assert.False(t, tab.IsAuthenticated(ctx))
}

func TestTabs_AreIndependent(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	a, b := m.NewTab(), m.NewTab()
	require.NoError(t, a.Login(ctx, "admin", "rightpass"))
	assert.True(t, a.IsAuthenticated(ctx))
	assert.False(t, b.IsAuthenticated(ctx))
}

func TestManager_LogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	s, err := m.Login(ctx, "admin", "rightpass")
	require.NoError(t, err)

	_, err = m.Validate(ctx, s.Token)
	require.NoError(t, err)
	assert.True(t, m.Resume(s.Token).IsAuthenticated(ctx))

	require.NoError(t, m.Logout(ctx, s.Token))
	_, err = m.Validate(ctx, s.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.False(t, m.Resume(s.Token).IsAuthenticated(ctx))
}

func TestManager_RejectsForeignAndExpiredTokens(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	s, err := m.Login(ctx, "admin", "rightpass")
	require.NoError(t, err)

	other := newManager(t)
	_, err = other.Validate(ctx, s.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized, "signed with a different secret")

	_, err = m.Validate(ctx, s.Token+"x")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = m.Validate(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Validate(ctx, s.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	require.NoError(t, st.Save(ctx, "h", "admin", time.Minute))
	user, ok, err := st.Lookup(ctx, "h")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "admin", user)

	now = now.Add(time.Minute)
	_, ok, err = st.Lookup(ctx, "h")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGuard(t *testing.T) {
	ctx := context.Background()
	tab := newManager(t).NewTab()
	assert.ErrorIs(t, guard.RequireSession(ctx, tab), apperr.ErrUnauthorized)

	require.NoError(t, tab.Login(ctx, "admin", "rightpass"))
	assert.NoError(t, guard.RequireSession(ctx, tab))

	require.NoError(t, tab.Logout(ctx))
	assert.ErrorIs(t, guard.RequireSession(ctx, tab), apperr.ErrUnauthorized)
}
