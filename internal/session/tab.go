package session

import (
	"context"
	"sync"

	"github.com/iliyamo/event-showcase/internal/model"
)

// Tab is one browsing context: logged out until Login succeeds, logged
// out again after Logout. Its session is never shared with other tabs.
type Tab struct {
	m       *Manager
	mu      sync.Mutex
	session *model.Session
}

// Login replaces any current session on success. On failure the tab is
// left logged out.
func (t *Tab) Login(ctx context.Context, username, password string) error {
	s, err := t.m.Login(ctx, username, password)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.session = nil
		return err
	}
	t.session = &s
	return nil
}

// Logout clears the tab and revokes its token. The tab is logged out
// even when revocation fails.
func (t *Tab) Logout(ctx context.Context) error {
	t.mu.Lock()
	s := t.session
	t.session = nil
	t.mu.Unlock()
	if s == nil {
		return nil
	}
	return t.m.Logout(ctx, s.Token)
}

// IsAuthenticated reports whether the tab holds a live session. It does
// not change the tab.
func (t *Tab) IsAuthenticated(ctx context.Context) bool {
	_, ok := t.Session(ctx)
	return ok
}

// Session returns the validated session, if any.
func (t *Tab) Session(ctx context.Context) (model.Session, bool) {
	t.mu.Lock()
	s := t.session
	t.mu.Unlock()
	if s == nil {
		return model.Session{}, false
	}
	v, err := t.m.Validate(ctx, s.Token)
	if err != nil {
		return model.Session{}, false
	}
	return v, true
}
