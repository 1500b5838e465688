// Package guard decides whether the admin surface may be entered.
package guard

import (
	"context"

	"github.com/iliyamo/event-showcase/internal/apperr"
)

// Authenticator is anything that knows whether its holder is logged in,
// typically a *session.Tab.
type Authenticator interface {
	IsAuthenticated(ctx context.Context) bool
}

// RequireSession fails with apperr.ErrUnauthorized unless a is logged
// in. It has no side effects; redirecting is the caller's job.
func RequireSession(ctx context.Context, a Authenticator) error {
	if a == nil || !a.IsAuthenticated(ctx) {
		return apperr.Unauthorized("login required")
	}
	return nil
}
