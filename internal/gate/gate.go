// Package gate re-validates identity before a protected operation runs. A
// valid cookie alone is never trusted: the gate re-fetches the user on every
// protected request, so a deleted account is locked out even while its token
// still verifies cryptographically.
package gate

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/roostd-dev/roostd/internal/auth"
	"github.com/roostd-dev/roostd/internal/models"
	"github.com/roostd-dev/roostd/internal/store"
)

// Outcome tags a gate resolution.
type Outcome int

const (
	// Allowed means the claimed user exists and the token is current.
	Allowed Outcome = iota

	// Denied means the request is definitely not authenticated: no valid
	// context, no such user, or a revoked token.
	Denied

	// Indeterminate means the store could not answer. The caller decides
	// the availability/security tradeoff; the HTTP layer treats it as
	// logged out but logs the cause.
	Indeterminate
)

// Resolution is the result of gating one request. User is set only when the
// outcome is Allowed; Cause only when it is Indeterminate.
type Resolution struct {
	Outcome Outcome
	User    *models.User
	Cause   error
}

// Gate checks that the cookie-claimed identity still maps to a real,
// unrevoked user. It sits behind the UserStore interface, so a caching
// policy can be layered in without the gate changing.
type Gate struct {
	users  store.UserStore
	logger zerolog.Logger
}

// New creates an access gate backed by the given store.
func New(users store.UserStore, log zerolog.Logger) *Gate {
	return &Gate{users: users, logger: log}
}

// Resolve performs the existence and revocation check for one request.
func (g *Gate) Resolve(ctx context.Context, authCtx auth.AuthContext) Resolution {
	if !authCtx.Authenticated {
		return Resolution{Outcome: Denied}
	}

	user, err := g.users.ByID(ctx, authCtx.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Account deleted after the cookie was issued.
			g.logger.Warn().Str("user_id", authCtx.UserID).Msg("Gated request for nonexistent user")
			return Resolution{Outcome: Denied}
		}
		return Resolution{Outcome: Indeterminate, Cause: err}
	}

	if user.TokenVersion != authCtx.TokenVersion {
		g.logger.Info().Str("user_id", user.ID).Msg("Rejected revoked session token")
		return Resolution{Outcome: Denied}
	}

	return Resolution{Outcome: Allowed, User: user}
}
