// Package sessions declares the session store contract and its PostgreSQL
// implementation. A session row binds a bearer token to a user.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/devicegate/internal/server/models"
)

// Repository defines operations for issuing, resolving and revoking sessions.
type Repository interface {
	// Create stores a new session. Sessions are never updated afterwards.
	Create(ctx context.Context, s *models.Session) error

	// Find looks a session up by token. Implementations return
	// common.ErrorNotFound when the token is unknown.
	Find(ctx context.Context, token string) (*models.Session, error)

	// Delete removes a session; deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes sessions that expired at or before now and
	// returns how many rows went away.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
