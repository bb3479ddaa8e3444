package port

import (
	"context"
	"time"

	"github.com/mdurant/safelease-ai/internal/core/domain"
)

// SessionRepository deals with session bookkeeping rows.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	// ListByUser returns sessions ordered by most recent activity first.
	ListByUser(ctx context.Context, userID string) ([]domain.Session, error)
	GetByRefreshTokenID(ctx context.Context, refreshTokenID string) (*domain.Session, error)
	// RotateRefreshToken re-keys the session to a newly issued refresh token
	// and bumps last activity, invalidating the old jti for future refreshes.
	RotateRefreshToken(ctx context.Context, sessionID, refreshTokenID string, at time.Time) error
	// Delete removes a session owned by the user; repository.ErrNotFound when
	// the row does not exist or belongs to someone else.
	Delete(ctx context.Context, userID, sessionID string) error
	// DeleteAllExcept removes every session of the user except keepSessionID
	// (all of them when keepSessionID is ""), returning the count removed.
	DeleteAllExcept(ctx context.Context, userID, keepSessionID string) (int, error)
}
