package port

import (
	"context"
	"time"

	"github.com/mdurant/safelease-ai/internal/core/domain"
)

// UserRepository exposes persistence behavior for users. Email uniqueness is
// enforced by the storage layer (case-insensitive unique index), not by a
// read-before-write check; Create returns repository.ErrDuplicate on a clash.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error
	SetEmailVerified(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
}

// ProfileRepository persists the 1:1 profile rows owned by users.
type ProfileRepository interface {
	Create(ctx context.Context, profile domain.Profile) error
	GetByUser(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, profile domain.Profile) error
	SetAvatar(ctx context.Context, userID, avatarRef string, at time.Time) error
}

// RoleRepository reads the static role reference data.
type RoleRepository interface {
	List(ctx context.Context) ([]domain.Role, error)
}
