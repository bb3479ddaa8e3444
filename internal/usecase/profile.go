package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/core/port"
	"github.com/mdurant/safelease-ai/internal/repository"
)

// ProfileService reads and updates the account and its 1:1 profile row.
type ProfileService struct {
	users    port.UserRepository
	profiles port.ProfileRepository
	log      *zap.Logger

	now func() time.Time
}

// NewProfileService constructs a profile service.
func NewProfileService(users port.UserRepository, profiles port.ProfileRepository, log *zap.Logger) *ProfileService {
	return &ProfileService{
		users:    users,
		profiles: profiles,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *ProfileService) WithClock(now func() time.Time) *ProfileService {
	s.now = now
	return s
}

// Account bundles the user record with its profile.
type Account struct {
	User    domain.User
	Profile domain.Profile
}

// Get returns the account and profile for the given user.
func (s *ProfileService) Get(ctx context.Context, userID string) (Account, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Account{}, ErrUserNotFound
		}
		return Account{}, fmt.Errorf("lookup user: %w", err)
	}

	profile, err := s.profiles.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Account{}, ErrUserNotFound
		}
		return Account{}, fmt.Errorf("lookup profile: %w", err)
	}

	return Account{User: *user, Profile: *profile}, nil
}

// UpdateProfile applies a partial update to the profile and returns the
// result. Nil patch fields are left untouched.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (domain.Profile, error) {
	profile, err := s.profiles.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Profile{}, ErrUserNotFound
		}
		return domain.Profile{}, fmt.Errorf("lookup profile: %w", err)
	}

	profile.Apply(patch, s.now().UTC())

	if err := s.profiles.Update(ctx, *profile); err != nil {
		return domain.Profile{}, fmt.Errorf("update profile: %w", err)
	}

	return *profile, nil
}

// SetAvatar records a new avatar reference, an opaque pointer into whatever
// object store the caller uses.
func (s *ProfileService) SetAvatar(ctx context.Context, userID, avatarRef string) error {
	if err := s.profiles.SetAvatar(ctx, userID, avatarRef, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set avatar: %w", err)
	}
	return nil
}

// Deactivate soft-deletes the account. Existing sessions are left to the
// session service; login refuses deactivated accounts.
func (s *ProfileService) Deactivate(ctx context.Context, userID string) error {
	if err := s.users.Deactivate(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("deactivate user: %w", err)
	}

	s.log.Info("account deactivated", zap.String("user_id", userID))

	return nil
}
