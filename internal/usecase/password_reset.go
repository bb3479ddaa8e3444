package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/core/port"
	"github.com/mdurant/safelease-ai/internal/infra/logger"
	"github.com/mdurant/safelease-ai/internal/infra/security"
	"github.com/mdurant/safelease-ai/internal/repository"
)

const defaultResetTokenTTL = time.Hour

// PasswordService covers the forgotten-password reset flow and the
// authenticated password change. Neither path revokes existing sessions;
// revocation stays an explicit user action.
type PasswordService struct {
	users     port.UserRepository
	tokens    port.TokenRepository
	publisher port.EventPublisher
	notifier  *NotificationService
	validator *security.PasswordValidator
	log       *zap.Logger

	resetTokenTTL time.Duration
	now           func() time.Time
}

// NewPasswordService constructs a password service.
func NewPasswordService(
	users port.UserRepository,
	tokens port.TokenRepository,
	publisher port.EventPublisher,
	notifier *NotificationService,
	validator *security.PasswordValidator,
	log *zap.Logger,
) *PasswordService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	return &PasswordService{
		users:         users,
		tokens:        tokens,
		publisher:     publisher,
		notifier:      notifier,
		validator:     validator,
		log:           log,
		resetTokenTTL: defaultResetTokenTTL,
		now:           time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *PasswordService) WithClock(now func() time.Time) *PasswordService {
	s.now = now
	return s
}

// WithResetTokenTTL overrides the reset token lifetime from configuration.
func (s *PasswordService) WithResetTokenTTL(ttl time.Duration) *PasswordService {
	if ttl > 0 {
		s.resetTokenTTL = ttl
	}
	return s
}

// RequestReset starts the forgotten-password flow. The response is identical
// whether or not the email exists, so the endpoint cannot be used to probe
// for accounts. Unknown and inactive addresses are logged and dropped.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Info("password reset requested for unknown email",
				zap.String("email", logger.MaskEmail(email)),
			)
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive {
		s.log.Info("password reset requested for inactive account",
			zap.String("user_id", user.ID),
		)
		return nil
	}

	rawToken, err := security.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now().UTC()
	token := domain.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(rawToken),
		CreatedAt: now,
		ExpiresAt: now.Add(s.resetTokenTTL),
	}
	if err := s.tokens.CreatePasswordReset(ctx, token); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	s.notifier.SendPasswordResetEmail(ctx, user.Email, rawToken)

	s.log.Info("password reset token issued", zap.String("user_id", user.ID))

	return nil
}

// ResetPassword redeems a mailed reset token and installs the new password.
// The token spends exactly once: the conditional consume decides the winner
// among concurrent redemptions before any password write happens.
func (s *PasswordService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return ErrTokenInvalid
	}

	token, err := s.tokens.GetPasswordResetByHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	now := s.now().UTC()
	if token.ConsumedAt != nil {
		return ErrTokenAlreadyUsed
	}
	if token.IsExpired(now) {
		return ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if err := s.validator.Validate(newPassword, user.Email); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	if err := s.tokens.ConsumePasswordReset(ctx, token.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenAlreadyUsed
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.afterPasswordChange(ctx, user, now, "reset")

	return nil
}

// ChangePassword updates the password of an authenticated user after
// re-checking the current one.
func (s *PasswordService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrIncorrectCurrentPassword
	}

	if err := s.validator.Validate(newPassword, user.Email); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.afterPasswordChange(ctx, user, now, "change")

	return nil
}

func (s *PasswordService) afterPasswordChange(ctx context.Context, user *domain.User, at time.Time, source string) {
	s.notifier.SendPasswordChangedNotice(ctx, user.Email)

	if s.publisher != nil {
		event := domain.PasswordChangedEvent{
			UserID:    user.ID,
			ChangedAt: at,
			Source:    source,
		}
		if err := s.publisher.PublishPasswordChanged(ctx, event); err != nil {
			s.log.Warn("publish password changed event", zap.Error(err))
		}
	}

	s.log.Info("password changed",
		zap.String("user_id", user.ID),
		zap.String("source", source),
	)
}
