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

const (
	defaultEmailVerificationTTL = 24 * time.Hour
	defaultOTPTTL               = 10 * time.Minute
)

// RegistrationService handles account onboarding: create, email verification,
// and the final one-time code confirmation.
type RegistrationService struct {
	users     port.UserRepository
	profiles  port.ProfileRepository
	tokens    port.TokenRepository
	tx        port.Transactor
	publisher port.EventPublisher
	notifier  *NotificationService
	validator *security.PasswordValidator
	log       *zap.Logger

	emailTokenTTL time.Duration
	otpTTL        time.Duration
	now           func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	users port.UserRepository,
	profiles port.ProfileRepository,
	tokens port.TokenRepository,
	tx port.Transactor,
	publisher port.EventPublisher,
	notifier *NotificationService,
	validator *security.PasswordValidator,
	log *zap.Logger,
) *RegistrationService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	return &RegistrationService{
		users:         users,
		profiles:      profiles,
		tokens:        tokens,
		tx:            tx,
		publisher:     publisher,
		notifier:      notifier,
		validator:     validator,
		log:           log,
		emailTokenTTL: defaultEmailVerificationTTL,
		otpTTL:        defaultOTPTTL,
		now:           time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	s.now = now
	return s
}

// WithTTLs overrides artifact lifetimes from configuration.
func (s *RegistrationService) WithTTLs(emailTokenTTL, otpTTL time.Duration) *RegistrationService {
	if emailTokenTTL > 0 {
		s.emailTokenTTL = emailTokenTTL
	}
	if otpTTL > 0 {
		s.otpTTL = otpTTL
	}
	return s
}

// RegisterInput carries the new account request.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Surname     string
	Phone       string
	RoleCode    string
}

// Register creates the user, its profile, and the email verification token in
// one transaction, then mails the verification link. The stored email keeps
// the caller's casing; uniqueness is enforced case-insensitively by storage.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("email is required")
	}
	password := input.Password
	if password == "" {
		return domain.User{}, fmt.Errorf("password is required")
	}

	if err := s.validator.Validate(password, email); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
	}

	roleCode := strings.TrimSpace(input.RoleCode)
	if roleCode == "" {
		roleCode = domain.RoleViewer
	}
	user.RoleCode = &roleCode

	rawToken, err := security.GenerateSecureToken(32)
	if err != nil {
		return domain.User{}, fmt.Errorf("generate verification token: %w", err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}

		profile := domain.Profile{
			UserID:      user.ID,
			DisplayName: strings.TrimSpace(input.DisplayName),
			Surname:     strings.TrimSpace(input.Surname),
			Phone:       strings.TrimSpace(input.Phone),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.profiles.Create(ctx, profile); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}

		token := domain.EmailVerificationToken{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			TokenHash: security.HashToken(rawToken),
			CreatedAt: now,
			ExpiresAt: now.Add(s.emailTokenTTL),
		}
		if err := s.tokens.CreateEmailVerification(ctx, token); err != nil {
			return fmt.Errorf("store verification token: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	s.notifier.SendVerificationEmail(ctx, user.Email, rawToken)

	if s.publisher != nil {
		event := domain.UserRegisteredEvent{
			UserID:       user.ID,
			Email:        user.Email,
			RoleCode:     roleCode,
			RegisteredAt: now,
		}
		if err := s.publisher.PublishUserRegistered(ctx, event); err != nil {
			s.log.Warn("publish user registered event", zap.Error(err))
		}
	}

	s.log.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	return user, nil
}

// VerifyEmail redeems the mailed verification token, marks the email
// verified, and issues the follow-up one-time code. A token can be redeemed
// exactly once: concurrent redemptions race on the conditional consume and
// losers see ErrTokenAlreadyUsed.
func (s *RegistrationService) VerifyEmail(ctx context.Context, rawToken string) (domain.User, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.User{}, ErrTokenInvalid
	}

	token, err := s.tokens.GetEmailVerificationByHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrTokenInvalid
		}
		return domain.User{}, fmt.Errorf("lookup verification token: %w", err)
	}

	now := s.now().UTC()
	if token.ConsumedAt != nil {
		return domain.User{}, ErrTokenAlreadyUsed
	}
	if token.IsExpired(now) {
		return domain.User{}, ErrTokenExpired
	}

	code, err := security.GenerateOTPCode()
	if err != nil {
		return domain.User{}, fmt.Errorf("generate otp code: %w", err)
	}

	// Consume, flag, and challenge land together or not at all. A failure
	// after the consume would otherwise burn the single-use token and strand
	// the account unverified.
	var user *domain.User
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tokens.ConsumeEmailVerification(ctx, token.ID, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTokenAlreadyUsed
			}
			return fmt.Errorf("consume verification token: %w", err)
		}

		user, err = s.users.GetByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}

		if err := s.users.SetEmailVerified(ctx, user.ID); err != nil {
			return fmt.Errorf("mark email verified: %w", err)
		}
		user.VerifiedEmail = true

		challenge := domain.OTPChallenge{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			CodeHash:  security.HashToken(code),
			CreatedAt: now,
			ExpiresAt: now.Add(s.otpTTL),
		}
		if err := s.tokens.CreateOTPChallenge(ctx, challenge); err != nil {
			return fmt.Errorf("store otp challenge: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	s.notifier.SendOTPEmail(ctx, user.Email, code)

	s.log.Info("email verified", zap.String("user_id", user.ID))

	return *user, nil
}

// VerifyOTP redeems the mailed one-time code, completing onboarding
// confirmation. Several challenges may coexist for a user; the newest
// unconsumed one matching the code wins. Returns the confirmed user so the
// caller can follow up with token issuance.
func (s *RegistrationService) VerifyOTP(ctx context.Context, email, code string) (domain.User, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return domain.User{}, ErrOTPInvalid
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrOTPInvalid
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	challenge, err := s.tokens.GetOTPChallenge(ctx, user.ID, security.HashToken(code))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrOTPInvalid
		}
		return domain.User{}, fmt.Errorf("lookup otp challenge: %w", err)
	}

	now := s.now().UTC()
	if challenge.IsExpired(now) {
		return domain.User{}, ErrOTPExpired
	}

	if err := s.tokens.ConsumeOTPChallenge(ctx, challenge.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrOTPInvalid
		}
		return domain.User{}, fmt.Errorf("consume otp challenge: %w", err)
	}

	s.log.Info("otp confirmed", zap.String("user_id", user.ID))

	return *user, nil
}
