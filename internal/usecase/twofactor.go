package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/core/port"
	"github.com/mdurant/safelease-ai/internal/infra/security"
	"github.com/mdurant/safelease-ai/internal/repository"
)

const defaultBackupCodeCount = 8

// TwoFactorService manages the optional TOTP second factor: enrollment,
// activation, verification, and teardown.
type TwoFactorService struct {
	credentials port.TwoFactorRepository
	users       port.UserRepository
	totp        *security.TOTPManager
	log         *zap.Logger

	backupCodeCount int
	now             func() time.Time
}

// NewTwoFactorService constructs a two-factor service.
func NewTwoFactorService(credentials port.TwoFactorRepository, users port.UserRepository, totp *security.TOTPManager, log *zap.Logger) *TwoFactorService {
	return &TwoFactorService{
		credentials:     credentials,
		users:           users,
		totp:            totp,
		log:             log,
		backupCodeCount: defaultBackupCodeCount,
		now:             time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *TwoFactorService) WithClock(now func() time.Time) *TwoFactorService {
	s.now = now
	return s
}

// WithBackupCodeCount overrides how many backup codes activation issues.
func (s *TwoFactorService) WithBackupCodeCount(n int) *TwoFactorService {
	if n > 0 {
		s.backupCodeCount = n
	}
	return s
}

// SetupResult carries the enrollment material shown to the user once.
type SetupResult struct {
	Secret          string
	ProvisioningURI string
}

// Setup starts enrollment: a fresh secret and provisioning URI are returned
// but nothing is persisted. Activation must prove possession of the secret
// before any credential is written.
func (s *TwoFactorService) Setup(ctx context.Context, userID string) (SetupResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return SetupResult{}, ErrUserNotFound
		}
		return SetupResult{}, fmt.Errorf("lookup user: %w", err)
	}

	secret, uri, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return SetupResult{}, fmt.Errorf("generate totp secret: %w", err)
	}

	return SetupResult{Secret: secret, ProvisioningURI: uri}, nil
}

// Activate completes enrollment by checking code against the secret handed
// out at setup, which the client echoes back. On success the credential is
// written active, replacing any prior record, and the plaintext backup codes
// are returned exactly once; only their hashes are stored.
func (s *TwoFactorService) Activate(ctx context.Context, userID, secret, code string) ([]string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrTwoFactorCodeInvalid
	}

	if !s.totp.Validate(strings.TrimSpace(code), secret) {
		return nil, ErrTwoFactorCodeInvalid
	}

	codes, err := security.GenerateBackupCodes(s.backupCodeCount)
	if err != nil {
		return nil, fmt.Errorf("generate backup codes: %w", err)
	}

	hashes := make([]string, 0, len(codes))
	for _, c := range codes {
		hashes = append(hashes, security.HashToken(c))
	}

	credential := domain.TwoFactorCredential{
		UserID:           userID,
		Secret:           secret,
		Active:           true,
		BackupCodeHashes: hashes,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.credentials.Upsert(ctx, credential); err != nil {
		return nil, fmt.Errorf("activate credential: %w", err)
	}

	s.log.Info("two factor activated", zap.String("user_id", userID))

	return codes, nil
}

// Verify checks a TOTP code or, failing that, spends a backup code. A backup
// code works once: the storage removal is conditional on the hash still being
// present. An account without an active credential verifies to false rather
// than an error, so callers can probe without special-casing enrollment.
func (s *TwoFactorService) Verify(ctx context.Context, userID, code string) (bool, error) {
	credential, err := s.activeCredential(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrTwoFactorNotEnrolled) {
			return false, nil
		}
		return false, err
	}

	code = strings.TrimSpace(code)
	if s.totp.Validate(code, credential.Secret) {
		return true, nil
	}

	if err := s.credentials.RemoveBackupCode(ctx, userID, security.HashToken(code)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("spend backup code: %w", err)
	}

	s.log.Info("backup code spent", zap.String("user_id", userID))

	return true, nil
}

// Deactivate tears down the second factor after one final proof of
// possession. Backup codes are accepted here too.
func (s *TwoFactorService) Deactivate(ctx context.Context, userID, code string) error {
	ok, err := s.Verify(ctx, userID, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTwoFactorCodeInvalid
	}

	if err := s.credentials.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTwoFactorNotEnrolled
		}
		return fmt.Errorf("delete credential: %w", err)
	}

	s.log.Info("two factor deactivated", zap.String("user_id", userID))

	return nil
}

// Status reports whether the factor is active and how many backup codes
// remain unspent.
func (s *TwoFactorService) Status(ctx context.Context, userID string) (enabled bool, backupCodesLeft int, err error) {
	credential, err := s.credentials.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("lookup credential: %w", err)
	}

	if !credential.Active {
		return false, 0, nil
	}

	return true, len(credential.BackupCodeHashes), nil
}

func (s *TwoFactorService) activeCredential(ctx context.Context, userID string) (*domain.TwoFactorCredential, error) {
	credential, err := s.credentials.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTwoFactorNotEnrolled
		}
		return nil, fmt.Errorf("lookup credential: %w", err)
	}
	if !credential.Active {
		return nil, ErrTwoFactorNotEnrolled
	}
	return credential, nil
}
