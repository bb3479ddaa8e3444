package port

import (
	"context"
	"time"

	"github.com/mdurant/safelease-ai/internal/core/domain"
)

// TokenRepository manages the single-use, time-boxed verification artifacts.
//
// The Consume* methods must perform a conditional update (consumed_at set only
// where it is still NULL) so that N concurrent redemptions of one artifact
// yield exactly one success; losers observe repository.ErrNotFound.
type TokenRepository interface {
	CreateEmailVerification(ctx context.Context, token domain.EmailVerificationToken) error
	GetEmailVerificationByHash(ctx context.Context, hash string) (*domain.EmailVerificationToken, error)
	ConsumeEmailVerification(ctx context.Context, id string, at time.Time) error

	CreatePasswordReset(ctx context.Context, token domain.PasswordResetToken) error
	GetPasswordResetByHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error)
	ConsumePasswordReset(ctx context.Context, id string, at time.Time) error

	CreateOTPChallenge(ctx context.Context, challenge domain.OTPChallenge) error
	// GetOTPChallenge returns the newest unconsumed challenge matching the
	// user and code hash (first match wins among coexisting challenges).
	GetOTPChallenge(ctx context.Context, userID, codeHash string) (*domain.OTPChallenge, error)
	ConsumeOTPChallenge(ctx context.Context, id string, at time.Time) error
}
