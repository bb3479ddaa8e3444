package domain

import "time"

// EmailVerificationToken is the 24-hour single-use artifact mailed after
// registration. Only the sha256 of the opaque token is persisted.
type EmailVerificationToken struct {
	ID         string
	UserID     string
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// IsExpired reports whether the token can no longer be redeemed.
func (t EmailVerificationToken) IsExpired(at time.Time) bool {
	return at.After(t.ExpiresAt)
}

// PasswordResetToken is the 1-hour single-use artifact mailed on a reset
// request. Kept as a distinct kind from EmailVerificationToken so that a
// verification link can never reset a password and vice versa.
type PasswordResetToken struct {
	ID         string
	UserID     string
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// IsExpired reports whether the token can no longer be redeemed.
func (t PasswordResetToken) IsExpired(at time.Time) bool {
	return at.After(t.ExpiresAt)
}

// OTPChallenge is the short-lived 6-digit code mailed after a successful
// email verification. The plaintext code is never stored.
type OTPChallenge struct {
	ID         string
	UserID     string
	CodeHash   string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// IsExpired reports whether the challenge can no longer be redeemed.
func (c OTPChallenge) IsExpired(at time.Time) bool {
	return at.After(c.ExpiresAt)
}
