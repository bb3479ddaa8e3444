package usecase

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so a
	// caller cannot probe which addresses exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled indicates a valid login against a deactivated account.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrEmailTaken indicates the email is already registered, in any casing.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPasswordPolicyViolation indicates the password fails complexity rules.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrIncorrectCurrentPassword indicates the re-check of the current
	// password failed on an authenticated change. Distinct from
	// ErrInvalidCredentials: the caller is already authenticated, so there is
	// nothing to hide.
	ErrIncorrectCurrentPassword = errors.New("current password incorrect")

	// ErrTokenInvalid indicates an unknown verification or reset token.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates the token exists but its lifetime has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenAlreadyUsed indicates the token was already redeemed.
	ErrTokenAlreadyUsed = errors.New("token already used")

	// ErrOTPInvalid indicates no live challenge matches the submitted code.
	ErrOTPInvalid = errors.New("otp invalid")
	// ErrOTPExpired indicates the matching challenge has expired.
	ErrOTPExpired = errors.New("otp expired")

	// ErrSessionRevoked indicates the refresh token's session row is gone.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrSessionNotFound indicates the session does not exist or is not owned
	// by the caller.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTwoFactorNotEnrolled indicates no credential exists for the user.
	ErrTwoFactorNotEnrolled = errors.New("two factor not enrolled")
	// ErrTwoFactorCodeInvalid indicates neither the TOTP code nor a backup
	// code matched.
	ErrTwoFactorCodeInvalid = errors.New("two factor code invalid")

	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = errors.New("user not found")
)
