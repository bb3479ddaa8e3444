package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const otpCodeDigits = 6

var otpCodeSpace = big.NewInt(1_000_000)

// GenerateSecureToken returns a URL-safe random token of byteLength random
// bytes, hex encoded. Used for email verification and password reset links.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = 32
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("security: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateOTPCode returns a uniformly distributed 6-digit numeric code,
// zero padded, in the range 000000 to 999999.
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpCodeSpace)
	if err != nil {
		return "", fmt.Errorf("security: generate otp code: %w", err)
	}
	return fmt.Sprintf("%0*d", otpCodeDigits, n), nil
}

// HashToken returns the hex-encoded SHA-256 digest of the value. Single-use
// artifacts are stored hashed so a database leak does not expose live tokens.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// GenerateBackupCodes returns count short recovery codes, each 8 hex
// characters. The plaintext codes are shown to the user exactly once.
func GenerateBackupCodes(count int) ([]string, error) {
	if count <= 0 {
		count = 8
	}

	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		buf := make([]byte, 4)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("security: generate backup code: %w", err)
		}
		codes = append(codes, hex.EncodeToString(buf))
	}
	return codes, nil
}
