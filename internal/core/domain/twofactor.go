package domain

import "time"

// TwoFactorCredential is the single TOTP enrollment a user may hold.
// Backup codes are stored as sha256 hashes and removed as they are spent;
// re-activation overwrites the whole record.
type TwoFactorCredential struct {
	UserID           string
	Secret           string
	BackupCodeHashes []string
	Active           bool
	CreatedAt        time.Time
}
