package domain

import "time"

// Session is the revocation bookkeeping row created on every token issuance.
// It is keyed by the refresh token's JTI; deleting the row is what "revoke"
// means here. The signed refresh token itself stays valid until expiry, so
// the refresh flow must check the row still exists.
type Session struct {
	ID             string
	UserID         string
	DeviceID       string
	IP             *string
	UserAgent      string
	RefreshTokenID string
	LastActiveAt   time.Time
	CreatedAt      time.Time
}
