package domain

import "time"

// UserRegisteredEvent is published after a new account and its verification
// artifact are persisted.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Email        string
	RoleCode     string
	RegisteredAt time.Time
}

// PasswordChangedEvent is published after a password change or reset commits.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	ChangedAt time.Time
	Source    string
}

// SessionRevokedEvent is published when a session row is deleted.
type SessionRevokedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	RevokedAt time.Time
	Reason    string
}
