package port

import (
	"context"

	"github.com/mdurant/safelease-ai/internal/core/domain"
)

// TwoFactorRepository persists the per-user TOTP credential.
type TwoFactorRepository interface {
	// Upsert creates or overwrites the user's credential in one statement.
	Upsert(ctx context.Context, credential domain.TwoFactorCredential) error
	GetByUser(ctx context.Context, userID string) (*domain.TwoFactorCredential, error)
	// RemoveBackupCode deletes one stored backup-code hash; the removal is
	// conditional on the hash still being present so a code spends once.
	RemoveBackupCode(ctx context.Context, userID, codeHash string) error
	Delete(ctx context.Context, userID string) error
}
