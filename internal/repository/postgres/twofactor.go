package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/core/port"
	"github.com/mdurant/safelease-ai/internal/repository"
)

// TwoFactorRepository implements port.TwoFactorRepository using PostgreSQL.
type TwoFactorRepository struct {
	db      pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTwoFactorRepository wires a PostgreSQL-backed credential repository.
func NewTwoFactorRepository(db pgExecutor) *TwoFactorRepository {
	return &TwoFactorRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert creates or overwrites the user's credential in one statement, so a
// fresh enrollment replaces any dangling earlier setup.
func (r *TwoFactorRepository) Upsert(ctx context.Context, credential domain.TwoFactorCredential) error {
	stmt, args, err := r.builder.Insert("two_factor_credentials").
		Columns("user_id", "secret", "backup_code_hashes", "active", "created_at").
		Values(
			credential.UserID,
			credential.Secret,
			credential.BackupCodeHashes,
			credential.Active,
			credential.CreatedAt,
		).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET secret = EXCLUDED.secret, backup_code_hashes = EXCLUDED.backup_code_hashes, active = EXCLUDED.active, created_at = EXCLUDED.created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert two factor sql: %w", err)
	}

	if _, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert two factor credential: %w", err)
	}

	return nil
}

// GetByUser retrieves the user's credential.
func (r *TwoFactorRepository) GetByUser(ctx context.Context, userID string) (*domain.TwoFactorCredential, error) {
	stmt, args, err := r.builder.
		Select("user_id", "secret", "backup_code_hashes", "active", "created_at").
		From("two_factor_credentials").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select two factor sql: %w", err)
	}

	var credential domain.TwoFactorCredential
	if err := executorFrom(ctx, r.db).QueryRow(ctx, stmt, args...).Scan(
		&credential.UserID,
		&credential.Secret,
		&credential.BackupCodeHashes,
		&credential.Active,
		&credential.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan two factor credential: %w", err)
	}

	return &credential, nil
}

// RemoveBackupCode spends one backup code. The update only matches while the
// hash is still present in the array, so a code can be redeemed exactly once
// even under concurrent attempts.
func (r *TwoFactorRepository) RemoveBackupCode(ctx context.Context, userID, codeHash string) error {
	stmt, args, err := r.builder.Update("two_factor_credentials").
		Set("backup_code_hashes", squirrel.Expr("array_remove(backup_code_hashes, ?)", codeHash)).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Expr("? = ANY(backup_code_hashes)", codeHash)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build remove backup code sql: %w", err)
	}

	tag, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("remove backup code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes the credential entirely.
func (r *TwoFactorRepository) Delete(ctx context.Context, userID string) error {
	stmt, args, err := r.builder.Delete("two_factor_credentials").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete two factor sql: %w", err)
	}

	tag, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete two factor credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.TwoFactorRepository = (*TwoFactorRepository)(nil)
