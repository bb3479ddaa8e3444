package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/core/port"
	"github.com/mdurant/safelease-ai/internal/repository"
)

// TokenRepository implements port.TokenRepository using PostgreSQL. The three
// artifact kinds live in separate tables with an identical shape, so the
// storage primitives are shared and each kind maps through them.
type TokenRepository struct {
	db      pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository wires a PostgreSQL-backed artifact repository.
func NewTokenRepository(db pgExecutor) *TokenRepository {
	return &TokenRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

type artifactRow struct {
	ID         string
	UserID     string
	Hash       string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

func (r *TokenRepository) insertArtifact(ctx context.Context, table, hashColumn string, row artifactRow) error {
	stmt, args, err := r.builder.Insert(table).
		Columns("id", "user_id", hashColumn, "created_at", "expires_at", "consumed_at").
		Values(row.ID, row.UserID, row.Hash, row.CreatedAt, row.ExpiresAt, row.ConsumedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s sql: %w", table, err)
	}

	if _, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert %s: %w", table, err)
	}

	return nil
}

func (r *TokenRepository) getArtifactByHash(ctx context.Context, table, hashColumn, hash string) (*artifactRow, error) {
	stmt, args, err := r.builder.
		Select("id", "user_id", hashColumn, "created_at", "expires_at", "consumed_at").
		From(table).
		Where(squirrel.Eq{hashColumn: hash}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s sql: %w", table, err)
	}

	var row artifactRow
	if err := executorFrom(ctx, r.db).QueryRow(ctx, stmt, args...).Scan(
		&row.ID,
		&row.UserID,
		&row.Hash,
		&row.CreatedAt,
		&row.ExpiresAt,
		&row.ConsumedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan %s: %w", table, err)
	}

	return &row, nil
}

// consumeArtifact performs the conditional update that makes redemption
// single-use: the row is claimed only while consumed_at is still NULL, so
// among N concurrent redeemers exactly one sees RowsAffected == 1 and the
// rest get ErrNotFound.
func (r *TokenRepository) consumeArtifact(ctx context.Context, table, id string, at time.Time) error {
	stmt, args, err := r.builder.Update(table).
		Set("consumed_at", at).
		Where(squirrel.Eq{"id": id}).
		Where("consumed_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume %s sql: %w", table, err)
	}

	tag, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("consume %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// CreateEmailVerification stores a hashed verification token.
func (r *TokenRepository) CreateEmailVerification(ctx context.Context, token domain.EmailVerificationToken) error {
	return r.insertArtifact(ctx, "email_verification_tokens", "token_hash", artifactRow{
		ID:         token.ID,
		UserID:     token.UserID,
		Hash:       token.TokenHash,
		CreatedAt:  token.CreatedAt,
		ExpiresAt:  token.ExpiresAt,
		ConsumedAt: token.ConsumedAt,
	})
}

// GetEmailVerificationByHash looks a verification token up by its hash.
func (r *TokenRepository) GetEmailVerificationByHash(ctx context.Context, hash string) (*domain.EmailVerificationToken, error) {
	row, err := r.getArtifactByHash(ctx, "email_verification_tokens", "token_hash", hash)
	if err != nil {
		return nil, err
	}
	return &domain.EmailVerificationToken{
		ID:         row.ID,
		UserID:     row.UserID,
		TokenHash:  row.Hash,
		CreatedAt:  row.CreatedAt,
		ExpiresAt:  row.ExpiresAt,
		ConsumedAt: row.ConsumedAt,
	}, nil
}

// ConsumeEmailVerification claims a verification token exactly once.
func (r *TokenRepository) ConsumeEmailVerification(ctx context.Context, id string, at time.Time) error {
	return r.consumeArtifact(ctx, "email_verification_tokens", id, at)
}

// CreatePasswordReset stores a hashed reset token.
func (r *TokenRepository) CreatePasswordReset(ctx context.Context, token domain.PasswordResetToken) error {
	return r.insertArtifact(ctx, "password_reset_tokens", "token_hash", artifactRow{
		ID:         token.ID,
		UserID:     token.UserID,
		Hash:       token.TokenHash,
		CreatedAt:  token.CreatedAt,
		ExpiresAt:  token.ExpiresAt,
		ConsumedAt: token.ConsumedAt,
	})
}

// GetPasswordResetByHash looks a reset token up by its hash.
func (r *TokenRepository) GetPasswordResetByHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error) {
	row, err := r.getArtifactByHash(ctx, "password_reset_tokens", "token_hash", hash)
	if err != nil {
		return nil, err
	}
	return &domain.PasswordResetToken{
		ID:         row.ID,
		UserID:     row.UserID,
		TokenHash:  row.Hash,
		CreatedAt:  row.CreatedAt,
		ExpiresAt:  row.ExpiresAt,
		ConsumedAt: row.ConsumedAt,
	}, nil
}

// ConsumePasswordReset claims a reset token exactly once.
func (r *TokenRepository) ConsumePasswordReset(ctx context.Context, id string, at time.Time) error {
	return r.consumeArtifact(ctx, "password_reset_tokens", id, at)
}

// CreateOTPChallenge stores a hashed one-time code.
func (r *TokenRepository) CreateOTPChallenge(ctx context.Context, challenge domain.OTPChallenge) error {
	return r.insertArtifact(ctx, "otp_challenges", "code_hash", artifactRow{
		ID:         challenge.ID,
		UserID:     challenge.UserID,
		Hash:       challenge.CodeHash,
		CreatedAt:  challenge.CreatedAt,
		ExpiresAt:  challenge.ExpiresAt,
		ConsumedAt: challenge.ConsumedAt,
	})
}

// GetOTPChallenge returns the newest unconsumed challenge matching the user
// and code hash. Codes are not unique across users, so the lookup is scoped.
func (r *TokenRepository) GetOTPChallenge(ctx context.Context, userID, codeHash string) (*domain.OTPChallenge, error) {
	stmt, args, err := r.builder.
		Select("id", "user_id", "code_hash", "created_at", "expires_at", "consumed_at").
		From("otp_challenges").
		Where(squirrel.Eq{"user_id": userID, "code_hash": codeHash}).
		Where("consumed_at IS NULL").
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select otp challenge sql: %w", err)
	}

	var challenge domain.OTPChallenge
	if err := executorFrom(ctx, r.db).QueryRow(ctx, stmt, args...).Scan(
		&challenge.ID,
		&challenge.UserID,
		&challenge.CodeHash,
		&challenge.CreatedAt,
		&challenge.ExpiresAt,
		&challenge.ConsumedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan otp challenge: %w", err)
	}

	return &challenge, nil
}

// ConsumeOTPChallenge claims a challenge exactly once.
func (r *TokenRepository) ConsumeOTPChallenge(ctx context.Context, id string, at time.Time) error {
	return r.consumeArtifact(ctx, "otp_challenges", id, at)
}

var _ port.TokenRepository = (*TokenRepository)(nil)
