package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/repository"
)

func TestTokenRepository_CreateAndGetEmailVerification(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	createdAt := time.Now().UTC()
	token := domain.EmailVerificationToken{
		ID:        "token-1",
		UserID:    "user-1",
		TokenHash: "hash-1",
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(24 * time.Hour),
	}

	mock.ExpectExec(`INSERT INTO email_verification_tokens`).
		WithArgs(token.ID, token.UserID, token.TokenHash, token.CreatedAt, token.ExpiresAt, (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.CreateEmailVerification(context.Background(), token); err != nil {
		t.Fatalf("CreateEmailVerification returned error: %v", err)
	}

	rows := pgxmock.NewRows([]string{"id", "user_id", "token_hash", "created_at", "expires_at", "consumed_at"}).
		AddRow(token.ID, token.UserID, token.TokenHash, token.CreatedAt, token.ExpiresAt, nil)

	mock.ExpectQuery(`SELECT .*FROM email_verification_tokens`).
		WithArgs(token.TokenHash).
		WillReturnRows(rows)

	got, err := repo.GetEmailVerificationByHash(context.Background(), token.TokenHash)
	if err != nil {
		t.Fatalf("GetEmailVerificationByHash returned error: %v", err)
	}
	if got.ID != token.ID || got.ConsumedAt != nil {
		t.Fatalf("unexpected token: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_ConsumeIsConditional(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)
	at := time.Now().UTC()

	// Winner claims the row.
	mock.ExpectExec(`UPDATE password_reset_tokens SET consumed_at = \$1 WHERE id = \$2 AND consumed_at IS NULL`).
		WithArgs(at, "token-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.ConsumePasswordReset(context.Background(), "token-1", at); err != nil {
		t.Fatalf("first consume returned error: %v", err)
	}

	// A second redemption matches zero rows.
	mock.ExpectExec(`UPDATE password_reset_tokens SET consumed_at = \$1 WHERE id = \$2 AND consumed_at IS NULL`).
		WithArgs(at, "token-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.ConsumePasswordReset(context.Background(), "token-1", at); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second consume, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_GetOTPChallengeNewestUnconsumed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	createdAt := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "user_id", "code_hash", "created_at", "expires_at", "consumed_at"}).
		AddRow("otp-2", "user-1", "code-hash", createdAt, createdAt.Add(10*time.Minute), nil)

	mock.ExpectQuery(`SELECT .*FROM otp_challenges.*ORDER BY created_at DESC LIMIT 1`).
		WithArgs("code-hash", "user-1").
		WillReturnRows(rows)

	challenge, err := repo.GetOTPChallenge(context.Background(), "user-1", "code-hash")
	if err != nil {
		t.Fatalf("GetOTPChallenge returned error: %v", err)
	}
	if challenge.ID != "otp-2" {
		t.Fatalf("expected newest challenge, got %s", challenge.ID)
	}
}

func TestTokenRepository_GetOTPChallengeNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM otp_challenges`).
		WithArgs("wrong-hash", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "code_hash", "created_at", "expires_at", "consumed_at"}))

	if _, err := repo.GetOTPChallenge(context.Background(), "user-1", "wrong-hash"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
