package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/core/port"
	"github.com/mdurant/safelease-ai/internal/repository"
)

var sessionColumns = []string{
	"id",
	"user_id",
	"device_id",
	"ip",
	"user_agent",
	"refresh_token_id",
	"last_active_at",
	"created_at",
}

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
// Deleting a row is what revocation means; there is no soft-delete state.
type SessionRepository struct {
	db      pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository wires a PostgreSQL-backed session repository.
func NewSessionRepository(db pgExecutor) *SessionRepository {
	return &SessionRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create persists a new session row.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	stmt, args, err := r.builder.Insert("sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.UserID,
			session.DeviceID,
			session.IP,
			session.UserAgent,
			session.RefreshTokenID,
			session.LastActiveAt,
			session.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// ListByUser returns the user's sessions, most recent activity first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("sessions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("last_active_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := executorFrom(ctx, r.db).Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// GetByRefreshTokenID resolves the session keyed by a refresh token's jti.
func (r *SessionRepository) GetByRefreshTokenID(ctx context.Context, refreshTokenID string) (*domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("sessions").
		Where(squirrel.Eq{"refresh_token_id": refreshTokenID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	session, err := scanSession(executorFrom(ctx, r.db).QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &session, nil
}

// RotateRefreshToken re-keys the session to a fresh refresh token jti.
func (r *SessionRepository) RotateRefreshToken(ctx context.Context, sessionID, refreshTokenID string, at time.Time) error {
	stmt, args, err := r.builder.Update("sessions").
		Set("refresh_token_id", refreshTokenID).
		Set("last_active_at", at).
		Where(squirrel.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build rotate refresh token sql: %w", err)
	}

	tag, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes one session owned by the user. Scoping the delete by owner
// makes a foreign or unknown session id indistinguishable: both are
// ErrNotFound.
func (r *SessionRepository) Delete(ctx context.Context, userID, sessionID string) error {
	stmt, args, err := r.builder.Delete("sessions").
		Where(squirrel.Eq{"id": sessionID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete session sql: %w", err)
	}

	tag, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteAllExcept removes every session of the user except keepSessionID,
// or all of them when keepSessionID is empty. Returns the number removed.
func (r *SessionRepository) DeleteAllExcept(ctx context.Context, userID, keepSessionID string) (int, error) {
	builder := r.builder.Delete("sessions").
		Where(squirrel.Eq{"user_id": userID})
	if keepSessionID != "" {
		builder = builder.Where(squirrel.NotEq{"id": keepSessionID})
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete sessions sql: %w", err)
	}

	tag, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func scanSession(row pgx.Row) (domain.Session, error) {
	var (
		session domain.Session
		ip      sql.NullString
	)

	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.DeviceID,
		&ip,
		&session.UserAgent,
		&session.RefreshTokenID,
		&session.LastActiveAt,
		&session.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, pgx.ErrNoRows
		}
		return domain.Session{}, fmt.Errorf("scan session: %w", err)
	}

	if ip.Valid {
		session.IP = &ip.String
	}

	return session, nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
