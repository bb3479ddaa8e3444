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

// ProfileRepository implements port.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	db      pgExecutor
	builder squirrel.StatementBuilderType
}

// NewProfileRepository wires a PostgreSQL-backed profile repository.
func NewProfileRepository(db pgExecutor) *ProfileRepository {
	return &ProfileRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the profile row that accompanies a new user.
func (r *ProfileRepository) Create(ctx context.Context, profile domain.Profile) error {
	stmt, args, err := r.builder.Insert("profiles").
		Columns("user_id", "display_name", "surname", "phone", "alt_phone", "avatar_ref", "created_at", "updated_at").
		Values(
			profile.UserID,
			profile.DisplayName,
			profile.Surname,
			profile.Phone,
			profile.AltPhone,
			profile.AvatarRef,
			profile.CreatedAt,
			profile.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert profile sql: %w", err)
	}

	if _, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert profile: %w", err)
	}

	return nil
}

// GetByUser retrieves the profile owned by userID.
func (r *ProfileRepository) GetByUser(ctx context.Context, userID string) (*domain.Profile, error) {
	stmt, args, err := r.builder.
		Select("user_id", "display_name", "surname", "phone", "alt_phone", "avatar_ref", "created_at", "updated_at").
		From("profiles").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select profile sql: %w", err)
	}

	row := executorFrom(ctx, r.db).QueryRow(ctx, stmt, args...)

	var (
		profile   domain.Profile
		avatarRef sql.NullString
	)

	if err := row.Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.Surname,
		&profile.Phone,
		&profile.AltPhone,
		&avatarRef,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	if avatarRef.Valid {
		profile.AvatarRef = &avatarRef.String
	}

	return &profile, nil
}

// Update persists the full mutable profile state.
func (r *ProfileRepository) Update(ctx context.Context, profile domain.Profile) error {
	stmt, args, err := r.builder.Update("profiles").
		Set("display_name", profile.DisplayName).
		Set("surname", profile.Surname).
		Set("phone", profile.Phone).
		Set("alt_phone", profile.AltPhone).
		Set("updated_at", profile.UpdatedAt).
		Where(squirrel.Eq{"user_id": profile.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update profile sql: %w", err)
	}

	tag, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetAvatar stores the avatar object reference.
func (r *ProfileRepository) SetAvatar(ctx context.Context, userID, avatarRef string, at time.Time) error {
	stmt, args, err := r.builder.Update("profiles").
		Set("avatar_ref", avatarRef).
		Set("updated_at", at).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set avatar sql: %w", err)
	}

	tag, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.ProfileRepository = (*ProfileRepository)(nil)
