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

var userColumns = []string{
	"u.id",
	"u.email",
	"u.password_hash",
	"r.code",
	"u.is_active",
	"u.is_staff",
	"u.is_superuser",
	"u.verified_email",
	"u.verified_phone",
	"u.password_changed_at",
	"u.created_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	db      pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(db pgExecutor) *UserRepository {
	return &UserRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new user row. The case-insensitive unique index on email
// is the single arbiter of duplicates: a clash surfaces as ErrDuplicate with
// no read-before-write race.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	var roleValue any
	if user.RoleCode != nil {
		roleValue = squirrel.Expr("(SELECT id FROM roles WHERE code = ?)", *user.RoleCode)
	}

	stmt, args, err := r.builder.Insert("users").
		Columns(
			"id",
			"email",
			"password_hash",
			"role_id",
			"is_active",
			"is_staff",
			"is_superuser",
			"verified_email",
			"verified_phone",
			"created_at",
		).
		Values(
			user.ID,
			user.Email,
			user.PasswordHash,
			roleValue,
			user.IsActive,
			user.IsStaff,
			user.IsSuperuser,
			user.VerifiedEmail,
			user.VerifiedPhone,
			user.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"u.id": id})
}

// GetByEmail retrieves a user by email, matching case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Expr("lower(u.email) = lower(?)", email))
}

func (r *UserRepository) getOne(ctx context.Context, cond any) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("users u").
		LeftJoin("roles r ON r.id = u.role_id").
		Where(cond).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := executorFrom(ctx, r.db).QueryRow(ctx, stmt, args...)

	var (
		user      domain.User
		roleCode  sql.NullString
		pwChanged sql.NullTime
	)

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&roleCode,
		&user.IsActive,
		&user.IsStaff,
		&user.IsSuperuser,
		&user.VerifiedEmail,
		&user.VerifiedPhone,
		&pwChanged,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if roleCode.Valid {
		user.RoleCode = &roleCode.String
	}
	if pwChanged.Valid {
		user.PasswordChangedAt = &pwChanged.Time
	}

	return &user, nil
}

// UpdatePassword replaces the stored password hash and records when the
// change happened.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update("users").
		Set("password_hash", passwordHash).
		Set("password_changed_at", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetEmailVerified flips the verified_email flag.
func (r *UserRepository) SetEmailVerified(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("users").
		Set("verified_email", true).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build verify email sql: %w", err)
	}

	tag, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Deactivate disables the account without deleting its history.
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("users").
		Set("is_active", false).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate sql: %w", err)
	}

	tag, err := executorFrom(ctx, r.db).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
