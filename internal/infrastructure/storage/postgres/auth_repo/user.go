// Package auth_repo provides PostgreSQL implementations for auth repositories.
package auth_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ventari/internal/core/apperror"
	"ventari/internal/core/id"
	"ventari/internal/domain/auth"
	"ventari/internal/infrastructure/storage/postgres"
)

const usersTable = "users"

var userColumns = []string{
	"id", "email", "password_hash", "name", "role",
	"is_active", "last_login_at", "failed_login_attempts", "locked_until",
	"created_at", "updated_at",
}

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txm *postgres.TxManager) *UserRepo {
	return &UserRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new user.
func (r *UserRepo) Create(ctx context.Context, u *auth.User) error {
	q := r.builder.Insert(usersTable).
		Columns(userColumns...).
		Values(
			u.ID, u.Email, u.PasswordHash, u.Name, u.Role,
			u.IsActive, u.LastLoginAt, u.FailedLoginAttempts, u.LockedUntil,
			u.CreatedAt, u.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.WrapError(fmt.Errorf("insert user: %w", err), "user")
	}

	return nil
}

// Update stores user changes.
func (r *UserRepo) Update(ctx context.Context, u *auth.User) error {
	q := r.builder.Update(usersTable).
		Set("email", u.Email).
		Set("password_hash", u.PasswordHash).
		Set("name", u.Name).
		Set("role", u.Role).
		Set("is_active", u.IsActive).
		Set("last_login_at", u.LastLoginAt).
		Set("failed_login_attempts", u.FailedLoginAttempts).
		Set("locked_until", u.LockedUntil).
		Set("updated_at", u.UpdatedAt).
		Where(squirrel.Eq{"id": u.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.WrapError(fmt.Errorf("update user: %w", err), "user")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("user", u.ID.String())
	}

	return nil
}

// GetByID returns the user or a NOT_FOUND apperror.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": userID}, userID.String())
}

// GetByEmail returns the user or a NOT_FOUND apperror.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email}, email)
}

func (r *UserRepo) getOne(ctx context.Context, where squirrel.Eq, key string) (*auth.User, error) {
	q := r.builder.Select(userColumns...).
		From(usersTable).
		Where(where).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var u auth.User
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &u, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", key)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// Exists reports whether a user with the email exists.
func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	sql := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}

	return exists, nil
}

// List returns all users.
func (r *UserRepo) List(ctx context.Context) ([]auth.User, error) {
	q := r.builder.Select(userColumns...).
		From(usersTable).
		OrderBy("email")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var users []auth.User
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &users, sql, args...); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}

	return users, nil
}

// Ensure interface compliance.
var _ auth.UserRepository = (*UserRepo)(nil)
