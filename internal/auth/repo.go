package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ammonsd/activitytracking/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	RecordFailedLogin(ctx context.Context, username string) (int, error)
	ResetFailedLogins(ctx context.Context, username string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByUsername fetches the credential view of a user.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT u.id, u.username, u.password_hash, COALESCE(r.name, ''), u.is_enabled, u.failed_logins, u.password_expires_at
FROM users u LEFT JOIN roles r ON r.id = u.role_id
WHERE u.username = $1`, username)
	var acc Account
	var expires pgtype.Timestamptz
	if err := row.Scan(&acc.ID, &acc.Username, &acc.PasswordHash, &acc.Role, &acc.IsEnabled, &acc.FailedLogins, &expires); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		acc.PasswordExpiresAt = &t
	}
	return &acc, nil
}

// RecordFailedLogin increments the failed-login counter and returns the new value.
func (r *PGRepository) RecordFailedLogin(ctx context.Context, username string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `UPDATE users SET failed_logins = failed_logins + 1, updated_at = NOW()
WHERE username = $1 RETURNING failed_logins`, username).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return count, nil
}

// ResetFailedLogins clears the failed-login counter after a successful login.
func (r *PGRepository) ResetFailedLogins(ctx context.Context, username string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET failed_logins = 0, updated_at = NOW() WHERE username = $1`, username)
	return err
}

var _ Repository = (*PGRepository)(nil)
