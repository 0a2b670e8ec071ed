package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ammonsd/activitytracking/internal/platform/db"
	"github.com/ammonsd/activitytracking/internal/shared"
)

// Repository provides access to user accounts.
type Repository interface {
	List(ctx context.Context, req ListUsersRequest) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	Create(ctx context.Context, u User, passwordHash string) (User, error)
	Update(ctx context.Context, u User) (User, error)
	SetPassword(ctx context.Context, id int64, passwordHash string, expiresAt time.Time) error
	PasswordHash(ctx context.Context, id int64) (string, error)
	ResetFailedLogins(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository over Postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `u.id, u.username, u.display_name, u.email, u.role_id, COALESCE(r.name, ''),
	u.password_expires_at, u.failed_logins, u.is_enabled, u.created_at, u.updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.RoleID, &u.Role,
		&u.PasswordExpiresAt, &u.FailedLogins, &u.IsEnabled, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *PGRepository) List(ctx context.Context, req ListUsersRequest) ([]User, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1
	if req.Role != "" {
		where = append(where, fmt.Sprintf("r.name = $%d", idx))
		args = append(args, strings.ToUpper(req.Role))
		idx++
	}
	if req.Enabled != nil {
		where = append(where, fmt.Sprintf("u.is_enabled = $%d", idx))
		args = append(args, *req.Enabled)
		idx++
	}
	if req.Search != "" {
		where = append(where, fmt.Sprintf("(u.username ILIKE $%d OR u.display_name ILIKE $%d)", idx, idx))
		args = append(args, "%"+req.Search+"%")
		idx++
	}
	cond := strings.Join(where, " AND ")

	var total int
	countSQL := "SELECT COUNT(*) FROM users u LEFT JOIN roles r ON r.id = u.role_id WHERE " + cond
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	listSQL := fmt.Sprintf(`SELECT %s FROM users u LEFT JOIN roles r ON r.id = u.role_id
		WHERE %s ORDER BY u.username LIMIT $%d OFFSET $%d`, userColumns, cond, idx, idx+1)
	args = append(args, req.PerPage, (req.Page-1)*req.PerPage)

	rows, err := r.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]User, 0, req.PerPage)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM users u
		LEFT JOIN roles r ON r.id = u.role_id WHERE u.id = $1`, userColumns), id)
	u, err := scanUser(row)
	if err == pgx.ErrNoRows {
		return User{}, shared.ErrNotFound
	}
	return u, err
}

func (r *PGRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM users u
		LEFT JOIN roles r ON r.id = u.role_id WHERE u.username = $1`, userColumns), username)
	u, err := scanUser(row)
	if err == pgx.ErrNoRows {
		return User{}, shared.ErrNotFound
	}
	return u, err
}

func (r *PGRepository) Create(ctx context.Context, u User, passwordHash string) (User, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users
		(username, display_name, email, password_hash, role_id, password_expires_at, is_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		u.Username, u.DisplayName, u.Email, passwordHash, u.RoleID, u.PasswordExpiresAt, u.IsEnabled)
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrDuplicateUsername
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *PGRepository) Update(ctx context.Context, u User) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET display_name = $2, email = $3,
		role_id = $4, is_enabled = $5, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`,
		u.ID, u.DisplayName, u.Email, u.RoleID, u.IsEnabled)
	if err := row.Scan(&u.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return User{}, shared.ErrNotFound
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (r *PGRepository) SetPassword(ctx context.Context, id int64, passwordHash string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2,
		password_expires_at = $3, failed_logins = 0, updated_at = NOW() WHERE id = $1`,
		id, passwordHash, expiresAt)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) PasswordHash(ctx context.Context, id int64) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, id).Scan(&hash)
	if err == pgx.ErrNoRows {
		return "", shared.ErrNotFound
	}
	return hash, err
}

// Exists reports whether an enabled account with the username exists.
func (r *PGRepository) Exists(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND is_enabled)`, username).Scan(&ok)
	return ok, err
}

func (r *PGRepository) ResetFailedLogins(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET failed_logins = 0, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reset failed logins: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
