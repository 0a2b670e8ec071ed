package dropdowns

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ammonsd/activitytracking/internal/platform/db"
	"github.com/ammonsd/activitytracking/internal/shared"
)

// Repository provides access to dropdown values.
type Repository interface {
	List(ctx context.Context, category string, activeOnly bool) ([]Value, error)
	Get(ctx context.Context, id int64) (Value, error)
	Create(ctx context.Context, v Value) (Value, error)
	Update(ctx context.Context, v Value) (Value, error)
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, category, value string) (bool, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) List(ctx context.Context, category string, activeOnly bool) ([]Value, error) {
	sql := `SELECT id, category, value, sort_order, is_active, created_at, updated_at
		FROM dropdown_values WHERE category = $1`
	if activeOnly {
		sql += ` AND is_active`
	}
	sql += ` ORDER BY sort_order, value`

	rows, err := r.pool.Query(ctx, sql, category)
	if err != nil {
		return nil, fmt.Errorf("list dropdown values: %w", err)
	}
	defer rows.Close()

	var out []Value
	for rows.Next() {
		var v Value
		if err := rows.Scan(&v.ID, &v.Category, &v.Value, &v.SortOrder, &v.IsActive,
			&v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dropdown value: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Value, error) {
	var v Value
	err := r.pool.QueryRow(ctx, `SELECT id, category, value, sort_order, is_active, created_at, updated_at
		FROM dropdown_values WHERE id = $1`, id).
		Scan(&v.ID, &v.Category, &v.Value, &v.SortOrder, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	if err == pgx.ErrNoRows {
		return Value{}, shared.ErrNotFound
	}
	return v, err
}

func (r *PGRepository) Create(ctx context.Context, v Value) (Value, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO dropdown_values (category, value, sort_order, is_active)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`,
		v.Category, v.Value, v.SortOrder, v.IsActive).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Value{}, ErrDuplicateValue
		}
		return Value{}, fmt.Errorf("insert dropdown value: %w", err)
	}
	return v, nil
}

func (r *PGRepository) Update(ctx context.Context, v Value) (Value, error) {
	err := r.pool.QueryRow(ctx, `UPDATE dropdown_values SET value = $2, sort_order = $3,
		is_active = $4, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		v.ID, v.Value, v.SortOrder, v.IsActive).
		Scan(&v.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Value{}, shared.ErrNotFound
		}
		if db.IsUniqueViolation(err) {
			return Value{}, ErrDuplicateValue
		}
		return Value{}, fmt.Errorf("update dropdown value: %w", err)
	}
	return v, nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM dropdown_values WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dropdown value: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Exists(ctx context.Context, category, value string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM dropdown_values
		WHERE category = $1 AND value = $2 AND is_active)`, category, value).Scan(&ok)
	return ok, err
}
