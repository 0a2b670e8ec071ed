package taskactivity

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ammonsd/activitytracking/internal/platform/db"
	"github.com/ammonsd/activitytracking/internal/shared"
)

// Repository provides access to task activities.
type Repository interface {
	List(ctx context.Context, req ListRequest) ([]Activity, int, error)
	Get(ctx context.Context, id int64) (Activity, error)
	Create(ctx context.Context, a Activity) (Activity, error)
	Update(ctx context.Context, a Activity) (Activity, error)
	Delete(ctx context.Context, id int64) error
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const activityColumns = `id, username, task_date, client, project, phase, hours,
	description, billable, created_at, updated_at`

func scanActivity(row pgx.Row) (Activity, error) {
	var a Activity
	err := row.Scan(&a.ID, &a.Username, &a.TaskDate, &a.Client, &a.Project, &a.Phase,
		&a.Hours, &a.Description, &a.Billable, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *PGRepository) List(ctx context.Context, req ListRequest) ([]Activity, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1
	add := func(cond string, val any) {
		where = append(where, fmt.Sprintf(cond, idx))
		args = append(args, val)
		idx++
	}
	if req.Username != "" {
		add("username = $%d", req.Username)
	}
	if req.Client != "" {
		add("client = $%d", req.Client)
	}
	if req.Project != "" {
		add("project = $%d", req.Project)
	}
	if req.From != nil {
		add("task_date >= $%d", *req.From)
	}
	if req.To != nil {
		add("task_date <= $%d", *req.To)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM task_activities WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}

	sql := fmt.Sprintf(`SELECT %s FROM task_activities WHERE %s
		ORDER BY task_date DESC, id DESC LIMIT $%d OFFSET $%d`, activityColumns, cond, idx, idx+1)
	args = append(args, req.PerPage, (req.Page-1)*req.PerPage)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	out := make([]Activity, 0, req.PerPage)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Activity, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM task_activities WHERE id = $1", activityColumns), id)
	a, err := scanActivity(row)
	if err == pgx.ErrNoRows {
		return Activity{}, shared.ErrNotFound
	}
	return a, err
}

func (r *PGRepository) Create(ctx context.Context, a Activity) (Activity, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO task_activities
		(username, task_date, client, project, phase, hours, description, billable)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		a.Username, a.TaskDate, a.Client, a.Project, a.Phase, a.Hours, a.Description, a.Billable).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Activity{}, ErrDuplicateActivity
		}
		return Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	return a, nil
}

func (r *PGRepository) Update(ctx context.Context, a Activity) (Activity, error) {
	err := r.pool.QueryRow(ctx, `UPDATE task_activities SET task_date = $2, client = $3,
		project = $4, phase = $5, hours = $6, description = $7, billable = $8, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`,
		a.ID, a.TaskDate, a.Client, a.Project, a.Phase, a.Hours, a.Description, a.Billable).
		Scan(&a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Activity{}, shared.ErrNotFound
		}
		if db.IsUniqueViolation(err) {
			return Activity{}, ErrDuplicateActivity
		}
		return Activity{}, fmt.Errorf("update activity: %w", err)
	}
	return a, nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM task_activities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
