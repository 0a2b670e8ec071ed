package expenses

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ammonsd/activitytracking/internal/shared"
)

// Repository provides access to expenses.
type Repository interface {
	List(ctx context.Context, req ListRequest) ([]Expense, int, error)
	Get(ctx context.Context, id int64) (Expense, error)
	Create(ctx context.Context, e Expense) (Expense, error)
	Update(ctx context.Context, e Expense) (Expense, error)
	Delete(ctx context.Context, id int64) error
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const expenseColumns = `id, expense_date, client, project, expense_type, description,
	amount, currency, payment_method, status, owner_username, approver_username,
	approval_notes, reimbursed_amount, receipt_key, created_at, updated_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.ExpenseDate, &e.Client, &e.Project, &e.ExpenseType,
		&e.Description, &e.Amount, &e.Currency, &e.PaymentMethod, &e.Status,
		&e.OwnerUsername, &e.ApproverUsername, &e.ApprovalNotes, &e.ReimbursedAmount,
		&e.ReceiptKey, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *PGRepository) List(ctx context.Context, req ListRequest) ([]Expense, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1
	add := func(cond string, val any) {
		where = append(where, fmt.Sprintf(cond, idx))
		args = append(args, val)
		idx++
	}
	if req.Owner != "" {
		add("owner_username = $%d", req.Owner)
	}
	if req.Status != "" {
		add("status = $%d", string(req.Status))
	}
	if req.Client != "" {
		add("client = $%d", req.Client)
	}
	if req.From != nil {
		add("expense_date >= $%d", *req.From)
	}
	if req.To != nil {
		add("expense_date <= $%d", *req.To)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM expenses WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	sql := fmt.Sprintf(`SELECT %s FROM expenses WHERE %s
		ORDER BY expense_date DESC, id DESC LIMIT $%d OFFSET $%d`, expenseColumns, cond, idx, idx+1)
	args = append(args, req.PerPage, (req.Page-1)*req.PerPage)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]Expense, 0, req.PerPage)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Expense, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM expenses WHERE id = $1", expenseColumns), id)
	e, err := scanExpense(row)
	if err == pgx.ErrNoRows {
		return Expense{}, shared.ErrNotFound
	}
	return e, err
}

func (r *PGRepository) Create(ctx context.Context, e Expense) (Expense, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO expenses
		(expense_date, client, project, expense_type, description, amount, currency,
		 payment_method, status, owner_username)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		e.ExpenseDate, e.Client, e.Project, e.ExpenseType, e.Description, e.Amount,
		e.Currency, e.PaymentMethod, string(e.Status), e.OwnerUsername).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}

func (r *PGRepository) Update(ctx context.Context, e Expense) (Expense, error) {
	err := r.pool.QueryRow(ctx, `UPDATE expenses SET expense_date = $2, client = $3,
		project = $4, expense_type = $5, description = $6, amount = $7, currency = $8,
		payment_method = $9, status = $10, approver_username = $11, approval_notes = $12,
		reimbursed_amount = $13, receipt_key = $14, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`,
		e.ID, e.ExpenseDate, e.Client, e.Project, e.ExpenseType, e.Description, e.Amount,
		e.Currency, e.PaymentMethod, string(e.Status), e.ApproverUsername, e.ApprovalNotes,
		e.ReimbursedAmount, e.ReceiptKey).
		Scan(&e.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Expense{}, shared.ErrNotFound
		}
		return Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return e, nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
