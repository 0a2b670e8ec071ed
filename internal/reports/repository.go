package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs the reporting aggregations.
type Repository interface {
	UserSummaries(ctx context.Context, w Window) ([]UserSummary, error)
	ClientBillability(ctx context.Context, w Window) ([]ClientBillability, error)
	ClientHours(ctx context.Context, w Window) (map[string]decimal.Decimal, error)
	StaleProjects(ctx context.Context, idleAfter time.Duration, asOf time.Time) ([]StaleProject, error)
	HoursByWeekday(ctx context.Context, w Window) ([]DayOfWeekHours, error)
	RepetitionRates(ctx context.Context, w Window) ([]RepetitionRate, error)
	ExpenseTotalsByClient(ctx context.Context, w Window) ([]ExpenseClientTotal, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func pct(billable, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	f, _ := billable.Div(total).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	return f
}

func (r *PGRepository) UserSummaries(ctx context.Context, w Window) ([]UserSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT username,
			COALESCE(SUM(hours), 0),
			COALESCE(SUM(hours) FILTER (WHERE billable), 0),
			COUNT(DISTINCT task_date),
			COUNT(*)
		FROM task_activities
		WHERE task_date BETWEEN $1 AND $2
		GROUP BY username ORDER BY username`, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("user summaries: %w", err)
	}
	defer rows.Close()

	var out []UserSummary
	for rows.Next() {
		var s UserSummary
		if err := rows.Scan(&s.Username, &s.TotalHours, &s.BillableHours, &s.DaysWorked, &s.EntryCount); err != nil {
			return nil, fmt.Errorf("scan user summary: %w", err)
		}
		s.BillablePct = pct(s.BillableHours, s.TotalHours)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepository) ClientBillability(ctx context.Context, w Window) ([]ClientBillability, error) {
	rows, err := r.pool.Query(ctx, `SELECT client,
			COALESCE(SUM(hours), 0),
			COALESCE(SUM(hours) FILTER (WHERE billable), 0)
		FROM task_activities
		WHERE task_date BETWEEN $1 AND $2
		GROUP BY client ORDER BY 2 DESC`, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("client billability: %w", err)
	}
	defer rows.Close()

	var out []ClientBillability
	for rows.Next() {
		var c ClientBillability
		if err := rows.Scan(&c.Client, &c.TotalHours, &c.BillableHours); err != nil {
			return nil, fmt.Errorf("scan client billability: %w", err)
		}
		c.BillablePct = pct(c.BillableHours, c.TotalHours)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepository) ClientHours(ctx context.Context, w Window) (map[string]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT client, COALESCE(SUM(hours), 0)
		FROM task_activities WHERE task_date BETWEEN $1 AND $2
		GROUP BY client`, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("client hours: %w", err)
	}
	defer rows.Close()

	out := map[string]decimal.Decimal{}
	for rows.Next() {
		var client string
		var hours decimal.Decimal
		if err := rows.Scan(&client, &hours); err != nil {
			return nil, fmt.Errorf("scan client hours: %w", err)
		}
		out[client] = hours
	}
	return out, rows.Err()
}

func (r *PGRepository) StaleProjects(ctx context.Context, idleAfter time.Duration, asOf time.Time) ([]StaleProject, error) {
	cutoff := asOf.Add(-idleAfter)
	rows, err := r.pool.Query(ctx, `SELECT client, project, MAX(task_date)
		FROM task_activities
		GROUP BY client, project
		HAVING MAX(task_date) < $1
		ORDER BY MAX(task_date)`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("stale projects: %w", err)
	}
	defer rows.Close()

	var out []StaleProject
	for rows.Next() {
		var p StaleProject
		if err := rows.Scan(&p.Client, &p.Project, &p.LastActivity); err != nil {
			return nil, fmt.Errorf("scan stale project: %w", err)
		}
		p.IdleDays = int(asOf.Sub(p.LastActivity).Hours() / 24)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepository) HoursByWeekday(ctx context.Context, w Window) ([]DayOfWeekHours, error) {
	rows, err := r.pool.Query(ctx, `SELECT EXTRACT(ISODOW FROM task_date)::int,
			COALESCE(SUM(hours), 0)
		FROM task_activities WHERE task_date BETWEEN $1 AND $2
		GROUP BY 1 ORDER BY 1`, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("hours by weekday: %w", err)
	}
	defer rows.Close()

	names := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	var out []DayOfWeekHours
	for rows.Next() {
		var dow int
		var hours decimal.Decimal
		if err := rows.Scan(&dow, &hours); err != nil {
			return nil, fmt.Errorf("scan weekday hours: %w", err)
		}
		if dow < 1 || dow > 7 {
			continue
		}
		out = append(out, DayOfWeekHours{Weekday: names[dow-1], Hours: hours})
	}
	return out, rows.Err()
}

func (r *PGRepository) RepetitionRates(ctx context.Context, w Window) ([]RepetitionRate, error) {
	rows, err := r.pool.Query(ctx, `SELECT username, COUNT(*),
			COUNT(DISTINCT LOWER(TRIM(description)))
		FROM task_activities WHERE task_date BETWEEN $1 AND $2
		GROUP BY username ORDER BY username`, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("repetition rates: %w", err)
	}
	defer rows.Close()

	var out []RepetitionRate
	for rows.Next() {
		var rr RepetitionRate
		if err := rows.Scan(&rr.Username, &rr.EntryCount, &rr.DistinctDesc); err != nil {
			return nil, fmt.Errorf("scan repetition rate: %w", err)
		}
		if rr.EntryCount > 0 {
			rr.Rate = float64(rr.EntryCount-rr.DistinctDesc) / float64(rr.EntryCount)
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

func (r *PGRepository) ExpenseTotalsByClient(ctx context.Context, w Window) ([]ExpenseClientTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT client, currency, COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE expense_date BETWEEN $1 AND $2 AND status IN ('Approved', 'Reimbursed')
		GROUP BY client, currency ORDER BY client, currency`, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("expense totals: %w", err)
	}
	defer rows.Close()

	var out []ExpenseClientTotal
	for rows.Next() {
		var t ExpenseClientTotal
		if err := rows.Scan(&t.Client, &t.Currency, &t.Total); err != nil {
			return nil, fmt.Errorf("scan expense total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
