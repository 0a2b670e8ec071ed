package csvimport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ammonsd/activitytracking/internal/expenses"
	"github.com/ammonsd/activitytracking/internal/shared"
	"github.com/ammonsd/activitytracking/internal/taskactivity"
)

type fakeTaskRepo struct {
	created []taskactivity.Activity
}

func (r *fakeTaskRepo) List(ctx context.Context, req taskactivity.ListRequest) ([]taskactivity.Activity, int, error) {
	return nil, 0, nil
}

func (r *fakeTaskRepo) Get(ctx context.Context, id int64) (taskactivity.Activity, error) {
	return taskactivity.Activity{}, shared.ErrNotFound
}

func (r *fakeTaskRepo) Create(ctx context.Context, a taskactivity.Activity) (taskactivity.Activity, error) {
	for _, other := range r.created {
		if other.Username == a.Username && other.TaskDate.Equal(a.TaskDate) &&
			other.Client == a.Client && other.Project == a.Project &&
			other.Phase == a.Phase && other.Description == a.Description {
			return taskactivity.Activity{}, taskactivity.ErrDuplicateActivity
		}
	}
	a.ID = int64(len(r.created) + 1)
	r.created = append(r.created, a)
	return a, nil
}

func (r *fakeTaskRepo) Update(ctx context.Context, a taskactivity.Activity) (taskactivity.Activity, error) {
	return a, nil
}

func (r *fakeTaskRepo) Delete(ctx context.Context, id int64) error { return nil }

type fakeExpenseRepo struct {
	created []expenses.Expense
}

func (r *fakeExpenseRepo) List(ctx context.Context, req expenses.ListRequest) ([]expenses.Expense, int, error) {
	return nil, 0, nil
}

func (r *fakeExpenseRepo) Get(ctx context.Context, id int64) (expenses.Expense, error) {
	return expenses.Expense{}, shared.ErrNotFound
}

func (r *fakeExpenseRepo) Create(ctx context.Context, e expenses.Expense) (expenses.Expense, error) {
	e.ID = int64(len(r.created) + 1)
	r.created = append(r.created, e)
	return e, nil
}

func (r *fakeExpenseRepo) Update(ctx context.Context, e expenses.Expense) (expenses.Expense, error) {
	return e, nil
}

func (r *fakeExpenseRepo) Delete(ctx context.Context, id int64) error { return nil }

type fakeDirectory struct {
	known map[string]bool
}

func (d fakeDirectory) Exists(ctx context.Context, username string) (bool, error) {
	return d.known[username], nil
}

type fakeVocab struct{}

func (fakeVocab) Validate(ctx context.Context, category, value string) (bool, error) {
	return value != "" && value != "Unknown", nil
}

func newTestImporter() (*Importer, *fakeTaskRepo, *fakeExpenseRepo) {
	tasks := &fakeTaskRepo{}
	exp := &fakeExpenseRepo{}
	dir := fakeDirectory{known: map[string]bool{"alice": true, "bob": true}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	im := NewImporter(tasks, exp, dir, fakeVocab{}, shared.NewAuditLogger(nil), logger)
	return im, tasks, exp
}

func TestImportTasksBestEffort(t *testing.T) {
	im, tasks, _ := newTestImporter()

	src := strings.NewReader(strings.Join([]string{
		"date,client,project,phase,hours,description,username",
		"2026-03-02,Initech,Migration,Build,7.5,Schema conversion,alice",
		"2026-03-03,Initech,Migration,Build,8,Data load,alice",
		"bad-date,Initech,Migration,Build,8,Data load,alice",
		"2026-03-04,Initech,Migration,Build,25,Too many hours,alice",
		"2026-03-05,Initech,Migration,Build,6,Review,carol",
		"2026-03-06,Unknown,Migration,Build,6,Bad client,bob",
		"2026-03-09,Initech,Migration,Test,4,Smoke tests,bob",
	}, "\n"))

	sum, err := im.ImportTasks(context.Background(), "admin", src)
	require.NoError(t, err)
	require.Equal(t, 7, sum.Total)
	require.Equal(t, 3, sum.Succeeded)
	require.Equal(t, 4, sum.Failed)
	require.Len(t, tasks.created, 3)

	// Row numbers count the header so users can find them in the file.
	require.Equal(t, 4, sum.Errors[0].Row)
	require.Contains(t, sum.Errors[0].Message, "YYYY-MM-DD")
	require.Equal(t, 5, sum.Errors[1].Row)
	require.Contains(t, sum.Errors[1].Message, "at most 24")
	require.Contains(t, sum.Errors[2].Message, "unknown username")
	require.Contains(t, sum.Errors[3].Message, "not a configured")
}

func TestImportTasksOneBadRowOutOfTen(t *testing.T) {
	im, tasks, _ := newTestImporter()

	rows := []string{"date,client,project,phase,hours,description,username"}
	for day := 2; day <= 10; day++ {
		rows = append(rows, fmt.Sprintf("2026-03-%02d,Initech,Migration,Build,8,Daily work %d,alice", day, day))
	}
	rows = append(rows, "2026-03-11,Initech,Migration,Build,not-a-number,Daily work,alice")

	sum, err := im.ImportTasks(context.Background(), "admin", strings.NewReader(strings.Join(rows, "\n")))
	require.NoError(t, err)
	require.Equal(t, 10, sum.Total)
	require.Equal(t, 9, sum.Succeeded)
	require.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Errors, 1)
	require.Equal(t, 11, sum.Errors[0].Row)
	require.Len(t, tasks.created, 9)
}

func TestImportTasksRejectsBadHeader(t *testing.T) {
	im, _, _ := newTestImporter()

	src := strings.NewReader("date,client,project,hours,description,username\n")
	_, err := im.ImportTasks(context.Background(), "admin", src)
	require.ErrorIs(t, err, ErrBadHeader)
}

func TestImportTasksSkipsDuplicates(t *testing.T) {
	im, tasks, _ := newTestImporter()

	src := strings.NewReader(strings.Join([]string{
		"date,client,project,phase,hours,description,username",
		"2026-03-02,Initech,Migration,Build,7.5,Schema conversion,alice",
		"2026-03-02,Initech,Migration,Build,7.5,Schema conversion,alice",
	}, "\n"))

	sum, err := im.ImportTasks(context.Background(), "admin", src)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Succeeded)
	require.Equal(t, 1, sum.Failed)
	require.Contains(t, sum.Errors[0].Message, "duplicate")
	require.Len(t, tasks.created, 1)
}

func TestImportExpensesStartInDraft(t *testing.T) {
	im, _, exp := newTestImporter()

	src := strings.NewReader(strings.Join([]string{
		"date,client,project,expense_type,description,amount,currency,payment_method,username",
		"2026-03-02,Initech,Migration,Travel,Train ticket,54.20,USD,Corporate Card,alice",
		"2026-03-03,Initech,Migration,Meals,Client lunch,-5,USD,Personal,alice",
		"2026-03-04,Initech,Migration,Travel,Hotel,210.00,USD,Corporate Card,bob",
	}, "\n"))

	sum, err := im.ImportExpenses(context.Background(), "admin", src)
	require.NoError(t, err)
	require.Equal(t, 2, sum.Succeeded)
	require.Equal(t, 1, sum.Failed)
	require.Len(t, exp.created, 2)
	for _, e := range exp.created {
		require.Equal(t, expenses.StatusDraft, e.Status)
		require.NotEmpty(t, e.PaymentMethod)
	}
}

func TestImportExpensesChecksPaymentMethod(t *testing.T) {
	im, _, exp := newTestImporter()

	src := strings.NewReader(strings.Join([]string{
		"date,client,project,expense_type,description,amount,currency,payment_method,username",
		"2026-03-02,Initech,Migration,Travel,Train ticket,54.20,USD,Unknown,alice",
	}, "\n"))

	sum, err := im.ImportExpenses(context.Background(), "admin", src)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Failed)
	require.Contains(t, sum.Errors[0].Message, "payment_method")
	require.Empty(t, exp.created)
}
