package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammonsd/activitytracking/internal/dropdowns"
	"github.com/ammonsd/activitytracking/internal/expenses"
	"github.com/ammonsd/activitytracking/internal/shared"
	"github.com/ammonsd/activitytracking/internal/taskactivity"
)

// Fixed header rows for the two import templates.
var (
	taskHeaders    = []string{"date", "client", "project", "phase", "hours", "description", "username"}
	expenseHeaders = []string{"date", "client", "project", "expense_type", "description", "amount", "currency", "payment_method", "username"}
)

var ErrBadHeader = errors.New("csv header does not match the import template")

// RowError describes a single rejected row. Row numbers are 1-based and
// count the header, matching what a user sees in a spreadsheet.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Summary is the outcome of a best-effort import run.
type Summary struct {
	Total     int        `json:"total"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Errors    []RowError `json:"errors"`
}

// UserDirectory checks that an imported row's username refers to a real account.
type UserDirectory interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// Vocabulary validates values against the configured dropdown lists.
type Vocabulary interface {
	Validate(ctx context.Context, category, value string) (bool, error)
}

// Importer loads task activities and expenses from CSV files. Each row is
// handled independently: a bad row is reported and skipped, the rest of the
// file still loads.
type Importer struct {
	tasks    taskactivity.Repository
	expenses expenses.Repository
	users    UserDirectory
	vocab    Vocabulary
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

func NewImporter(tasks taskactivity.Repository, exp expenses.Repository, users UserDirectory,
	vocab Vocabulary, audit *shared.AuditLogger, logger *slog.Logger) *Importer {
	return &Importer{tasks: tasks, expenses: exp, users: users, vocab: vocab, audit: audit, logger: logger}
}

func readHeader(reader *csv.Reader, want []string) error {
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if len(header) != len(want) {
		return fmt.Errorf("%w: expected %d columns, got %d", ErrBadHeader, len(want), len(header))
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(col), want[i]) {
			return fmt.Errorf("%w: column %d must be %q", ErrBadHeader, i+1, want[i])
		}
	}
	return nil
}

func (im *Importer) checkVocab(ctx context.Context, category, value string) error {
	ok, err := im.vocab.Validate(ctx, category, value)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%q is not a configured %s", value, category)
	}
	return nil
}

func (im *Importer) checkUser(ctx context.Context, username string) error {
	ok, err := im.users.Exists(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unknown username %q", username)
	}
	return nil
}

// ImportTasks loads the task activity template.
func (im *Importer) ImportTasks(ctx context.Context, actor string, src io.Reader) (Summary, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true
	if err := readHeader(reader, taskHeaders); err != nil {
		return Summary{}, err
	}

	var sum Summary
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			sum.Total++
			sum.Failed++
			sum.Errors = append(sum.Errors, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		sum.Total++
		if err := im.importTaskRow(ctx, record); err != nil {
			sum.Failed++
			sum.Errors = append(sum.Errors, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		sum.Succeeded++
	}

	im.audit.Record(ctx, shared.AuditLog{
		Actor:  actor,
		Action: "import.tasks",
		Entity: "csv_import", EntityID: "tasks",
		Meta:   map[string]any{"total": sum.Total, "succeeded": sum.Succeeded, "failed": sum.Failed},
	})
	return sum, nil
}

func (im *Importer) importTaskRow(ctx context.Context, record []string) error {
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	date, err := time.Parse(time.DateOnly, record[0])
	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD, got %q", record[0])
	}
	hours, err := decimal.NewFromString(record[4])
	if err != nil {
		return fmt.Errorf("hours must be a decimal number, got %q", record[4])
	}
	if !hours.IsPositive() || hours.GreaterThan(decimal.NewFromInt(24)) {
		return errors.New("hours must be greater than 0 and at most 24")
	}
	if record[5] == "" {
		return errors.New("description is required")
	}
	if err := im.checkVocab(ctx, dropdowns.CategoryClient, record[1]); err != nil {
		return err
	}
	if err := im.checkVocab(ctx, dropdowns.CategoryProject, record[2]); err != nil {
		return err
	}
	if err := im.checkVocab(ctx, dropdowns.CategoryPhase, record[3]); err != nil {
		return err
	}
	username := strings.ToLower(record[6])
	if err := im.checkUser(ctx, username); err != nil {
		return err
	}
	_, err = im.tasks.Create(ctx, taskactivity.Activity{
		Username:    username,
		TaskDate:    date,
		Client:      record[1],
		Project:     record[2],
		Phase:       record[3],
		Hours:       hours,
		Description: record[5],
		Billable:    true,
	})
	if errors.Is(err, taskactivity.ErrDuplicateActivity) {
		return errors.New("duplicate of an existing activity")
	}
	return err
}

// ImportExpenses loads the expense template. Imported expenses start in Draft.
func (im *Importer) ImportExpenses(ctx context.Context, actor string, src io.Reader) (Summary, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true
	if err := readHeader(reader, expenseHeaders); err != nil {
		return Summary{}, err
	}

	var sum Summary
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			sum.Total++
			sum.Failed++
			sum.Errors = append(sum.Errors, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		sum.Total++
		if err := im.importExpenseRow(ctx, record); err != nil {
			sum.Failed++
			sum.Errors = append(sum.Errors, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		sum.Succeeded++
	}

	im.audit.Record(ctx, shared.AuditLog{
		Actor:  actor,
		Action: "import.expenses",
		Entity: "csv_import", EntityID: "expenses",
		Meta:   map[string]any{"total": sum.Total, "succeeded": sum.Succeeded, "failed": sum.Failed},
	})
	return sum, nil
}

func (im *Importer) importExpenseRow(ctx context.Context, record []string) error {
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	date, err := time.Parse(time.DateOnly, record[0])
	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD, got %q", record[0])
	}
	amount, err := decimal.NewFromString(record[5])
	if err != nil {
		return fmt.Errorf("amount must be a decimal number, got %q", record[5])
	}
	if !amount.IsPositive() {
		return errors.New("amount must be greater than 0")
	}
	if record[4] == "" {
		return errors.New("description is required")
	}
	if err := im.checkVocab(ctx, dropdowns.CategoryClient, record[1]); err != nil {
		return err
	}
	if err := im.checkVocab(ctx, dropdowns.CategoryProject, record[2]); err != nil {
		return err
	}
	if err := im.checkVocab(ctx, dropdowns.CategoryExpenseCategory, record[3]); err != nil {
		return err
	}
	if err := im.checkVocab(ctx, dropdowns.CategoryCurrency, record[6]); err != nil {
		return err
	}
	if err := im.checkVocab(ctx, dropdowns.CategoryPaymentMethod, record[7]); err != nil {
		return err
	}
	username := strings.ToLower(record[8])
	if err := im.checkUser(ctx, username); err != nil {
		return err
	}
	_, err = im.expenses.Create(ctx, expenses.Expense{
		ExpenseDate:   date,
		Client:        record[1],
		Project:       record[2],
		ExpenseType:   record[3],
		Description:   record[4],
		Amount:        amount,
		Currency:      record[6],
		PaymentMethod: record[7],
		Status:        expenses.StatusDraft,
		OwnerUsername: username,
	})
	return err
}
