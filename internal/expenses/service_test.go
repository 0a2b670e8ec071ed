package expenses

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ammonsd/activitytracking/internal/shared"
)

type memoryExpenseRepo struct {
	expenses map[int64]Expense
	nextID   int64
}

func newMemoryExpenseRepo() *memoryExpenseRepo {
	return &memoryExpenseRepo{expenses: make(map[int64]Expense)}
}

func (r *memoryExpenseRepo) List(ctx context.Context, req ListRequest) ([]Expense, int, error) {
	var out []Expense
	for _, e := range r.expenses {
		if req.Owner != "" && e.OwnerUsername != req.Owner {
			continue
		}
		if req.Status != "" && e.Status != req.Status {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (r *memoryExpenseRepo) Get(ctx context.Context, id int64) (Expense, error) {
	e, ok := r.expenses[id]
	if !ok {
		return Expense{}, shared.ErrNotFound
	}
	return e, nil
}

func (r *memoryExpenseRepo) Create(ctx context.Context, e Expense) (Expense, error) {
	r.nextID++
	e.ID = r.nextID
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	r.expenses[e.ID] = e
	return e, nil
}

func (r *memoryExpenseRepo) Update(ctx context.Context, e Expense) (Expense, error) {
	if _, ok := r.expenses[e.ID]; !ok {
		return Expense{}, shared.ErrNotFound
	}
	e.UpdatedAt = time.Now()
	r.expenses[e.ID] = e
	return e, nil
}

func (r *memoryExpenseRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.expenses[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.expenses, id)
	return nil
}

type memoryRecorder struct {
	logs []shared.ApprovalLog
}

func (r *memoryRecorder) Record(ctx context.Context, log shared.ApprovalLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func (r *memoryRecorder) List(ctx context.Context, module string, ref int64) ([]shared.ApprovalLog, error) {
	var out []shared.ApprovalLog
	for _, l := range r.logs {
		if l.Module == module && l.RefID == ref {
			out = append(out, l)
		}
	}
	return out, nil
}

type allowAllVocab struct{}

func (allowAllVocab) Validate(ctx context.Context, category, value string) (bool, error) {
	return value != "", nil
}

func newTestService() (*Service, *memoryExpenseRepo, *memoryRecorder) {
	repo := newMemoryExpenseRepo()
	recorder := &memoryRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, recorder, allowAllVocab{}, shared.NewAuditLogger(nil), logger)
	return svc, repo, recorder
}

func owner() *shared.Identity {
	return &shared.Identity{Username: "alice", Role: shared.RoleUser,
		Permissions: []string{shared.PermExpenseCreate, shared.PermExpenseRead, shared.PermExpenseUpdate, shared.PermExpenseDelete}}
}

func approver() *shared.Identity {
	return &shared.Identity{Username: "victor", Role: shared.RoleExpenseAdmin,
		Permissions: []string{shared.PermExpenseRead, shared.PermExpenseApprove}}
}

func validInput() WriteInput {
	return WriteInput{
		ExpenseDate:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Client:        "Initech",
		Project:       "Migration",
		ExpenseType:   "Travel",
		Description:   "Train to client site",
		Amount:        decimal.RequireFromString("54.20"),
		Currency:      "USD",
		PaymentMethod: "Corporate Card",
	}
}

func TestCreateStartsInDraft(t *testing.T) {
	svc, _, _ := newTestService()

	e, err := svc.Create(context.Background(), owner(), validInput())
	require.NoError(t, err)
	require.Equal(t, StatusDraft, e.Status)
	require.Equal(t, "alice", e.OwnerUsername)
}

func TestCreateValidatesPaymentMethod(t *testing.T) {
	svc, _, _ := newTestService()

	in := validInput()
	in.PaymentMethod = ""
	_, err := svc.Create(context.Background(), owner(), in)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubmitApproveReimburseFlow(t *testing.T) {
	svc, _, recorder := newTestService()
	ctx := context.Background()

	e, err := svc.Create(ctx, owner(), validInput())
	require.NoError(t, err)

	e, err = svc.Submit(ctx, owner(), e.ID, "")
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, e.Status)

	e, err = svc.Approve(ctx, approver(), e.ID, "looks fine")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, e.Status)
	require.NotNil(t, e.ApproverUsername)
	require.Equal(t, "victor", *e.ApproverUsername)

	e, err = svc.Reimburse(ctx, approver(), e.ID, nil, "")
	require.NoError(t, err)
	require.Equal(t, StatusReimbursed, e.Status)
	require.NotNil(t, e.ReimbursedAmount)
	require.True(t, e.ReimbursedAmount.Equal(decimal.RequireFromString("54.20")))

	history, err := recorder.List(ctx, approvalModule, e.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, shared.ApprovalSubmit, history[0].Action)
	require.Equal(t, shared.ApprovalApprove, history[1].Action)
	require.Equal(t, shared.ApprovalReimburse, history[2].Action)
}

func TestRejectRequiresNote(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	e, err := svc.Create(ctx, owner(), validInput())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, owner(), e.ID, "")
	require.NoError(t, err)

	_, err = svc.Reject(ctx, approver(), e.ID, "  ")
	require.ErrorIs(t, err, ErrNoteRequired)

	rejected, err := svc.Reject(ctx, approver(), e.ID, "missing receipt")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.Equal(t, "missing receipt", rejected.ApprovalNotes)
}

func TestResubmitAfterReject(t *testing.T) {
	svc, _, recorder := newTestService()
	ctx := context.Background()

	e, err := svc.Create(ctx, owner(), validInput())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, owner(), e.ID, "")
	require.NoError(t, err)
	_, err = svc.Reject(ctx, approver(), e.ID, "missing receipt")
	require.NoError(t, err)

	// Owner can edit while rejected, then resubmit.
	in := validInput()
	in.Description = "Train to client site, receipt attached"
	_, err = svc.Update(ctx, owner(), e.ID, in)
	require.NoError(t, err)

	// Resubmission passes through Resubmitted and lands back in Submitted.
	e, err = svc.Submit(ctx, owner(), e.ID, "")
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, e.Status)

	history, err := recorder.List(ctx, approvalModule, e.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	require.Equal(t, shared.ApprovalSubmit, history[0].Action)
	require.Equal(t, shared.ApprovalReject, history[1].Action)
	require.Equal(t, shared.ApprovalResubmit, history[2].Action)
	require.Equal(t, shared.ApprovalSubmit, history[3].Action)

	e, err = svc.Approve(ctx, approver(), e.ID, "")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, e.Status)
}

func TestResubmittedIsNotADecisionState(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	// The service never leaves an expense resting in Resubmitted, but a row
	// written by an older release could. Decisions still only apply to
	// Submitted expenses.
	repo.nextID++
	repo.expenses[repo.nextID] = Expense{
		ID:            repo.nextID,
		OwnerUsername: "alice",
		Status:        StatusResubmitted,
		Amount:        decimal.RequireFromString("54.20"),
	}

	_, err := svc.Approve(ctx, approver(), repo.nextID, "")
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Reject(ctx, approver(), repo.nextID, "note")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSelfApprovalForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	selfApprover := &shared.Identity{Username: "alice", Role: shared.RoleExpenseAdmin,
		Permissions: []string{shared.PermExpenseApprove}}

	e, err := svc.Create(ctx, owner(), validInput())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, owner(), e.ID, "")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, selfApprover, e.ID, "")
	require.ErrorIs(t, err, ErrSelfApproval)
	_, err = svc.Reject(ctx, selfApprover, e.ID, "note")
	require.ErrorIs(t, err, ErrSelfApproval)
}

func TestInvalidTransitions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	e, err := svc.Create(ctx, owner(), validInput())
	require.NoError(t, err)

	// Draft cannot be approved or reimbursed outright.
	_, err = svc.Approve(ctx, approver(), e.ID, "")
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Reimburse(ctx, approver(), e.ID, nil, "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Submitted cannot be submitted twice.
	_, err = svc.Submit(ctx, owner(), e.ID, "")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, owner(), e.ID, "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Submitted cannot be edited.
	_, err = svc.Update(ctx, owner(), e.ID, validInput())
	require.ErrorIs(t, err, ErrNotEditable)
}

func TestDeleteOnlyDraft(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	e, err := svc.Create(ctx, owner(), validInput())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, owner(), e.ID, "")
	require.NoError(t, err)

	err = svc.Delete(ctx, owner(), e.ID)
	require.ErrorIs(t, err, ErrDeleteNonDraft)

	draft, err := svc.Create(ctx, owner(), validInput())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, owner(), draft.ID))
}

func TestReimburseAmountBounds(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	e, err := svc.Create(ctx, owner(), validInput())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, owner(), e.ID, "")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, approver(), e.ID, "")
	require.NoError(t, err)

	tooMuch := decimal.RequireFromString("100.00")
	_, err = svc.Reimburse(ctx, approver(), e.ID, &tooMuch, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	partial := decimal.RequireFromString("50.00")
	reimbursed, err := svc.Reimburse(ctx, approver(), e.ID, &partial, "capped at policy limit")
	require.NoError(t, err)
	require.True(t, reimbursed.ReimbursedAmount.Equal(partial))
}

func TestListScopedToOwnerWithoutApprovePermission(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, owner(), validInput())
	require.NoError(t, err)
	bob := &shared.Identity{Username: "bob", Role: shared.RoleUser,
		Permissions: []string{shared.PermExpenseCreate, shared.PermExpenseRead}}
	_, err = svc.Create(ctx, bob, validInput())
	require.NoError(t, err)
	require.Len(t, repo.expenses, 2)

	mine, _, err := svc.List(ctx, bob, ListRequest{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "bob", mine[0].OwnerUsername)

	all, _, err := svc.List(ctx, approver(), ListRequest{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}
