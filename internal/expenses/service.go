package expenses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ammonsd/activitytracking/internal/dropdowns"
	"github.com/ammonsd/activitytracking/internal/shared"
)

const approvalModule = "expenses"

var (
	ErrInvalidInput      = errors.New("invalid expense")
	ErrNotOwner          = errors.New("expense belongs to another user")
	ErrNotEditable       = errors.New("expense can only be edited in Draft or Rejected status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrSelfApproval      = errors.New("approvers cannot decide their own expenses")
	ErrNoteRequired      = errors.New("a note is required when rejecting")
	ErrDeleteNonDraft    = errors.New("only Draft expenses can be deleted")
)

// Recorder appends entries to the approval history.
type Recorder interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module string, ref int64) ([]shared.ApprovalLog, error)
}

// Vocabulary validates values against the configured dropdown lists.
type Vocabulary interface {
	Validate(ctx context.Context, category, value string) (bool, error)
}

// Service manages the expense lifecycle.
type Service struct {
	repo      Repository
	approvals Recorder
	vocab     Vocabulary
	audit     *shared.AuditLogger
	logger    *slog.Logger
}

func NewService(repo Repository, approvals Recorder, vocab Vocabulary, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, approvals: approvals, vocab: vocab, audit: audit, logger: logger}
}

func (s *Service) validateInput(ctx context.Context, in WriteInput) error {
	if in.ExpenseDate.IsZero() {
		return fmt.Errorf("%w: expense date is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0", ErrInvalidInput)
	}
	for _, check := range []struct{ category, value string }{
		{dropdowns.CategoryClient, in.Client},
		{dropdowns.CategoryProject, in.Project},
		{dropdowns.CategoryExpenseCategory, in.ExpenseType},
		{dropdowns.CategoryCurrency, in.Currency},
		{dropdowns.CategoryPaymentMethod, in.PaymentMethod},
	} {
		ok, err := s.vocab.Validate(ctx, check.category, check.value)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %q is not a configured %s", ErrInvalidInput, check.value, check.category)
		}
	}
	return nil
}

// List returns expenses visible to identity. Users without EXPENSE:APPROVE
// only see their own expenses.
func (s *Service) List(ctx context.Context, identity *shared.Identity, req ListRequest) ([]Expense, shared.Pagination, error) {
	if !identity.HasPermission(shared.PermExpenseApprove) {
		req.Owner = identity.Username
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 || req.PerPage > 200 {
		req.PerPage = 50
	}
	list, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(req.Page, req.PerPage, total), nil
}

func (s *Service) Get(ctx context.Context, identity *shared.Identity, id int64) (Expense, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if e.OwnerUsername != identity.Username && !identity.HasPermission(shared.PermExpenseApprove) {
		return Expense{}, ErrNotOwner
	}
	return e, nil
}

// History returns the approval trail for an expense.
func (s *Service) History(ctx context.Context, identity *shared.Identity, id int64) ([]shared.ApprovalLog, error) {
	if _, err := s.Get(ctx, identity, id); err != nil {
		return nil, err
	}
	return s.approvals.List(ctx, approvalModule, id)
}

// Create stores a new expense in Draft.
func (s *Service) Create(ctx context.Context, identity *shared.Identity, in WriteInput) (Expense, error) {
	if err := s.validateInput(ctx, in); err != nil {
		return Expense{}, err
	}
	created, err := s.repo.Create(ctx, Expense{
		ExpenseDate:   in.ExpenseDate,
		Client:        in.Client,
		Project:       in.Project,
		ExpenseType:   in.ExpenseType,
		Description:   strings.TrimSpace(in.Description),
		Amount:        in.Amount,
		Currency:      in.Currency,
		PaymentMethod: in.PaymentMethod,
		Status:        StatusDraft,
		OwnerUsername: identity.Username,
	})
	if err != nil {
		return Expense{}, err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    identity.Username,
		Action:   "expense.create",
		Entity:   "expense",
		EntityID: fmt.Sprint(created.ID),
		Meta:     map[string]any{"amount": created.Amount.String(), "currency": created.Currency},
	})
	return created, nil
}

// Update changes the body of a Draft or Rejected expense owned by identity.
func (s *Service) Update(ctx context.Context, identity *shared.Identity, id int64, in WriteInput) (Expense, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if e.OwnerUsername != identity.Username && !identity.IsAdmin() {
		return Expense{}, ErrNotOwner
	}
	if !e.Status.editable() {
		return Expense{}, ErrNotEditable
	}
	if err := s.validateInput(ctx, in); err != nil {
		return Expense{}, err
	}
	e.ExpenseDate = in.ExpenseDate
	e.Client = in.Client
	e.Project = in.Project
	e.ExpenseType = in.ExpenseType
	e.Description = strings.TrimSpace(in.Description)
	e.Amount = in.Amount
	e.Currency = in.Currency
	e.PaymentMethod = in.PaymentMethod

	updated, err := s.repo.Update(ctx, e)
	if err != nil {
		return Expense{}, err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    identity.Username,
		Action:   "expense.update",
		Entity:   "expense",
		EntityID: fmt.Sprint(id),
	})
	return updated, nil
}

// Submit moves a Draft expense into the approval queue. A Rejected expense
// travels Rejected -> Resubmitted -> Submitted in one call; the history keeps
// both movements.
func (s *Service) Submit(ctx context.Context, identity *shared.Identity, id int64, note string) (Expense, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if e.OwnerUsername != identity.Username {
		return Expense{}, ErrNotOwner
	}

	switch e.Status {
	case StatusDraft:
		return s.transition(ctx, identity, e, StatusSubmitted, shared.ApprovalSubmit, note)
	case StatusRejected:
		s.record(ctx, identity, e.ID, shared.ApprovalResubmit, note, e.Status, StatusResubmitted)
		e.Status = StatusResubmitted
		return s.transition(ctx, identity, e, StatusSubmitted, shared.ApprovalSubmit, note)
	default:
		return Expense{}, fmt.Errorf("%w: cannot submit from %s", ErrInvalidTransition, e.Status)
	}
}

// Approve accepts a Submitted expense.
func (s *Service) Approve(ctx context.Context, identity *shared.Identity, id int64, note string) (Expense, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if e.OwnerUsername == identity.Username {
		return Expense{}, ErrSelfApproval
	}
	if !e.Status.awaitingDecision() {
		return Expense{}, fmt.Errorf("%w: cannot approve from %s", ErrInvalidTransition, e.Status)
	}
	approver := identity.Username
	e.ApproverUsername = &approver
	e.ApprovalNotes = note
	return s.transition(ctx, identity, e, StatusApproved, shared.ApprovalApprove, note)
}

// Reject sends a Submitted expense back to its owner. A note explaining the
// decision is mandatory.
func (s *Service) Reject(ctx context.Context, identity *shared.Identity, id int64, note string) (Expense, error) {
	if strings.TrimSpace(note) == "" {
		return Expense{}, ErrNoteRequired
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if e.OwnerUsername == identity.Username {
		return Expense{}, ErrSelfApproval
	}
	if !e.Status.awaitingDecision() {
		return Expense{}, fmt.Errorf("%w: cannot reject from %s", ErrInvalidTransition, e.Status)
	}
	approver := identity.Username
	e.ApproverUsername = &approver
	e.ApprovalNotes = note
	return s.transition(ctx, identity, e, StatusRejected, shared.ApprovalReject, note)
}

// Reimburse marks an Approved expense as paid out.
func (s *Service) Reimburse(ctx context.Context, identity *shared.Identity, id int64, amount *decimal.Decimal, note string) (Expense, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if e.Status != StatusApproved {
		return Expense{}, fmt.Errorf("%w: cannot reimburse from %s", ErrInvalidTransition, e.Status)
	}
	paid := e.Amount
	if amount != nil {
		if !amount.IsPositive() || amount.GreaterThan(e.Amount) {
			return Expense{}, fmt.Errorf("%w: reimbursed amount must be positive and at most the expense amount", ErrInvalidInput)
		}
		paid = *amount
	}
	e.ReimbursedAmount = &paid
	return s.transition(ctx, identity, e, StatusReimbursed, shared.ApprovalReimburse, note)
}

func (s *Service) transition(ctx context.Context, identity *shared.Identity, e Expense, next Status, action shared.ApprovalAction, note string) (Expense, error) {
	prev := e.Status
	e.Status = next
	updated, err := s.repo.Update(ctx, e)
	if err != nil {
		return Expense{}, err
	}
	s.record(ctx, identity, e.ID, action, note, prev, next)
	return updated, nil
}

// record appends one status movement to the approval history and audit trail.
func (s *Service) record(ctx context.Context, identity *shared.Identity, id int64, action shared.ApprovalAction, note string, from, to Status) {
	if err := s.approvals.Record(ctx, shared.ApprovalLog{
		Module: approvalModule,
		RefID:  id,
		Actor:  identity.Username,
		Action: action,
		Note:   note,
	}); err != nil {
		s.logger.Error("record approval failed", "expense", id, "action", action, "error", err)
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    identity.Username,
		Action:   "expense." + strings.ToLower(string(action)),
		Entity:   "expense",
		EntityID: fmt.Sprint(id),
		Meta:     map[string]any{"from": string(from), "to": string(to)},
	})
}

// Delete removes a Draft expense owned by identity.
func (s *Service) Delete(ctx context.Context, identity *shared.Identity, id int64) error {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if e.OwnerUsername != identity.Username && !identity.IsAdmin() {
		return ErrNotOwner
	}
	if e.Status != StatusDraft {
		return ErrDeleteNonDraft
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    identity.Username,
		Action:   "expense.delete",
		Entity:   "expense",
		EntityID: fmt.Sprint(id),
	})
	return nil
}

// AttachReceipt links a stored receipt object to a Draft or Rejected expense.
func (s *Service) AttachReceipt(ctx context.Context, identity *shared.Identity, id int64, key string) (Expense, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if e.OwnerUsername != identity.Username && !identity.IsAdmin() {
		return Expense{}, ErrNotOwner
	}
	if !e.Status.editable() {
		return Expense{}, ErrNotEditable
	}
	e.ReceiptKey = &key
	updated, err := s.repo.Update(ctx, e)
	if err != nil {
		return Expense{}, err
	}
	s.audit.Record(ctx, shared.AuditLog{
		Actor:    identity.Username,
		Action:   "expense.receipt_attach",
		Entity:   "expense",
		EntityID: fmt.Sprint(id),
	})
	return updated, nil
}
