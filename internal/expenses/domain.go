package expenses

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an expense.
type Status string

const (
	StatusDraft       Status = "Draft"
	StatusSubmitted   Status = "Submitted"
	StatusApproved    Status = "Approved"
	StatusRejected    Status = "Rejected"
	StatusResubmitted Status = "Resubmitted"
	StatusReimbursed  Status = "Reimbursed"
)

// editable reports whether the owner may still change the expense body.
func (s Status) editable() bool {
	return s == StatusDraft || s == StatusRejected
}

// awaitingDecision reports whether the expense sits in an approver's queue.
// Resubmitted is a pass-through on the way back to Submitted, never a resting
// state, so only Submitted qualifies.
func (s Status) awaitingDecision() bool {
	return s == StatusSubmitted
}

// Expense is a reimbursable cost incurred by a user.
type Expense struct {
	ID                int64            `json:"id"`
	ExpenseDate       time.Time        `json:"expenseDate"`
	Client            string           `json:"client"`
	Project           string           `json:"project"`
	ExpenseType       string           `json:"expenseType"`
	Description       string           `json:"description"`
	Amount            decimal.Decimal  `json:"amount"`
	Currency          string           `json:"currency"`
	PaymentMethod     string           `json:"paymentMethod"`
	Status            Status           `json:"status"`
	OwnerUsername     string           `json:"ownerUsername"`
	ApproverUsername  *string          `json:"approverUsername,omitempty"`
	ApprovalNotes     string           `json:"approvalNotes"`
	ReimbursedAmount  *decimal.Decimal `json:"reimbursedAmount,omitempty"`
	ReceiptKey        *string          `json:"receiptKey,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// WriteInput carries the owner-editable fields of an expense.
type WriteInput struct {
	ExpenseDate   time.Time
	Client        string
	Project       string
	ExpenseType   string
	Description   string
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
}

// ListRequest filters expense listings.
type ListRequest struct {
	Owner   string
	Status  Status
	Client  string
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}
