package taskactivity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Activity is a single logged unit of work: who did what, for which
// client/project/phase, on which day, for how many hours.
type Activity struct {
	ID          int64           `json:"id"`
	Username    string          `json:"username"`
	TaskDate    time.Time       `json:"taskDate"`
	Client      string          `json:"client"`
	Project     string          `json:"project"`
	Phase       string          `json:"phase"`
	Hours       decimal.Decimal `json:"hours"`
	Description string          `json:"description"`
	Billable    bool            `json:"billable"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ListRequest filters activity listings.
type ListRequest struct {
	Username string
	Client   string
	Project  string
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}

// WriteInput carries the caller-editable fields of an activity.
type WriteInput struct {
	TaskDate    time.Time
	Client      string
	Project     string
	Phase       string
	Hours       decimal.Decimal
	Description string
	Billable    bool
}
