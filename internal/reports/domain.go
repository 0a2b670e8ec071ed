package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// Window bounds a reporting query.
type Window struct {
	From time.Time
	To   time.Time
}

// UserSummary aggregates one user's logged work over a window.
type UserSummary struct {
	Username      string          `json:"username"`
	TotalHours    decimal.Decimal `json:"totalHours"`
	BillableHours decimal.Decimal `json:"billableHours"`
	BillablePct   float64         `json:"billablePct"`
	DaysWorked    int             `json:"daysWorked"`
	EntryCount    int             `json:"entryCount"`
}

// ClientBillability aggregates hours for one client.
type ClientBillability struct {
	Client        string          `json:"client"`
	TotalHours    decimal.Decimal `json:"totalHours"`
	BillableHours decimal.Decimal `json:"billableHours"`
	BillablePct   float64         `json:"billablePct"`
}

// PeriodDelta compares a client's hours between the current window and the
// immediately preceding window of equal length.
type PeriodDelta struct {
	Client        string          `json:"client"`
	CurrentHours  decimal.Decimal `json:"currentHours"`
	PreviousHours decimal.Decimal `json:"previousHours"`
	DeltaHours    decimal.Decimal `json:"deltaHours"`
}

// StaleProject is a project with no activity for a configured number of days.
type StaleProject struct {
	Client       string    `json:"client"`
	Project      string    `json:"project"`
	LastActivity time.Time `json:"lastActivity"`
	IdleDays     int       `json:"idleDays"`
}

// DayOfWeekHours is the hour total for one weekday across the window.
type DayOfWeekHours struct {
	Weekday string          `json:"weekday"`
	Hours   decimal.Decimal `json:"hours"`
}

// RepetitionRate measures how much of a user's logged work repeats the same
// description. High values suggest copy-pasted entries.
type RepetitionRate struct {
	Username     string  `json:"username"`
	EntryCount   int     `json:"entryCount"`
	DistinctDesc int     `json:"distinctDescriptions"`
	Rate         float64 `json:"rate"`
}

// ExpenseClientTotal aggregates approved/reimbursed expense spend per client
// and currency.
type ExpenseClientTotal struct {
	Client   string          `json:"client"`
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
}

// Dashboard bundles the datasets rendered on the reporting landing page.
type Dashboard struct {
	Window       Window               `json:"-"`
	From         string               `json:"from"`
	To           string               `json:"to"`
	Users        []UserSummary        `json:"users"`
	Clients      []ClientBillability  `json:"clients"`
	Deltas       []PeriodDelta        `json:"periodDeltas"`
	DaysOfWeek   []DayOfWeekHours     `json:"daysOfWeek"`
	Repetition   []RepetitionRate     `json:"repetition"`
	ExpenseSpend []ExpenseClientTotal `json:"expenseSpend"`
}
