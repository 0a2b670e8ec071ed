package dropdowns

import "time"

// Categories recognized for dropdown configuration.
const (
	CategoryClient          = "client"
	CategoryProject         = "project"
	CategoryPhase           = "phase"
	CategoryExpenseCategory = "expense_category"
	CategoryCurrency        = "currency"
	CategoryPaymentMethod   = "payment_method"
)

// Value is one configurable option within a category.
type Value struct {
	ID        int64     `json:"id"`
	Category  string    `json:"category"`
	Value     string    `json:"value"`
	SortOrder int       `json:"sortOrder"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func knownCategory(c string) bool {
	switch c {
	case CategoryClient, CategoryProject, CategoryPhase, CategoryExpenseCategory, CategoryCurrency, CategoryPaymentMethod:
		return true
	}
	return false
}
