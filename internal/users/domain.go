package users

import "time"

// User represents a user account.
type User struct {
	ID                int64      `json:"id"`
	Username          string     `json:"username"`
	DisplayName       string     `json:"displayName"`
	Email             string     `json:"email"`
	RoleID            *int64     `json:"roleId,omitempty"`
	Role              string     `json:"role"`
	PasswordExpiresAt *time.Time `json:"passwordExpiresAt,omitempty"`
	FailedLogins      int        `json:"failedLogins"`
	IsEnabled         bool       `json:"isEnabled"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// CreateUserInput for creating users.
type CreateUserInput struct {
	Username    string
	DisplayName string
	Email       string
	Password    string
	RoleID      *int64
}

// UpdateUserInput for updating profile fields.
type UpdateUserInput struct {
	DisplayName string
	Email       string
	RoleID      *int64
	IsEnabled   *bool
}

// ListUsersRequest filters user listings.
type ListUsersRequest struct {
	Role    string
	Enabled *bool
	Search  string
	Page    int
	PerPage int
}
