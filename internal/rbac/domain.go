package rbac

import "time"

// Role represents a named bundle of permissions.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Permission represents an atomic capability identified by a colon-delimited
// string such as EXPENSE:APPROVE.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RoleWithPermissions is the detail view of a role.
type RoleWithPermissions struct {
	Role
	Permissions []Permission `json:"permissions"`
}
