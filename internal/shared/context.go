package shared

import "context"

// Identity describes the authenticated caller extracted from a bearer token.
type Identity struct {
	Username    string
	Role        string
	TokenID     string
	Permissions []string
}

// IsAdmin reports whether the identity carries the admin role, which bypasses
// permission checks.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role == RoleAdmin
}

// HasPermission reports whether the identity holds the given permission string.
func (id *Identity) HasPermission(perm string) bool {
	if id == nil {
		return false
	}
	if id.IsAdmin() {
		return true
	}
	for _, p := range id.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
