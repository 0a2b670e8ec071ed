package rbac

import (
	"log/slog"
	"net/http"

	"github.com/ammonsd/activitytracking/internal/platform/httpx"
	"github.com/ammonsd/activitytracking/internal/shared"
)

// Middleware wires permission gates for HTTP handlers. Permission sets are
// resolved at authentication time, so the gate itself never touches storage.
type Middleware struct {
	Logger *slog.Logger
}

// Require ensures the caller holds the given permission. The ADMIN role
// bypasses the check.
func (m Middleware) Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if identity == nil {
				httpx.Fail(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !identity.HasPermission(perm) {
				if m.Logger != nil {
					m.Logger.Warn("permission denied",
						slog.String("username", identity.Username),
						slog.String("permission", perm),
						slog.String("path", r.URL.Path))
				}
				httpx.Fail(w, http.StatusForbidden, "missing permission "+perm)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin restricts a route to the ADMIN role.
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if identity == nil {
				httpx.Fail(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !identity.IsAdmin() {
				httpx.Fail(w, http.StatusForbidden, "admin role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the caller holds at least one of the given permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if identity == nil {
				httpx.Fail(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if len(perms) == 0 || identity.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}
			for _, p := range perms {
				if identity.HasPermission(p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Fail(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}
