package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ammonsd/activitytracking/internal/platform/httpx"
	"github.com/ammonsd/activitytracking/internal/shared"
)

// PermissionSource resolves the effective permission set for a user.
type PermissionSource interface {
	EffectivePermissionsForUser(ctx context.Context, username string) ([]string, error)
}

// Middleware validates bearer tokens and injects the caller identity.
type Middleware struct {
	Tokens      *TokenManager
	Revocations *RevocationStore
	Permissions PermissionSource
	Logger      *slog.Logger
}

type claimsContextKey struct{}

// ClaimsFromContext extracts validated token claims placed by Authenticate.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*Claims)
	return claims
}

// Authenticate rejects requests without a valid, unrevoked bearer token.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httpx.Fail(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			httpx.Fail(w, http.StatusUnauthorized, "authorization header must be Bearer {token}")
			return
		}

		claims, err := m.Tokens.Parse(parts[1])
		if err != nil {
			httpx.Fail(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		revoked, err := m.Revocations.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			m.Logger.Error("revocation check", slog.Any("error", err))
			httpx.Fail(w, http.StatusInternalServerError, "internal error")
			return
		}
		if revoked {
			httpx.Fail(w, http.StatusUnauthorized, "token revoked")
			return
		}

		perms, err := m.Permissions.EffectivePermissionsForUser(r.Context(), claims.Subject)
		if err != nil {
			m.Logger.Error("resolve permissions", slog.String("username", claims.Subject), slog.Any("error", err))
			httpx.Fail(w, http.StatusInternalServerError, "internal error")
			return
		}

		identity := &shared.Identity{
			Username:    claims.Subject,
			Role:        claims.Role,
			TokenID:     claims.ID,
			Permissions: perms,
		}
		ctx := shared.ContextWithIdentity(r.Context(), identity)
		ctx = context.WithValue(ctx, claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
