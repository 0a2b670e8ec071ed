package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ammonsd/activitytracking/internal/shared"
)

func gatedRequest(t *testing.T, gate func(http.Handler) http.Handler, identity *shared.Identity) *httptest.ResponseRecorder {
	t.Helper()
	handler := gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if identity != nil {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), identity))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireUnauthenticated(t *testing.T) {
	m := Middleware{}
	rec := gatedRequest(t, m.Require(shared.PermTaskRead), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireMissingPermission(t *testing.T) {
	m := Middleware{}
	id := &shared.Identity{Username: "alice", Role: shared.RoleUser, Permissions: []string{shared.PermTaskRead}}

	rec := gatedRequest(t, m.Require(shared.PermExpenseApprove), id)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), shared.PermExpenseApprove)
}

func TestRequireGrantedPermission(t *testing.T) {
	m := Middleware{}
	id := &shared.Identity{Username: "alice", Role: shared.RoleUser, Permissions: []string{shared.PermTaskRead}}

	rec := gatedRequest(t, m.Require(shared.PermTaskRead), id)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAdminBypassesPermissionCheck(t *testing.T) {
	m := Middleware{}
	id := &shared.Identity{Username: "root", Role: shared.RoleAdmin}

	rec := gatedRequest(t, m.Require(shared.PermUserManage), id)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAny(t *testing.T) {
	m := Middleware{}
	id := &shared.Identity{Username: "alice", Role: shared.RoleUser, Permissions: []string{shared.PermExpenseRead}}

	rec := gatedRequest(t, m.RequireAny(shared.PermExpenseApprove, shared.PermExpenseRead), id)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = gatedRequest(t, m.RequireAny(shared.PermExpenseApprove, shared.PermUserManage), id)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = gatedRequest(t, m.RequireAny(shared.PermExpenseApprove), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
