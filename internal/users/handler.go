package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ammonsd/activitytracking/internal/platform/httpx"
	"github.com/ammonsd/activitytracking/internal/rbac"
	"github.com/ammonsd/activitytracking/internal/shared"
)

// Handler exposes user management endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     *rbac.Middleware
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, rbac *rbac.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		rbac:     rbac,
		validate: validator.New(),
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	// Self-service password change is open to any authenticated user.
	r.Put("/me/password", h.handleChangeOwnPassword)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(shared.PermUserManage))
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
		r.Put("/{id}/password", h.handleAdminSetPassword)
		r.Post("/{id}/unlock", h.handleUnlock)
	})
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListUsersRequest{
		Role:   q.Get("role"),
		Search: q.Get("search"),
	}
	if v := q.Get("enabled"); v != "" {
		enabled := v == "true"
		req.Enabled = &enabled
	}
	req.Page, _ = strconv.Atoi(q.Get("page"))
	req.PerPage, _ = strconv.Atoi(q.Get("perPage"))

	list, page, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": list, "pagination": page})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

type createUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	DisplayName string `json:"displayName" validate:"required"`
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password" validate:"required,min=8"`
	RoleID      *int64 `json:"roleId"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	identity := shared.IdentityFromContext(r.Context())
	u, err := h.service.Create(r.Context(), identity.Username, CreateUserInput{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    req.Password,
		RoleID:      req.RoleID,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

type updateUserRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email" validate:"omitempty,email"`
	RoleID      *int64 `json:"roleId"`
	IsEnabled   *bool  `json:"isEnabled"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	identity := shared.IdentityFromContext(r.Context())
	u, err := h.service.Update(r.Context(), identity.Username, id, UpdateUserInput{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		RoleID:      req.RoleID,
		IsEnabled:   req.IsEnabled,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

func (h *Handler) handleChangeOwnPassword(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.Fail(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.service.repo.GetByUsername(r.Context(), identity.Username)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), identity.Username, u.ID,
		req.CurrentPassword, req.NewPassword, true); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "password updated")
}

func (h *Handler) handleAdminSetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	identity := shared.IdentityFromContext(r.Context())
	if err := h.service.ChangePassword(r.Context(), identity.Username, id, "", req.NewPassword, false); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "password updated")
}

func (h *Handler) handleUnlock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	identity := shared.IdentityFromContext(r.Context())
	if err := h.service.ResetLockout(r.Context(), identity.Username, id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "account unlocked")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	identity := shared.IdentityFromContext(r.Context())
	if err := h.service.Delete(r.Context(), identity.Username, id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "user deleted")
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrDuplicateUsername):
		httpx.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrWrongPassword), errors.Is(err, ErrWeakPassword):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "user not found")
	default:
		h.logger.Error("users request failed", "path", r.URL.Path, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
