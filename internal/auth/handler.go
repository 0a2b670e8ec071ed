package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ammonsd/activitytracking/internal/platform/httpx"
	"github.com/ammonsd/activitytracking/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// HandleLogin issues an access token for valid credentials.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrAccountLocked):
			httpx.Fail(w, http.StatusUnauthorized, "account locked after too many failed logins")
		case errors.Is(err, shared.ErrPasswordExpired):
			httpx.Fail(w, http.StatusUnauthorized, "password expired, contact an administrator")
		case errors.Is(err, shared.ErrInvalidCredentials):
			httpx.Fail(w, http.StatusUnauthorized, "invalid username or password")
		default:
			h.logger.Error("login", slog.Any("error", err))
			httpx.Fail(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	httpx.JSON(w, http.StatusOK, result)
}

// HandleLogout revokes the presented token.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		httpx.Fail(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if err := h.service.Logout(r.Context(), claims); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.Message(w, http.StatusOK, "logged out")
}

// HandleMe returns the caller identity and permission set.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.Fail(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"username":    identity.Username,
		"role":        identity.Role,
		"permissions": identity.Permissions,
	})
}
