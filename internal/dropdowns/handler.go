package dropdowns

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

// Handler exposes dropdown configuration endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     *rbac.Middleware
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, rbac *rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	// Listing is open to any authenticated user; entry forms need the values.
	r.Get("/{category}", h.handleList)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(shared.PermDropdownManage))
		r.Post("/{category}", h.handleCreate)
		r.Put("/{category}/{id}", h.handleUpdate)
		r.Delete("/{category}/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"
	values, err := h.service.List(r.Context(), chi.URLParam(r, "category"), activeOnly)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if values == nil {
		values = []Value{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"values": values})
}

type valueRequest struct {
	Value     string `json:"value" validate:"required,max=120"`
	SortOrder int    `json:"sortOrder"`
	IsActive  *bool  `json:"isActive"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	identity := shared.IdentityFromContext(r.Context())
	v, err := h.service.Create(r.Context(), identity.Username, chi.URLParam(r, "category"), req.Value, req.SortOrder)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid value id")
		return
	}
	var req valueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	identity := shared.IdentityFromContext(r.Context())
	v, err := h.service.Update(r.Context(), identity.Username, id, req.Value, req.SortOrder, active)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid value id")
		return
	}
	identity := shared.IdentityFromContext(r.Context())
	if err := h.service.Delete(r.Context(), identity.Username, id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "value deleted")
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnknownCategory):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicateValue):
		httpx.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "value not found")
	default:
		h.logger.Error("dropdowns request failed", "path", r.URL.Path, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
