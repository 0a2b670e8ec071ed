package taskactivity

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ammonsd/activitytracking/internal/platform/httpx"
	"github.com/ammonsd/activitytracking/internal/rbac"
	"github.com/ammonsd/activitytracking/internal/shared"
)

// Handler exposes task activity endpoints.
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
	r.With(h.rbac.Require(shared.PermTaskRead)).Get("/", h.handleList)
	r.With(h.rbac.Require(shared.PermTaskRead)).Get("/{id}", h.handleGet)
	r.With(h.rbac.Require(shared.PermTaskCreate)).Post("/", h.handleCreate)
	r.With(h.rbac.Require(shared.PermTaskUpdate)).Put("/{id}", h.handleUpdate)
	r.With(h.rbac.Require(shared.PermTaskDelete)).Delete("/{id}", h.handleDelete)
}

type activityRequest struct {
	TaskDate    string `json:"taskDate" validate:"required"`
	Client      string `json:"client" validate:"required"`
	Project     string `json:"project" validate:"required"`
	Phase       string `json:"phase" validate:"required"`
	Hours       string `json:"hours" validate:"required"`
	Description string `json:"description" validate:"required,max=500"`
	Billable    *bool  `json:"billable"`
}

func (req activityRequest) toInput() (WriteInput, error) {
	date, err := time.Parse(time.DateOnly, req.TaskDate)
	if err != nil {
		return WriteInput{}, errors.New("taskDate must be YYYY-MM-DD")
	}
	hours, err := decimal.NewFromString(req.Hours)
	if err != nil {
		return WriteInput{}, errors.New("hours must be a decimal number")
	}
	billable := true
	if req.Billable != nil {
		billable = *req.Billable
	}
	return WriteInput{
		TaskDate:    date,
		Client:      req.Client,
		Project:     req.Project,
		Phase:       req.Phase,
		Hours:       hours,
		Description: req.Description,
		Billable:    billable,
	}, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()
	req := ListRequest{
		Username: q.Get("username"),
		Client:   q.Get("client"),
		Project:  q.Get("project"),
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.DateOnly, v); err == nil {
			req.From = &t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.DateOnly, v); err == nil {
			req.To = &t
		}
	}
	req.Page, _ = strconv.Atoi(q.Get("page"))
	req.PerPage, _ = strconv.Atoi(q.Get("perPage"))

	list, page, err := h.service.List(r.Context(), identity, req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"activities": list, "pagination": page})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	a, err := h.service.Get(r.Context(), identity, id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	var req activityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.service.Create(r.Context(), identity, in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	var req activityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.service.Update(r.Context(), identity, id, in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	if err := h.service.Delete(r.Context(), identity, id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "activity deleted")
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrDuplicateActivity):
		httpx.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotOwner):
		httpx.Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidInput):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "activity not found")
	default:
		h.logger.Error("task activity request failed", "path", r.URL.Path, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
