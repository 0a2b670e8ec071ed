package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ammonsd/activitytracking/internal/platform/httpx"
	"github.com/ammonsd/activitytracking/internal/rbac"
)

// Handler exposes the audit trail to administrators.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    *rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac *rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAdmin())
	r.Get("/", h.handleTimeline)
	r.Get("/export", h.handleExport)
}

func filtersFromQuery(r *http.Request) Filters {
	q := r.URL.Query()
	f := Filters{
		Actor:  q.Get("actor"),
		Entity: q.Get("entity"),
		Action: q.Get("action"),
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.DateOnly, v); err == nil {
			f.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.DateOnly, v); err == nil {
			// Inclusive end date.
			f.To = t.AddDate(0, 0, 1)
		}
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = v
	}
	if v, err := strconv.Atoi(q.Get("pageSize")); err == nil {
		f.PageSize = v
	}
	return f
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Timeline(r.Context(), filtersFromQuery(r))
	if err != nil {
		h.logger.Error("audit timeline failed", "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if result.Entries == nil {
		result.Entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-trail.csv"`)
	if err := h.service.WriteCSV(r.Context(), w, filtersFromQuery(r)); err != nil {
		h.logger.Error("audit export failed", "error", err)
	}
}
