package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ammonsd/activitytracking/internal/platform/httpx"
	"github.com/ammonsd/activitytracking/internal/rbac"
	"github.com/ammonsd/activitytracking/internal/shared"
)

// Handler exposes the reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    *rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac *rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Require(shared.PermReportView))
	r.Get("/dashboard", h.handleDashboard)
	r.Get("/users", h.handleUserSummaries)
	r.Get("/users/export", h.handleUserSummariesCSV)
	r.Get("/stale-projects", h.handleStaleProjects)
	r.Get("/stale-projects/export", h.handleStaleProjectsCSV)
	r.Get("/expenses/export", h.handleExpenseSpendCSV)
}

func (h *Handler) window(r *http.Request) Window {
	w := h.service.DefaultWindow()
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.DateOnly, v); err == nil {
			w.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.DateOnly, v); err == nil {
			w.To = t
		}
	}
	return w
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context(), h.window(r))
	if err != nil {
		h.logger.Error("dashboard report failed", "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) handleUserSummaries(w http.ResponseWriter, r *http.Request) {
	win := h.window(r)
	users, err := h.service.UserSummaries(r.Context(), win)
	if err != nil {
		h.logger.Error("user summary report failed", "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if users == nil {
		users = []UserSummary{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"from":  win.From.Format(time.DateOnly),
		"to":    win.To.Format(time.DateOnly),
		"users": users,
	})
}

func (h *Handler) handleUserSummariesCSV(w http.ResponseWriter, r *http.Request) {
	win := h.window(r)
	users, err := h.service.UserSummaries(r.Context(), win)
	if err != nil {
		h.logger.Error("user summary export failed", "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	setCSVHeaders(w, "user-summary.csv")
	if err := WriteUserSummaryCSV(w, users, win.From.Format(time.DateOnly), win.To.Format(time.DateOnly)); err != nil {
		h.logger.Error("write user summary csv failed", "error", err)
	}
}

func (h *Handler) handleStaleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.StaleProjects(r.Context())
	if err != nil {
		h.logger.Error("stale project report failed", "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if projects == nil {
		projects = []StaleProject{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (h *Handler) handleStaleProjectsCSV(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.StaleProjects(r.Context())
	if err != nil {
		h.logger.Error("stale project export failed", "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	setCSVHeaders(w, "stale-projects.csv")
	if err := WriteStaleProjectsCSV(w, projects); err != nil {
		h.logger.Error("write stale projects csv failed", "error", err)
	}
}

func (h *Handler) handleExpenseSpendCSV(w http.ResponseWriter, r *http.Request) {
	win := h.window(r)
	totals, err := h.service.repo.ExpenseTotalsByClient(r.Context(), win)
	if err != nil {
		h.logger.Error("expense spend export failed", "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	setCSVHeaders(w, "expense-spend.csv")
	if err := WriteExpenseSpendCSV(w, totals, win.From.Format(time.DateOnly), win.To.Format(time.DateOnly)); err != nil {
		h.logger.Error("write expense spend csv failed", "error", err)
	}
}

func setCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}
