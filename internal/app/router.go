package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ammonsd/activitytracking/internal/audit"
	"github.com/ammonsd/activitytracking/internal/auth"
	"github.com/ammonsd/activitytracking/internal/csvimport"
	"github.com/ammonsd/activitytracking/internal/dropdowns"
	"github.com/ammonsd/activitytracking/internal/expenses"
	"github.com/ammonsd/activitytracking/internal/observability"
	"github.com/ammonsd/activitytracking/internal/rbac"
	"github.com/ammonsd/activitytracking/internal/reports"
	"github.com/ammonsd/activitytracking/internal/taskactivity"
	"github.com/ammonsd/activitytracking/internal/users"
	"github.com/ammonsd/activitytracking/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthHandler     *auth.Handler
	AuthMiddleware  *auth.Middleware
	TaskHandler     *taskactivity.Handler
	ExpenseHandler  *expenses.Handler
	DropdownHandler *dropdowns.Handler
	UserHandler     *users.Handler
	RoleHandler     *rbac.Handler
	ReportHandler   *reports.Handler
	ImportHandler   *csvimport.Handler
	AuditHandler    *audit.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router for the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", params.AuthHandler.HandleLogin)

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.Authenticate)

			r.Post("/auth/logout", params.AuthHandler.HandleLogout)
			r.Get("/auth/me", params.AuthHandler.HandleMe)

			r.Route("/tasks", params.TaskHandler.MountRoutes)
			r.Route("/expenses", params.ExpenseHandler.MountRoutes)
			r.Route("/dropdowns", params.DropdownHandler.MountRoutes)
			r.Route("/users", params.UserHandler.MountRoutes)
			r.Route("/roles", params.RoleHandler.MountRoutes)
			r.Route("/reports", params.ReportHandler.MountRoutes)
			r.Route("/import", params.ImportHandler.MountRoutes)
			r.Route("/audit", params.AuditHandler.MountRoutes)
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	return r
}
