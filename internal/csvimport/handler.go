package csvimport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ammonsd/activitytracking/internal/platform/httpx"
	"github.com/ammonsd/activitytracking/internal/rbac"
	"github.com/ammonsd/activitytracking/internal/shared"
)

const maxImportBytes = 5 << 20

// Handler exposes the CSV import endpoints.
type Handler struct {
	logger   *slog.Logger
	importer *Importer
	rbac     *rbac.Middleware
}

func NewHandler(logger *slog.Logger, importer *Importer, rbac *rbac.Middleware) *Handler {
	return &Handler{logger: logger, importer: importer, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Require(shared.PermImportRun))
	r.Post("/tasks", h.handleImportTasks)
	r.Post("/expenses", h.handleImportExpenses)
}

func (h *Handler) handleImportTasks(w http.ResponseWriter, r *http.Request) {
	h.runImport(w, r, h.importer.ImportTasks)
}

func (h *Handler) handleImportExpenses(w http.ResponseWriter, r *http.Request) {
	h.runImport(w, r, h.importer.ImportExpenses)
}

type importFunc = func(ctx context.Context, actor string, src io.Reader) (Summary, error)

func (h *Handler) runImport(w http.ResponseWriter, r *http.Request, run importFunc) {
	identity := shared.IdentityFromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "import file too large or malformed")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "csv file is required")
		return
	}
	defer file.Close()

	sum, err := run(r.Context(), identity.Username, file)
	if err != nil {
		if errors.Is(err, ErrBadHeader) {
			httpx.Fail(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("csv import failed", "path", r.URL.Path, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if sum.Errors == nil {
		sum.Errors = []RowError{}
	}
	httpx.JSON(w, http.StatusOK, sum)
}
