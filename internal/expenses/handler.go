package expenses

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ammonsd/activitytracking/internal/platform/httpx"
	"github.com/ammonsd/activitytracking/internal/rbac"
	"github.com/ammonsd/activitytracking/internal/receipts"
	"github.com/ammonsd/activitytracking/internal/shared"
)

const maxReceiptBytes = 10 << 20

// Handler exposes expense endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     *rbac.Middleware
	store    receipts.Store
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, rbac *rbac.Middleware, store receipts.Store) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, store: store, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(shared.PermExpenseRead)).Get("/", h.handleList)
	r.With(h.rbac.Require(shared.PermExpenseRead)).Get("/{id}", h.handleGet)
	r.With(h.rbac.Require(shared.PermExpenseRead)).Get("/{id}/history", h.handleHistory)
	r.With(h.rbac.Require(shared.PermExpenseRead)).Get("/{id}/receipt", h.handleGetReceipt)
	r.With(h.rbac.Require(shared.PermExpenseCreate)).Post("/", h.handleCreate)
	r.With(h.rbac.Require(shared.PermExpenseUpdate)).Put("/{id}", h.handleUpdate)
	r.With(h.rbac.Require(shared.PermExpenseUpdate)).Post("/{id}/submit", h.handleSubmit)
	r.With(h.rbac.Require(shared.PermExpenseUpdate)).Post("/{id}/receipt", h.handleUploadReceipt)
	r.With(h.rbac.Require(shared.PermExpenseDelete)).Delete("/{id}", h.handleDelete)
	r.With(h.rbac.Require(shared.PermExpenseApprove)).Post("/{id}/approve", h.handleApprove)
	r.With(h.rbac.Require(shared.PermExpenseApprove)).Post("/{id}/reject", h.handleReject)
	r.With(h.rbac.Require(shared.PermExpenseApprove)).Post("/{id}/reimburse", h.handleReimburse)
}

type expenseRequest struct {
	ExpenseDate   string `json:"expenseDate" validate:"required"`
	Client        string `json:"client" validate:"required"`
	Project       string `json:"project" validate:"required"`
	ExpenseType   string `json:"expenseType" validate:"required"`
	Description   string `json:"description" validate:"required,max=500"`
	Amount        string `json:"amount" validate:"required"`
	Currency      string `json:"currency" validate:"required,len=3"`
	PaymentMethod string `json:"paymentMethod"`
}

func (req expenseRequest) toInput() (WriteInput, error) {
	date, err := time.Parse(time.DateOnly, req.ExpenseDate)
	if err != nil {
		return WriteInput{}, errors.New("expenseDate must be YYYY-MM-DD")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return WriteInput{}, errors.New("amount must be a decimal number")
	}
	return WriteInput{
		ExpenseDate:   date,
		Client:        req.Client,
		Project:       req.Project,
		ExpenseType:   req.ExpenseType,
		Description:   req.Description,
		Amount:        amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
	}, nil
}

type decisionRequest struct {
	Note string `json:"note" validate:"max=500"`
}

func (h *Handler) decodeDecision(w http.ResponseWriter, r *http.Request) (decisionRequest, bool) {
	var req decisionRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid request body")
			return req, false
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Fail(w, http.StatusBadRequest, err.Error())
			return req, false
		}
	}
	return req, true
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()
	req := ListRequest{
		Owner:  q.Get("owner"),
		Status: Status(q.Get("status")),
		Client: q.Get("client"),
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
	httpx.JSON(w, http.StatusOK, map[string]any{"expenses": list, "pagination": page})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := parseID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	e, err := h.service.Get(r.Context(), identity, id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := parseID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	history, err := h.service.History(r.Context(), identity, id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if history == nil {
		history = []shared.ApprovalLog{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"history": history})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	var req expenseRequest
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
	e, err := h.service.Create(r.Context(), identity, in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := parseID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	var req expenseRequest
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
	e, err := h.service.Update(r.Context(), identity, id, in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, func(identity *shared.Identity, id int64, note string) (Expense, error) {
		return h.service.Submit(r.Context(), identity, id, note)
	})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, func(identity *shared.Identity, id int64, note string) (Expense, error) {
		return h.service.Approve(r.Context(), identity, id, note)
	})
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, func(identity *shared.Identity, id int64, note string) (Expense, error) {
		return h.service.Reject(r.Context(), identity, id, note)
	})
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request, apply func(*shared.Identity, int64, string) (Expense, error)) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := parseID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	req, ok := h.decodeDecision(w, r)
	if !ok {
		return
	}
	e, err := apply(identity, id, req.Note)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

type reimburseRequest struct {
	Amount string `json:"amount"`
	Note   string `json:"note" validate:"max=500"`
}

func (h *Handler) handleReimburse(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := parseID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	var req reimburseRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	var amount *decimal.Decimal
	if req.Amount != "" {
		d, err := decimal.NewFromString(req.Amount)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "amount must be a decimal number")
			return
		}
		amount = &d
	}
	e, err := h.service.Reimburse(r.Context(), identity, id, amount, req.Note)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := parseID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	if err := h.service.Delete(r.Context(), identity, id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "expense deleted")
}

func (h *Handler) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := parseID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBytes)
	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "receipt upload too large or malformed")
		return
	}
	file, header, err := r.FormFile("receipt")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "receipt file is required")
		return
	}
	defer file.Close()

	key, err := h.store.Put(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := h.service.AttachReceipt(r.Context(), identity, id, key)
	if err != nil {
		// Do not leave orphaned objects behind when attach fails.
		if delErr := h.store.Delete(r.Context(), key); delErr != nil {
			h.logger.Error("cleanup receipt failed", "key", key, "error", delErr)
		}
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := parseID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	e, err := h.service.Get(r.Context(), identity, id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if e.ReceiptKey == nil {
		httpx.Fail(w, http.StatusNotFound, "expense has no receipt")
		return
	}
	content, contentType, err := h.store.Get(r.Context(), *e.ReceiptKey)
	if err != nil {
		h.logger.Error("fetch receipt failed", "key", *e.ReceiptKey, "error", err)
		httpx.Fail(w, http.StatusNotFound, "receipt not available")
		return
	}
	defer content.Close()
	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, content); err != nil {
		h.logger.Error("stream receipt failed", "key", *e.ReceiptKey, "error", err)
	}
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoteRequired):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotOwner), errors.Is(err, ErrSelfApproval):
		httpx.Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotEditable), errors.Is(err, ErrDeleteNonDraft):
		httpx.Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "expense not found")
	default:
		h.logger.Error("expenses request failed", "path", r.URL.Path, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
