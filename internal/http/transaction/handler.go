package transaction

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/http/middleware"
	"github.com/Willizberc/Pexfin/internal/http/respond"
	"github.com/Willizberc/Pexfin/internal/transaction"
	"github.com/Willizberc/Pexfin/internal/validation"
)

// IdempotencyHeader may carry the idempotency key instead of the body.
const IdempotencyHeader = "Idempotency-Key"

type Handler struct {
	svc *transaction.Service
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

type createTransactionRequest struct {
	Description    string `json:"description"`
	Amount         string `json:"amount"`
	Category       string `json:"category"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	key := req.IdempotencyKey
	if key == "" {
		key = r.Header.Get(IdempotencyHeader)
	}

	receipt, err := h.svc.Record(r.Context(), middleware.MustSession(r).UserID, transaction.Input{
		Description:    req.Description,
		Amount:         req.Amount,
		Category:       req.Category,
		IdempotencyKey: key,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, receiptStatus(receipt), toReceiptResponse(receipt))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, ToResponseList(txs))
}

func parseListFilter(r *http.Request) (transaction.ListFilter, error) {
	q := r.URL.Query()
	filter := transaction.ListFilter{UserID: middleware.MustSession(r).UserID}

	var p validation.Problems

	if s := q.Get("category"); s != "" {
		c, ok := transaction.ParseCategory(s)
		if !ok {
			p.Add("category", "must be Income or Expense")
		} else {
			filter.Category = &c
		}
	}

	if s := q.Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = &t
		} else {
			p.Add("start_date", "must be YYYY-MM-DD")
		}
	}

	if s := q.Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
			filter.EndDate = &end
		} else {
			p.Add("end_date", "must be YYYY-MM-DD")
		}
	}

	if s := q.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			filter.Limit = n
		} else {
			p.Add("limit", "must be a positive integer")
		}
	}

	return filter, p.Err()
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, transaction.ErrNotFound)
		return
	}

	tx, err := h.svc.Get(r.Context(), middleware.MustSession(r).UserID, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, ToResponse(tx))
}
