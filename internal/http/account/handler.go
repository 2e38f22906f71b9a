package account

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/account"
	"github.com/Willizberc/Pexfin/internal/http/middleware"
	"github.com/Willizberc/Pexfin/internal/http/respond"
	httptx "github.com/Willizberc/Pexfin/internal/http/transaction"
	"github.com/Willizberc/Pexfin/internal/reconcile"
	"github.com/Willizberc/Pexfin/internal/transaction"
)

const topUpDescription = "Top up"

type Handler struct {
	accounts   *account.Service
	recorder   *transaction.Service
	reconciler *reconcile.Service
}

func NewHandler(accounts *account.Service, recorder *transaction.Service, reconciler *reconcile.Service) *Handler {
	return &Handler{accounts: accounts, recorder: recorder, reconciler: reconciler}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/", h.setup)
	r.Post("/topup", h.topUp)
	r.Post("/reconcile", h.reconcile)
}

type accountResponse struct {
	UserID         uuid.UUID `json:"user_id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Currency       string    `json:"currency"`
	Balance        int64     `json:"balance"`
	OpeningBalance int64     `json:"opening_balance"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toAccountResponse(a *account.Account) accountResponse {
	return accountResponse{
		UserID:         a.UserID,
		Name:           a.Name,
		Type:           a.Type,
		Currency:       a.Currency,
		Balance:        a.Balance,
		OpeningBalance: a.OpeningBalance,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	acc, err := h.accounts.Get(r.Context(), middleware.MustSession(r).UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, toAccountResponse(acc))
}

type setupRequest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Currency       string `json:"currency"`
	OpeningBalance string `json:"opening_balance"`
}

func (h *Handler) setup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	acc, err := h.accounts.Setup(r.Context(), middleware.MustSession(r).UserID, account.SetupParams{
		Name:           req.Name,
		Type:           req.Type,
		Currency:       req.Currency,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, toAccountResponse(acc))
}

type topUpRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type topUpResponse struct {
	Transaction httptx.Response `json:"transaction"`
	Balance     *int64          `json:"balance,omitempty"`
	Replayed    bool            `json:"replayed"`
}

// topUp adds money to the balance. It is recorded as an income
// transaction so the ledger still explains the balance.
func (h *Handler) topUp(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = topUpDescription
	}

	receipt, err := h.recorder.Record(r.Context(), middleware.MustSession(r).UserID, transaction.Input{
		Description:    desc,
		Amount:         req.Amount,
		Category:       string(transaction.Income),
		IdempotencyKey: r.Header.Get(httptx.IdempotencyHeader),
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := topUpResponse{
		Transaction: httptx.ToResponse(receipt.Transaction),
		Replayed:    receipt.Replayed,
	}
	if !receipt.Replayed {
		resp.Balance = new(receipt.Balance)
	}

	respond.JSON(w, r, http.StatusOK, resp)
}

type reconcileResponse struct {
	Cached    int64 `json:"cached"`
	Expected  int64 `json:"expected"`
	Drift     int64 `json:"drift"`
	Corrected bool  `json:"corrected"`
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	res, err := h.reconciler.ReconcileUser(r.Context(), middleware.MustSession(r).UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, reconcileResponse{
		Cached:    res.Cached,
		Expected:  res.Expected,
		Drift:     res.Drift(),
		Corrected: res.Corrected,
	})
}
