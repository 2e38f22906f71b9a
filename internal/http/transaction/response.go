package transaction

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/transaction"
)

// Response is the wire form of a transaction, shared by every endpoint that
// returns one.
type Response struct {
	ID             uuid.UUID            `json:"id"`
	Description    string               `json:"description"`
	Category       transaction.Category `json:"category"`
	Amount         int64                `json:"amount"`
	Date           time.Time            `json:"date"`
	IdempotencyKey string               `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

type receiptResponse struct {
	Transaction Response `json:"transaction"`
	Balance     *int64   `json:"balance,omitempty"`
	Replayed    bool     `json:"replayed"`
}

func ToResponse(tx *transaction.Transaction) Response {
	return Response{
		ID:             tx.ID,
		Description:    tx.Description,
		Category:       tx.Category,
		Amount:         tx.Amount,
		Date:           tx.Date,
		IdempotencyKey: tx.IdempotencyKey,
		CreatedAt:      tx.CreatedAt,
	}
}

func ToResponseList(txs []*transaction.Transaction) []Response {
	resp := make([]Response, len(txs))
	for i, tx := range txs {
		resp[i] = ToResponse(tx)
	}

	return resp
}

// receiptStatus is 201 for a new transaction and 200 for a replay.
func receiptStatus(r *transaction.Receipt) int {
	if r.Replayed {
		return http.StatusOK
	}

	return http.StatusCreated
}

// toReceiptResponse leaves the balance out of replays, which do not know it.
func toReceiptResponse(r *transaction.Receipt) receiptResponse {
	resp := receiptResponse{
		Transaction: ToResponse(r.Transaction),
		Replayed:    r.Replayed,
	}

	if !r.Replayed {
		resp.Balance = new(r.Balance)
	}

	return resp
}
