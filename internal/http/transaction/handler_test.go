package transaction_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Willizberc/Pexfin/internal/account"
	httptx "github.com/Willizberc/Pexfin/internal/http/transaction"
	"github.com/Willizberc/Pexfin/internal/session"
	"github.com/Willizberc/Pexfin/internal/transaction"
	"github.com/Willizberc/Pexfin/internal/transaction/inmemory"
)

func newRouter(t *testing.T, userID uuid.UUID, store *inmemory.Store) http.Handler {
	t.Helper()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := session.WithSession(req.Context(), session.Session{UserID: userID})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/transactions", httptx.NewHandler(transaction.NewService(store)).Routes)

	return r
}

func do(h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestHandler_Create(t *testing.T) {
	store := inmemory.New()
	userID := uuid.New()
	store.PutAccount(account.Account{UserID: userID, Balance: 1000, OpeningBalance: 1000})

	h := newRouter(t, userID, store)
	body := `{"description":"Salary","amount":"25,50","category":"income"}`
	key := map[string]string{httptx.IdempotencyHeader: "k-1"}

	rec := do(h, http.MethodPost, "/transactions", body, key)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var first struct {
		Transaction httptx.Response `json:"transaction"`
		Balance     int64           `json:"balance"`
		Replayed    bool            `json:"replayed"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	assert.Equal(t, int64(3550), first.Balance)
	assert.Equal(t, int64(2550), first.Transaction.Amount)
	assert.Equal(t, transaction.Income, first.Transaction.Category)
	assert.False(t, first.Replayed)

	rec = do(h, http.MethodPost, "/transactions", body, key)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"replayed":true`)
	assert.Contains(t, rec.Body.String(), first.Transaction.ID.String())
	assert.NotContains(t, rec.Body.String(), `"balance"`)
}

func TestHandler_Create_Errors(t *testing.T) {
	store := inmemory.New()
	withAccount := uuid.New()
	store.PutAccount(account.Account{UserID: withAccount})

	tests := []struct {
		name       string
		userID     uuid.UUID
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "MissingFields",
			userID:     withAccount,
			body:       `{"description":"","amount":"","category":""}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `"description":"is required"`,
		},
		{
			name:       "UnknownField",
			userID:     withAccount,
			body:       `{"description":"x","amount":"1","category":"Income","currency":"EUR"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "malformed request body",
		},
		{
			name:       "NoAccount",
			userID:     uuid.New(),
			body:       `{"description":"x","amount":"1","category":"Income"}`,
			wantStatus: http.StatusNotFound,
			wantBody:   "account not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newRouter(t, tt.userID, store), http.MethodPost, "/transactions", tt.body, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestHandler_ListAndGet(t *testing.T) {
	store := inmemory.New()
	userID := uuid.New()
	store.PutAccount(account.Account{UserID: userID})

	h := newRouter(t, userID, store)

	for _, body := range []string{
		`{"description":"Salary","amount":"100","category":"Income"}`,
		`{"description":"Rent","amount":"60","category":"Expense"}`,
	} {
		require.Equal(t, http.StatusCreated, do(h, http.MethodPost, "/transactions", body, nil).Code)
	}

	rec := do(h, http.MethodGet, "/transactions?category=expense", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []httptx.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "Rent", list[0].Description)

	rec = do(h, http.MethodGet, "/transactions/"+list[0].ID.String(), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodGet, "/transactions/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/transactions?limit=zero", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"limit"`)
}
