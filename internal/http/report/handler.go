package report

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/http/middleware"
	"github.com/Willizberc/Pexfin/internal/http/respond"
	httptx "github.com/Willizberc/Pexfin/internal/http/transaction"
	"github.com/Willizberc/Pexfin/internal/report"
	"github.com/Willizberc/Pexfin/internal/transaction"
	"github.com/Willizberc/Pexfin/internal/validation"
)

const monthLayout = "2006-01"

type Handler struct {
	svc *report.Service
	now func() time.Time
}

func NewHandler(svc *report.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/home", h.home)
	r.Get("/statement", h.statement)
	r.Get("/{category}", h.month)
}

type totalsResponse struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Net     int64 `json:"net"`
}

// HomeResponse is also pushed over the live feed.
type HomeResponse struct {
	DisplayName string            `json:"display_name"`
	Currency    string            `json:"currency"`
	Balance     int64             `json:"balance"`
	Totals      totalsResponse    `json:"totals"`
	Recent      []httptx.Response `json:"recent"`
}

func ToHomeResponse(h *report.Home) HomeResponse {
	return HomeResponse{
		DisplayName: h.DisplayName,
		Currency:    h.Currency,
		Balance:     h.Balance,
		Totals: totalsResponse{
			Income:  h.Totals.Income,
			Expense: h.Totals.Expense,
			Net:     h.Totals.Net,
		},
		Recent: httptx.ToResponseList(h.Recent),
	}
}

type dailyResponse struct {
	Date  string `json:"date"`
	Total int64  `json:"total"`
}

type recordResponse struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Label         string    `json:"label"`
	Description   string    `json:"description"`
	Amount        int64     `json:"amount"`
	Date          time.Time `json:"date"`
}

type monthResponse struct {
	Category transaction.Category `json:"category"`
	Month    string               `json:"month"`
	Total    int64                `json:"total"`
	Daily    []dailyResponse      `json:"daily"`
	Records  []recordResponse     `json:"records"`
}

func toMonthResponse(m *report.MonthlyReport) monthResponse {
	resp := monthResponse{
		Category: m.Category,
		Month:    m.Month.Format(monthLayout),
		Total:    m.Total,
		Daily:    make([]dailyResponse, 0, len(m.Daily)),
		Records:  make([]recordResponse, 0, len(m.Records)),
	}

	for _, d := range m.Daily {
		resp.Daily = append(resp.Daily, dailyResponse{Date: d.Date.Format(time.DateOnly), Total: d.Total})
	}

	for _, rec := range m.Records {
		resp.Records = append(resp.Records, recordResponse{
			ID:            rec.ID,
			TransactionID: rec.TransactionID,
			Label:         rec.Label,
			Description:   rec.Description,
			Amount:        rec.Amount,
			Date:          rec.Date,
		})
	}

	return resp
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	home, err := h.svc.Home(r.Context(), middleware.MustSession(r).UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, ToHomeResponse(home))
}

func (h *Handler) month(w http.ResponseWriter, r *http.Request) {
	var p validation.Problems

	category, ok := transaction.ParseCategory(chi.URLParam(r, "category"))
	if !ok {
		p.Add("category", "must be income or expense")
	}

	month, err := h.parseMonth(r)
	if err != nil {
		p.Add("month", "must be YYYY-MM")
	}

	if err := p.Err(); err != nil {
		respond.Error(w, r, err)
		return
	}

	m, err := h.svc.Month(r.Context(), middleware.MustSession(r).UserID, category, month)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, toMonthResponse(m))
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	month, err := h.parseMonth(r)
	if err != nil {
		var p validation.Problems
		p.Add("month", "must be YYYY-MM")
		respond.Error(w, r, p.Err())

		return
	}

	text, err := h.svc.Statement(r.Context(), middleware.MustSession(r).UserID, month)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

// parseMonth reads ?month=YYYY-MM in the report zone, defaulting to the
// current month.
func (h *Handler) parseMonth(r *http.Request) (time.Time, error) {
	s := r.URL.Query().Get("month")
	if s == "" {
		return h.now().In(h.svc.Location()), nil
	}

	return time.ParseInLocation(monthLayout, s, h.svc.Location())
}
