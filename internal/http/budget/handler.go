package budget

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/budget"
	"github.com/Willizberc/Pexfin/internal/http/middleware"
	"github.com/Willizberc/Pexfin/internal/http/respond"
)

type Handler struct {
	svc *budget.Service
}

func NewHandler(svc *budget.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) BudgetRoutes(r chi.Router) {
	r.Get("/", h.listBudgets)
	r.Post("/", h.createBudget)
	r.Delete("/{id}", h.deleteBudget)
}

func (h *Handler) GoalRoutes(r chi.Router) {
	r.Get("/", h.listGoals)
	r.Post("/", h.createGoal)
	r.Post("/{id}/progress", h.addProgress)
}

type budgetResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Target     int64     `json:"target_amount"`
	Spent      int64     `json:"spent"`
	Remaining  int64     `json:"remaining"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Categories []string  `json:"categories"`
}

func toBudgetResponse(b *budget.Budget) budgetResponse {
	categories := b.Categories
	if categories == nil {
		categories = []string{}
	}

	return budgetResponse{
		ID:         b.ID,
		Name:       b.Name,
		Target:     b.TargetAmount,
		Spent:      b.Spent,
		Remaining:  b.Remaining(),
		StartDate:  b.StartDate,
		EndDate:    b.EndDate,
		Categories: categories,
	}
}

type goalResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Target    int64     `json:"target_amount"`
	Progress  int64     `json:"progress"`
	Reached   bool      `json:"reached"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func toGoalResponse(g *budget.Goal) goalResponse {
	return goalResponse{
		ID:        g.ID,
		Name:      g.Name,
		Target:    g.TargetAmount,
		Progress:  g.Progress,
		Reached:   g.Reached(),
		StartDate: g.StartDate,
		EndDate:   g.EndDate,
	}
}

type createBudgetRequest struct {
	Name       string    `json:"name"`
	Target     string    `json:"target_amount"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Categories []string  `json:"categories"`
}

func (h *Handler) listBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.svc.List(r.Context(), middleware.MustSession(r).UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]budgetResponse, len(budgets))
	for i, b := range budgets {
		resp[i] = toBudgetResponse(b)
	}

	respond.JSON(w, r, http.StatusOK, resp)
}

func (h *Handler) createBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	b, err := h.svc.Create(r.Context(), middleware.MustSession(r).UserID, budget.CreateParams{
		Name:       req.Name,
		Target:     req.Target,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Categories: req.Categories,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusCreated, toBudgetResponse(b))
}

func (h *Handler) deleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, budget.ErrNotFound)
		return
	}

	if err := h.svc.Delete(r.Context(), middleware.MustSession(r).UserID, id); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.NoContent(w)
}

type createGoalRequest struct {
	Name      string    `json:"name"`
	Target    string    `json:"target_amount"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (h *Handler) listGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.svc.ListGoals(r.Context(), middleware.MustSession(r).UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]goalResponse, len(goals))
	for i, g := range goals {
		resp[i] = toGoalResponse(g)
	}

	respond.JSON(w, r, http.StatusOK, resp)
}

func (h *Handler) createGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	g, err := h.svc.CreateGoal(r.Context(), middleware.MustSession(r).UserID, budget.GoalParams{
		Name:      req.Name,
		Target:    req.Target,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusCreated, toGoalResponse(g))
}

type progressRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) addProgress(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, budget.ErrGoalNotFound)
		return
	}

	var req progressRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	g, err := h.svc.AddProgress(r.Context(), middleware.MustSession(r).UserID, id, req.Amount)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, toGoalResponse(g))
}
