package notification

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/http/middleware"
	"github.com/Willizberc/Pexfin/internal/http/respond"
	"github.com/Willizberc/Pexfin/internal/notification"
)

type Handler struct {
	svc *notification.Service
}

func NewHandler(svc *notification.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/unread", h.unread)
	r.Post("/read", h.markAllRead)
	r.Post("/{id}/read", h.markRead)
}

type notificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

	ns, err := h.svc.List(r.Context(), middleware.MustSession(r).UserID, unreadOnly)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]notificationResponse, len(ns))
	for i, n := range ns {
		resp[i] = notificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Body:      n.Body,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
	}

	respond.JSON(w, r, http.StatusOK, resp)
}

type countResponse struct {
	Count int `json:"count"`
}

// unread is the badge count.
func (h *Handler) unread(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.UnreadCount(r.Context(), middleware.MustSession(r).UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, countResponse{Count: n})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, notification.ErrNotFound)
		return
	}

	if err := h.svc.MarkRead(r.Context(), middleware.MustSession(r).UserID, id); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.NoContent(w)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllRead(r.Context(), middleware.MustSession(r).UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, countResponse{Count: n})
}
