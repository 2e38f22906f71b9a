package assistant

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Willizberc/Pexfin/internal/assistant"
	"github.com/Willizberc/Pexfin/internal/http/middleware"
	"github.com/Willizberc/Pexfin/internal/http/respond"
)

type Handler struct {
	svc *assistant.Service
}

func NewHandler(svc *assistant.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/reply", h.reply)
}

type replyRequest struct {
	Transcript []assistant.Turn `json:"transcript"`
	Message    string           `json:"message"`
}

type replyResponse struct {
	Reply      string           `json:"reply"`
	Transcript []assistant.Turn `json:"transcript"`
}

func (h *Handler) reply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	transcript, err := h.svc.Reply(r.Context(), middleware.MustSession(r).UserID, req.Transcript, req.Message)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, replyResponse{
		Reply:      transcript[len(transcript)-1].Text,
		Transcript: transcript,
	})
}
