package profile

import (
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Willizberc/Pexfin/internal/http/auth"
	"github.com/Willizberc/Pexfin/internal/http/middleware"
	"github.com/Willizberc/Pexfin/internal/http/respond"
	"github.com/Willizberc/Pexfin/internal/identity"
)

const maxPictureBytes = 5 << 20

type Handler struct {
	svc *identity.Service
}

func NewHandler(svc *identity.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.get)
	r.Patch("/", h.update)
	r.Put("/picture", h.setPicture)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Profile(r.Context(), middleware.MustSession(r).UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, auth.ToUserResponse(u))
}

type updateRequest struct {
	DisplayName string `json:"display_name"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), middleware.MustSession(r).UserID, req.DisplayName)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, auth.ToUserResponse(u))
}

type pictureRequest struct {
	Picture string `json:"picture"`
}

// setPicture takes either a JSON reference to an already hosted image or
// the raw image bytes, which are uploaded to picture storage.
func (h *Handler) setPicture(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustSession(r).UserID
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		var req pictureRequest
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}

		u, err := h.svc.SetProfilePicture(r.Context(), userID, req.Picture)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		respond.JSON(w, r, http.StatusOK, auth.ToUserResponse(u))

		return
	}

	body := http.MaxBytesReader(w, r.Body, maxPictureBytes)

	u, err := h.svc.UploadProfilePicture(r.Context(), userID, r.Header.Get("Content-Type"), body)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, auth.ToUserResponse(u))
}
