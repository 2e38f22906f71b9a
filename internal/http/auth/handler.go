package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/http/middleware"
	"github.com/Willizberc/Pexfin/internal/http/respond"
	"github.com/Willizberc/Pexfin/internal/identity"
)

type Handler struct {
	svc *identity.Service
}

func NewHandler(svc *identity.Service) *Handler {
	return &Handler{svc: svc}
}

// PublicRoutes need no session.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/signup", h.signUp)
	r.Post("/signin", h.signIn)
	r.Post("/password/reset", h.requestReset)
	r.Post("/password/reset/confirm", h.confirmReset)
}

// Routes must be mounted behind middleware.Authenticate.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/signout", h.signOut)
	r.Put("/password", h.changePassword)
}

type signUpRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is shared with the profile endpoints.
type UserResponse struct {
	ID             uuid.UUID  `json:"id"`
	DisplayName    string     `json:"display_name"`
	Email          string     `json:"email"`
	ProfilePicture string     `json:"profile_picture,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

type credentialsResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func ToUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		DisplayName:    u.DisplayName,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
		LastLoginAt:    u.LastLoginAt,
	}
}

func toCredentialsResponse(c *identity.Credentials) credentialsResponse {
	return credentialsResponse{
		Token:     c.Token,
		ExpiresAt: c.ExpiresAt,
		User:      ToUserResponse(c.User),
	}
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	creds, err := h.svc.SignUp(r.Context(), identity.SignUpParams{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusCreated, toCredentialsResponse(creds))
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	creds, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, toCredentialsResponse(creds))
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SignOut(r.Context(), middleware.MustSession(r)); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.NoContent(w)
}

type resetRequest struct {
	Email string `json:"email"`
}

// requestReset answers 202 whether or not the email is registered.
func (h *Handler) requestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

type confirmResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *Handler) confirmReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.NoContent(w)
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), middleware.MustSession(r).UserID, req.Password); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.NoContent(w)
}
