package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/activmedica/backend/internal/api/middleware"
	"github.com/activmedica/backend/internal/application/services"
)

var validate = validator.New()

// AuthService defines the authentication operations used by the handler.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *services.Claims, error)
	Signup(ctx context.Context, email, password string) (string, *services.Claims, error)
	Logout(ctx context.Context, token string, claims *services.Claims) error
}

// SessionCloser releases per-session resources on logout.
type SessionCloser interface {
	ForgetSession(sessionID string)
}

// AuthHandler handles signup, login and logout.
type AuthHandler struct {
	service AuthService
	closer  SessionCloser
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(service AuthService, closer SessionCloser) *AuthHandler {
	return &AuthHandler{
		service: service,
		closer:  closer,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type authResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	token, claims, err := h.service.Signup(r.Context(), payload.Email, payload.Password)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, authResponse{Token: token, Email: claims.Email})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	token, claims, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, authResponse{Token: token, Email: claims.Email})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	token := bearerToken(r)
	if err := h.service.Logout(r.Context(), token, claims); err != nil {
		respondWithAppError(w, err)
		return
	}
	h.closer.ForgetSession(claims.SessionID)

	w.WriteHeader(http.StatusNoContent)
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (*credentialsRequest, bool) {
	var payload credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return nil, false
	}
	payload.Email = strings.TrimSpace(payload.Email)

	if err := validate.Struct(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "email and a password of at least 6 characters are required")
		return nil, false
	}
	return &payload, true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	return strings.TrimPrefix(header, "Bearer ")
}
