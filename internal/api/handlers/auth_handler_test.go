package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/activmedica/backend/internal/api/handlers"
	"github.com/activmedica/backend/internal/api/middleware"
	"github.com/activmedica/backend/internal/application/services"
	apperrors "github.com/activmedica/backend/pkg/errors"
)

type stubAuthService struct {
	loginErr   error
	signupErr  error
	logoutErr  error
	loggedOut  []string
	lastClaims *services.Claims
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *services.Claims, error) {
	if s.loginErr != nil {
		return "", nil, s.loginErr
	}
	return "token-123", &services.Claims{UserID: "user-1", SessionID: "session-1", Email: email}, nil
}

func (s *stubAuthService) Signup(ctx context.Context, email, password string) (string, *services.Claims, error) {
	if s.signupErr != nil {
		return "", nil, s.signupErr
	}
	return "token-456", &services.Claims{UserID: "user-2", SessionID: "session-2", Email: email}, nil
}

func (s *stubAuthService) Logout(ctx context.Context, token string, claims *services.Claims) error {
	if s.logoutErr != nil {
		return s.logoutErr
	}
	s.loggedOut = append(s.loggedOut, token)
	s.lastClaims = claims
	return nil
}

type stubSessionCloser struct {
	forgotten []string
}

func (s *stubSessionCloser) ForgetSession(sessionID string) {
	s.forgotten = append(s.forgotten, sessionID)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	handler := handlers.NewAuthHandler(&stubAuthService{}, &stubSessionCloser{})

	body := `{"email":"jane@example.com","password":"hunter22"}`
	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Login(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.NewDecoder(w.Body).Decode(&response)
	assert.NoError(t, err)
	assert.Equal(t, "token-123", response["token"])
	assert.Equal(t, "jane@example.com", response["email"])
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	service := &stubAuthService{loginErr: apperrors.NewAuthError("invalid credentials", nil)}
	handler := handlers.NewAuthHandler(service, &stubSessionCloser{})

	body := `{"email":"jane@example.com","password":"wrong-pass"}`
	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Login_RejectsMalformedPayload(t *testing.T) {
	handler := handlers.NewAuthHandler(&stubAuthService{}, &stubSessionCloser{})

	for _, body := range []string{
		`not json`,
		`{"email":"not-an-email","password":"hunter22"}`,
		`{"email":"jane@example.com","password":"short"}`,
		`{"email":"jane@example.com"}`,
	} {
		req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	handler := handlers.NewAuthHandler(&stubAuthService{}, &stubSessionCloser{})

	body := `{"email":"new@example.com","password":"hunter22"}`
	req := httptest.NewRequest("POST", "/api/auth/signup", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Signup(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]string
	json.NewDecoder(w.Body).Decode(&response)
	assert.Equal(t, "token-456", response["token"])
}

func TestAuthHandler_Signup_EmailExists(t *testing.T) {
	service := &stubAuthService{signupErr: apperrors.NewAuthError("email already exists", nil)}
	handler := handlers.NewAuthHandler(service, &stubSessionCloser{})

	body := `{"email":"taken@example.com","password":"hunter22"}`
	req := httptest.NewRequest("POST", "/api/auth/signup", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Signup(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	service := &stubAuthService{}
	closer := &stubSessionCloser{}
	handler := handlers.NewAuthHandler(service, closer)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer token-123")
	claims := &services.Claims{UserID: "user-1", SessionID: "session-1", Email: "jane@example.com"}
	req = req.WithContext(middleware.ContextWithClaims(req.Context(), claims))
	w := httptest.NewRecorder()

	handler.Logout(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"token-123"}, service.loggedOut)
	assert.Equal(t, []string{"session-1"}, closer.forgotten)
}

func TestAuthHandler_Logout_Unauthenticated(t *testing.T) {
	handler := handlers.NewAuthHandler(&stubAuthService{}, &stubSessionCloser{})

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	w := httptest.NewRecorder()

	handler.Logout(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
