package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/activmedica/backend/internal/domain/providers"
	"github.com/activmedica/backend/pkg/config"
	apperrors "github.com/activmedica/backend/pkg/errors"
)

// Client implements the Authenticator provider against an identity-toolkit
// style REST API (email/password sign-in and sign-up).
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new identity client.
func NewClient(cfg *config.IdentityConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("identity api key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type credentialsRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type accountResponse struct {
	LocalID string `json:"localId"`
	Email   string `json:"email"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Login signs in with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*providers.Account, error) {
	return c.post(ctx, "accounts:signInWithPassword", email, password)
}

// Signup creates a new account with email and password.
func (c *Client) Signup(ctx context.Context, email, password string) (*providers.Account, error) {
	return c.post(ctx, "accounts:signUp", email, password)
}

func (c *Client) post(ctx context.Context, action, email, password string) (*providers.Account, error) {
	body, err := json.Marshal(credentialsRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?key=%s", c.baseURL, action, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewAuthError("identity provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, apperrors.NewAuthError(translateIdentityError(apiErr.Error.Message), nil)
	}

	var account accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, apperrors.NewAuthError("invalid identity provider response", err)
	}
	if account.LocalID == "" {
		return nil, apperrors.NewAuthError("identity provider returned no account id", nil)
	}

	return &providers.Account{
		UserID: account.LocalID,
		Email:  account.Email,
	}, nil
}

func translateIdentityError(code string) string {
	switch {
	case strings.HasPrefix(code, "EMAIL_EXISTS"):
		return "email already exists"
	case strings.HasPrefix(code, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(code, "INVALID_PASSWORD"),
		strings.HasPrefix(code, "INVALID_LOGIN_CREDENTIALS"):
		return "invalid email or password"
	case strings.HasPrefix(code, "WEAK_PASSWORD"):
		return "password is too weak"
	default:
		return "identity provider request failed"
	}
}
