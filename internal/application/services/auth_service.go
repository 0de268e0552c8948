package services

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/activmedica/backend/internal/domain/providers"
	apperrors "github.com/activmedica/backend/pkg/errors"
)

const (
	tokenKeyPrefix  = "auth:token:"
	tokenTTLSeconds = 24 * 60 * 60
)

// Claims identifies the caller behind a bearer token.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
}

// AuthService exchanges credentials for bearer tokens and resolves tokens
// back to their session.
type AuthService struct {
	authenticator providers.Authenticator
	sessions      providers.SessionStore
	cache         providers.CacheProvider
}

// NewAuthService creates a new auth service. A nil cache falls back to an
// in-process token store, so tokens survive only as long as the process.
func NewAuthService(authenticator providers.Authenticator, sessions providers.SessionStore, cache providers.CacheProvider) *AuthService {
	if cache == nil {
		cache = newMemoryTokenCache()
	}
	return &AuthService{
		authenticator: authenticator,
		sessions:      sessions,
		cache:         cache,
	}
}

// Login verifies credentials, opens a fresh session and returns its token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *Claims, error) {
	account, err := s.authenticator.Login(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	return s.openSession(ctx, account.UserID, account.Email)
}

// Signup registers a new account and logs it straight in.
func (s *AuthService) Signup(ctx context.Context, email, password string) (string, *Claims, error) {
	account, err := s.authenticator.Signup(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	return s.openSession(ctx, account.UserID, account.Email)
}

// Resolve maps a bearer token to its claims. Unknown or expired tokens
// resolve to an unauthorized error.
func (s *AuthService) Resolve(ctx context.Context, token string) (*Claims, error) {
	data, err := s.cache.Get(ctx, tokenKeyPrefix+token)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid or expired token")
	}

	var claims Claims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid or expired token")
	}

	if _, ok := s.sessions.Get(claims.SessionID); !ok {
		return nil, apperrors.NewUnauthorizedError("session no longer active")
	}
	return &claims, nil
}

// Logout revokes the token and drops the session.
func (s *AuthService) Logout(ctx context.Context, token string, claims *Claims) error {
	if err := s.cache.Delete(ctx, tokenKeyPrefix+token); err != nil {
		return apperrors.NewInternalError("failed to revoke token", err)
	}
	s.sessions.Delete(claims.SessionID)
	return nil
}

func (s *AuthService) openSession(ctx context.Context, userID, email string) (string, *Claims, error) {
	sessionID := s.sessions.Create(userID, email)
	claims := &Claims{
		UserID:    userID,
		SessionID: sessionID,
		Email:     email,
	}

	token := uuid.NewString()
	data, err := json.Marshal(claims)
	if err != nil {
		s.sessions.Delete(sessionID)
		return "", nil, apperrors.NewInternalError("failed to encode session claims", err)
	}
	if err := s.cache.Set(ctx, tokenKeyPrefix+token, data, tokenTTLSeconds); err != nil {
		s.sessions.Delete(sessionID)
		return "", nil, apperrors.NewInternalError("failed to store session token", err)
	}
	return token, claims, nil
}

// memoryTokenCache backs token storage when no shared cache is configured.
type memoryTokenCache struct {
	mu      sync.Mutex
	entries map[string]memoryTokenEntry
}

type memoryTokenEntry struct {
	value     []byte
	expiresAt time.Time
}

func newMemoryTokenCache() *memoryTokenCache {
	return &memoryTokenCache{entries: make(map[string]memoryTokenEntry)}
}

func (c *memoryTokenCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, apperrors.NewNotFoundError("key not found: " + key)
	}
	return entry.value, nil
}

func (c *memoryTokenCache) Set(_ context.Context, key string, value []byte, expirationSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryTokenEntry{
		value:     value,
		expiresAt: time.Now().Add(time.Duration(expirationSeconds) * time.Second),
	}
	return nil
}

func (c *memoryTokenCache) Incr(_ context.Context, key string, expirationSeconds int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var count int64
	entry, ok := c.entries[key]
	if ok && time.Now().Before(entry.expiresAt) {
		count, _ = strconv.ParseInt(string(entry.value), 10, 64)
	} else {
		entry.expiresAt = time.Now().Add(time.Duration(expirationSeconds) * time.Second)
	}
	count++
	entry.value = []byte(strconv.FormatInt(count, 10))
	c.entries[key] = entry
	return count, nil
}

func (c *memoryTokenCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memoryTokenCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return false, nil
	}
	return true, nil
}
