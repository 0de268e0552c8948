package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/activmedica/backend/internal/api/middleware"
	"github.com/activmedica/backend/internal/application/services"
	"github.com/activmedica/backend/internal/domain/entities"
	"github.com/activmedica/backend/internal/domain/providers"
)

const maxQueryLength = 4000

// ChatService defines the chat operations used by the handler.
type ChatService interface {
	OnChatSurfaceEntered(ctx context.Context, sessionID string) (*services.ChatUpdate, error)
	OnUserQuery(ctx context.Context, sessionID, query string) (string, error)
	History(sessionID string) ([]entities.ChatMessage, error)
}

// ChatHandler handles the chat surface: entry, queries and transcript reads.
// Queries are rate limited per session, backed by the shared cache with a
// local fallback when no cache is configured.
type ChatHandler struct {
	service    ChatService
	cache      providers.CacheProvider
	rateLimit  int
	rateWindow time.Duration
	local      *localRateLimiter
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(service ChatService, cache providers.CacheProvider, rateLimit int, rateWindow time.Duration) *ChatHandler {
	return &ChatHandler{
		service:    service,
		cache:      cache,
		rateLimit:  rateLimit,
		rateWindow: rateWindow,
		local:      newLocalRateLimiter(),
	}
}

type chatQueryRequest struct {
	Message string `json:"message"`
}

// EnterChat handles POST /api/chat/enter
func (h *ChatHandler) EnterChat(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	update, err := h.service.OnChatSurfaceEntered(r.Context(), claims.SessionID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, update)
}

// Query handles POST /api/chat/query
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload chatQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	payload.Message = strings.TrimSpace(payload.Message)
	if payload.Message == "" {
		respondWithError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(payload.Message) > maxQueryLength {
		respondWithError(w, http.StatusBadRequest, "message is too long")
		return
	}

	key := "chat:rate:" + claims.SessionID
	allowed, retryAfter := h.allowRequest(r.Context(), key)
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	reply, err := h.service.OnUserQuery(r.Context(), claims.SessionID, payload.Message)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"reply": reply,
	})
}

// GetHistory handles GET /api/chat/history
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	history, err := h.service.History(claims.SessionID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"messages": history,
		"count":    len(history),
	})
}

func (h *ChatHandler) allowRequest(ctx context.Context, key string) (bool, time.Duration) {
	if h.cache == nil {
		return h.local.allow(key, h.rateLimit, h.rateWindow)
	}

	count, err := h.cache.Incr(ctx, key, int(h.rateWindow.Seconds()))
	if err != nil {
		return h.local.allow(key, h.rateLimit, h.rateWindow)
	}
	if count > int64(h.rateLimit) {
		return false, h.rateWindow
	}
	return true, h.rateWindow
}

type localRateLimiter struct {
	mu     sync.Mutex
	states map[string]*localRateState
}

type localRateState struct {
	count   int
	resetAt time.Time
}

func newLocalRateLimiter() *localRateLimiter {
	return &localRateLimiter{
		states: make(map[string]*localRateState),
	}
}

func (l *localRateLimiter) allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[key]
	if !ok || now.After(state.resetAt) {
		state = &localRateState{count: 0, resetAt: now.Add(window)}
		l.states[key] = state
	}

	if state.count >= limit {
		retryAfter := time.Until(state.resetAt)
		if retryAfter < 0 {
			retryAfter = window
		}
		return false, retryAfter
	}

	state.count++
	return true, window
}
