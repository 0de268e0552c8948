package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/activmedica/backend/internal/api/handlers"
	"github.com/activmedica/backend/internal/application/services"
	"github.com/activmedica/backend/internal/domain/entities"
	apperrors "github.com/activmedica/backend/pkg/errors"
)

type stubChatService struct {
	mu       sync.Mutex
	update   *services.ChatUpdate
	reply    string
	err      error
	queries  []string
	sessions []string
}

func (s *stubChatService) OnChatSurfaceEntered(ctx context.Context, sessionID string) (*services.ChatUpdate, error) {
	s.mu.Lock()
	s.sessions = append(s.sessions, sessionID)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.update, nil
}

func (s *stubChatService) OnUserQuery(ctx context.Context, sessionID, query string) (string, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubChatService) History(sessionID string) ([]entities.ChatMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.update == nil {
		return nil, nil
	}
	return s.update.History, nil
}

func TestChatHandler_EnterChat_Seeds(t *testing.T) {
	service := &stubChatService{
		update: &services.ChatUpdate{
			Seeded: true,
			History: []entities.ChatMessage{
				{Role: entities.ChatRoleUser, Text: "findings..."},
				{Role: entities.ChatRoleAssistant, Text: "analysis..."},
			},
		},
	}
	handler := handlers.NewChatHandler(service, nil, 30, time.Minute)

	req := authedRequest(httptest.NewRequest("POST", "/api/chat/enter", nil))
	w := httptest.NewRecorder()

	handler.EnterChat(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"session-1"}, service.sessions)

	var response map[string]interface{}
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, true, response["seeded"])
}

func TestChatHandler_EnterChat_ModelFailure(t *testing.T) {
	service := &stubChatService{err: apperrors.NewChatCallError("report analysis failed", nil)}
	handler := handlers.NewChatHandler(service, nil, 30, time.Minute)

	req := authedRequest(httptest.NewRequest("POST", "/api/chat/enter", nil))
	w := httptest.NewRecorder()

	handler.EnterChat(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestChatHandler_Query_Success(t *testing.T) {
	service := &stubChatService{reply: "It looks benign."}
	handler := handlers.NewChatHandler(service, nil, 30, time.Minute)

	body := `{"message":"What does it mean?"}`
	req := authedRequest(httptest.NewRequest("POST", "/api/chat/query", strings.NewReader(body)))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"What does it mean?"}, service.queries)

	var response map[string]string
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "It looks benign.", response["reply"])
}

func TestChatHandler_Query_RejectsEmptyMessage(t *testing.T) {
	handler := handlers.NewChatHandler(&stubChatService{}, nil, 30, time.Minute)

	body := `{"message":"   "}`
	req := authedRequest(httptest.NewRequest("POST", "/api/chat/query", strings.NewReader(body)))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHandler_Query_RateLimit(t *testing.T) {
	service := &stubChatService{reply: "ok"}
	handler := handlers.NewChatHandler(service, nil, 2, time.Minute)

	for i := 0; i < 2; i++ {
		body := `{"message":"question"}`
		req := authedRequest(httptest.NewRequest("POST", "/api/chat/query", strings.NewReader(body)))
		w := httptest.NewRecorder()
		handler.Query(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	body := `{"message":"one too many"}`
	req := authedRequest(httptest.NewRequest("POST", "/api/chat/query", strings.NewReader(body)))
	w := httptest.NewRecorder()
	handler.Query(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Len(t, service.queries, 2)
}

// countingCache backs the limiter with an atomic counter like redis INCR.
type countingCache struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newCountingCache() *countingCache {
	return &countingCache{counts: make(map[string]int64)}
}

func (c *countingCache) Get(_ context.Context, key string) ([]byte, error) {
	return nil, apperrors.NewNotFoundError("cache miss")
}

func (c *countingCache) Set(_ context.Context, key string, value []byte, _ int) error {
	return nil
}

func (c *countingCache) Incr(_ context.Context, key string, _ int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

func (c *countingCache) Delete(_ context.Context, key string) error {
	return nil
}

func (c *countingCache) Exists(_ context.Context, key string) (bool, error) {
	return false, nil
}

func TestChatHandler_Query_RateLimit_CacheBackedIsExact(t *testing.T) {
	service := &stubChatService{reply: "ok"}
	cache := newCountingCache()
	handler := handlers.NewChatHandler(service, cache, 3, time.Minute)

	var wg sync.WaitGroup
	var allowed int64
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := `{"message":"question"}`
			req := authedRequest(httptest.NewRequest("POST", "/api/chat/query", strings.NewReader(body)))
			w := httptest.NewRecorder()
			handler.Query(w, req)
			if w.Code == http.StatusOK {
				atomic.AddInt64(&allowed, 1)
			} else {
				assert.Equal(t, http.StatusTooManyRequests, w.Code)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(3), allowed)
	assert.Equal(t, int64(10), cache.counts["chat:rate:session-1"])
}

func TestChatHandler_GetHistory(t *testing.T) {
	service := &stubChatService{
		update: &services.ChatUpdate{
			History: []entities.ChatMessage{
				{Role: entities.ChatRoleUser, Text: "q"},
				{Role: entities.ChatRoleAssistant, Text: "a"},
			},
		},
	}
	handler := handlers.NewChatHandler(service, nil, 30, time.Minute)

	req := authedRequest(httptest.NewRequest("GET", "/api/chat/history", nil))
	w := httptest.NewRecorder()

	handler.GetHistory(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, float64(2), response["count"])
}

func TestChatHandler_RequiresAuth(t *testing.T) {
	handler := handlers.NewChatHandler(&stubChatService{}, nil, 30, time.Minute)

	req := httptest.NewRequest("POST", "/api/chat/enter", nil)
	w := httptest.NewRecorder()
	handler.EnterChat(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest("GET", "/api/chat/history", nil)
	w = httptest.NewRecorder()
	handler.GetHistory(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
