package session

import (
	"sync"

	"github.com/activmedica/backend/internal/domain/entities"
	"github.com/activmedica/backend/internal/domain/providers"
	"github.com/google/uuid"
)

// MemoryStore implements the SessionStore provider with an in-process map.
// Report bytes and chat history are session affine, so they stay in the
// serving process rather than an external cache.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entities.SessionState
}

// NewMemoryStore creates an empty session store.
func NewMemoryStore() providers.SessionStore {
	return &MemoryStore{
		sessions: make(map[string]*entities.SessionState),
	}
}

// Create opens a new session for a user and returns its id.
func (s *MemoryStore) Create(userID, email string) string {
	sessionID := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = &entities.SessionState{
		UserID: userID,
		Email:  email,
	}
	return sessionID
}

// Get returns the state for a session id.
func (s *MemoryStore) Get(sessionID string) (*entities.SessionState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[sessionID]
	return state, ok
}

// Save replaces the state for a session id. Saving an unknown session is a
// no-op; the session may have been deleted by a concurrent logout.
func (s *MemoryStore) Save(sessionID string, state *entities.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		s.sessions[sessionID] = state
	}
}

// Delete drops a session and all its accumulated state.
func (s *MemoryStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
