package providers

import (
	"github.com/activmedica/backend/internal/domain/entities"
)

// SessionStore holds per-session state between requests. One session belongs
// to exactly one user; sessions are never shared across users.
type SessionStore interface {
	Create(userID, email string) string
	Get(sessionID string) (*entities.SessionState, bool)
	Save(sessionID string, state *entities.SessionState)
	Delete(sessionID string)
}
