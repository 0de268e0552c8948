package providers

import (
	"context"

	"github.com/activmedica/backend/internal/domain/entities"
)

// RecordStore persists report records under a user-scoped namespace.
// Records are append-only; nothing in this service mutates or deletes them.
type RecordStore interface {
	Append(ctx context.Context, record *entities.ReportRecord) error
	ListByUser(ctx context.Context, userID string) ([]*entities.ReportRecord, error)
}
