package records

import (
	"fmt"

	"github.com/activmedica/backend/internal/domain/providers"
	"github.com/activmedica/backend/internal/infrastructure/clients/mongodb"
	"github.com/activmedica/backend/internal/infrastructure/clients/postgres"
)

// Backend names accepted by NewRecordStore.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// NewRecordStore selects a record store adapter by configured backend. Only
// the selected backend's client needs to be non-nil.
func NewRecordStore(backend string, pg *postgres.Client, mongo *mongodb.Client) (providers.RecordStore, error) {
	switch backend {
	case BackendPostgres, "":
		if pg == nil {
			return nil, fmt.Errorf("postgres record backend selected but no postgres client configured")
		}
		return NewPostgresAdapter(pg), nil
	case BackendMongo:
		if mongo == nil {
			return nil, fmt.Errorf("mongo record backend selected but no mongo client configured")
		}
		return NewMongoAdapter(mongo), nil
	default:
		return nil, fmt.Errorf("unknown record backend %q", backend)
	}
}
