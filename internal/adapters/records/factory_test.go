package records

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/activmedica/backend/internal/infrastructure/clients/postgres"
)

func TestNewRecordStore(t *testing.T) {
	t.Run("defaults to postgres", func(t *testing.T) {
		store, err := NewRecordStore("", &postgres.Client{}, nil)

		assert.NoError(t, err)
		assert.IsType(t, &PostgresAdapter{}, store)
	})

	t.Run("rejects a backend without its client", func(t *testing.T) {
		_, err := NewRecordStore(BackendMongo, &postgres.Client{}, nil)
		assert.Error(t, err)

		_, err = NewRecordStore(BackendPostgres, nil, nil)
		assert.Error(t, err)
	})

	t.Run("rejects an unknown backend", func(t *testing.T) {
		_, err := NewRecordStore("dynamo", nil, nil)
		assert.Error(t, err)
	})
}
