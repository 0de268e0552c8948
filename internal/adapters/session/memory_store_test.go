package session

import (
	"testing"

	"github.com/activmedica/backend/internal/domain/entities"
	"github.com/stretchr/testify/assert"
)

func TestMemoryStore(t *testing.T) {
	t.Run("create and get", func(t *testing.T) {
		store := NewMemoryStore()

		id := store.Create("user-1", "jane@example.com")
		assert.NotEmpty(t, id)

		state, ok := store.Get(id)
		assert.True(t, ok)
		assert.Equal(t, "user-1", state.UserID)
		assert.Equal(t, "jane@example.com", state.Email)
		assert.False(t, state.Analyzed)
		assert.False(t, state.HasReport())
	})

	t.Run("sessions are independent", func(t *testing.T) {
		store := NewMemoryStore()

		first := store.Create("user-1", "jane@example.com")
		second := store.Create("user-2", "john@example.com")
		assert.NotEqual(t, first, second)

		state, _ := store.Get(first)
		state.ExtractedText = "findings"
		store.Save(first, state)

		other, _ := store.Get(second)
		assert.Empty(t, other.ExtractedText)
	})

	t.Run("delete drops state", func(t *testing.T) {
		store := NewMemoryStore()

		id := store.Create("user-1", "jane@example.com")
		store.Delete(id)

		_, ok := store.Get(id)
		assert.False(t, ok)
	})

	t.Run("save after delete is a no-op", func(t *testing.T) {
		store := NewMemoryStore()

		id := store.Create("user-1", "jane@example.com")
		store.Delete(id)

		store.Save(id, &entities.SessionState{UserID: "user-1"})
		_, ok := store.Get(id)
		assert.False(t, ok)
	})
}
