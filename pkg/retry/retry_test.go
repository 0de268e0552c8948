package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDo(t *testing.T) {
	cfg := Config{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}

	t.Run("succeeds on first attempt", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), cfg, func() error {
			calls++
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), cfg, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), cfg, func() error {
			calls++
			return errors.New("persistent")
		})

		assert.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "max retry attempts")
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Do(ctx, cfg, func() error {
			return errors.New("never succeeds")
		})

		assert.Error(t, err)
	})
}
