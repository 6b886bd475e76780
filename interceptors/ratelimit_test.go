package interceptors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLimiter(t *testing.T) {
	t.Run("allows the burst then rejects", func(t *testing.T) {
		limiter := NewKeyedLimiter(0.001, 2)

		assert.NoError(t, limiter.Allow(context.Background(), "a"))
		assert.NoError(t, limiter.Allow(context.Background(), "a"))
		assert.ErrorIs(t, limiter.Allow(context.Background(), "a"), ErrRateLimited)
	})

	t.Run("keys have separate buckets", func(t *testing.T) {
		limiter := NewKeyedLimiter(0.001, 1)

		assert.NoError(t, limiter.Allow(context.Background(), "a"))
		assert.NoError(t, limiter.Allow(context.Background(), "b"))
	})

	t.Run("cancelled context is rejected", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, NewKeyedLimiter(10, 10).Allow(ctx, "a"), context.Canceled)
	})
}
