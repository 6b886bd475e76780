package interceptors

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/glimte/mmate-plugin/internal/reliability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRetryInterceptor(t *testing.T) {
	t.Run("retries until the call succeeds", func(t *testing.T) {
		var buf bytes.Buffer
		target := &mockInventory{}
		target.On("Reserve", mock.Anything, "sku-1", 1).Return("", errOutOfStock).Twice()
		target.On("Reserve", mock.Anything, "sku-1", 1).Return("r-1", nil).Once()

		interceptor := NewRetryInterceptor(reliability.NewFixedDelay(time.Millisecond, 3), reserveSignature()).
			WithLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
		inv := wrap(t, target, interceptor)

		id, err := inv.Reserve(context.Background(), "sku-1", 1)

		require.NoError(t, err)
		assert.Equal(t, "r-1", id)
		target.AssertNumberOfCalls(t, "Reserve", 3)
		assert.Contains(t, buf.String(), "retrying method call")
	})

	t.Run("returns the last error unchanged", func(t *testing.T) {
		target := &mockInventory{}
		target.On("Count", "sku-1").Return(0, errOutOfStock)

		inv := wrap(t, target, NewRetryInterceptor(reliability.NewFixedDelay(time.Millisecond, 2), countSignature()))
		_, err := inv.Count("sku-1")

		assert.Same(t, errOutOfStock, err)
		target.AssertNumberOfCalls(t, "Count", 3)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		fatal := reliability.Permanent(errOutOfStock)
		target := &mockInventory{}
		target.On("Count", "sku-1").Return(0, fatal)

		inv := wrap(t, target, NewRetryInterceptor(reliability.NewFixedDelay(time.Millisecond, 5), countSignature()))
		_, err := inv.Count("sku-1")

		assert.ErrorIs(t, err, errOutOfStock)
		target.AssertNumberOfCalls(t, "Count", 1)
	})

	t.Run("stops when the call context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		target := &mockInventory{}

		inv := wrap(t, target, NewRetryInterceptor(reliability.NewFixedDelay(time.Millisecond, 5), reserveSignature()))
		_, err := inv.Reserve(ctx, "sku-1", 1)

		assert.ErrorIs(t, err, context.Canceled)
	})
}
