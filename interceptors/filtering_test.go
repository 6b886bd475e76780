package interceptors

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/glimte/mmate-plugin/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func skuFilter(allowed string) FilterFunc {
	return func(inv *plugin.Invocation) (bool, error) {
		return inv.Args()[0] == allowed, nil
	}
}

func TestFilteringInterceptor(t *testing.T) {
	t.Run("allowed calls proceed", func(t *testing.T) {
		target := &mockInventory{}
		target.On("Count", "a").Return(1, nil)

		inv := wrap(t, target, NewFilteringInterceptor(skuFilter("a"), SkipWithError, countSignature()))
		count, err := inv.Count("a")

		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	tests := []struct {
		name     string
		behavior SkipBehavior
		wantErr  bool
		wantLog  bool
	}{
		{"skip silently", SkipSilently, false, false},
		{"skip with error", SkipWithError, true, false},
		{"skip with log", SkipWithLog, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			target := &mockInventory{}
			interceptor := NewFilteringInterceptor(skuFilter("a"), tt.behavior, countSignature()).
				WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))

			inv := wrap(t, target, interceptor)
			count, err := inv.Count("b")

			assert.Equal(t, 0, count)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrFiltered)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantLog, bytes.Contains(buf.Bytes(), []byte("call filtered")))
			target.AssertNotCalled(t, "Count", mock.Anything)
		})
	}

	t.Run("filter error is wrapped", func(t *testing.T) {
		filterErr := errors.New("broken filter")
		filter := FilterFunc(func(*plugin.Invocation) (bool, error) { return false, filterErr })

		inv := wrap(t, &mockInventory{}, NewFilteringInterceptor(filter, SkipSilently, countSignature()))
		_, err := inv.Count("a")

		assert.ErrorIs(t, err, filterErr)
		assert.Contains(t, err.Error(), "filter error")
	})
}

func TestFilters(t *testing.T) {
	var seen *plugin.Invocation
	capture := plugin.NewInterceptorFunc("capture", []plugin.Signature{countSignature(), reserveSignature()}, func(inv *plugin.Invocation) ([]any, error) {
		seen = inv
		return inv.Method().ZeroResults(), nil
	})
	inv := wrap(t, &mockInventory{}, capture)

	_, _ = inv.Count("a")
	countCall := seen
	_, _ = inv.Reserve(context.Background(), "a", 1)
	reserveCall := seen

	yes := FilterFunc(func(*plugin.Invocation) (bool, error) { return true, nil })
	no := FilterFunc(func(*plugin.Invocation) (bool, error) { return false, nil })

	t.Run("composite filter needs every filter", func(t *testing.T) {
		ok, err := NewCompositeFilter(yes, yes).ShouldProceed(countCall)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, _ = NewCompositeFilter(yes, no).ShouldProceed(countCall)
		assert.False(t, ok)
	})

	t.Run("or filter needs one filter", func(t *testing.T) {
		ok, _ := NewOrFilter(no, yes).ShouldProceed(countCall)
		assert.True(t, ok)

		ok, _ = NewOrFilter(no, no).ShouldProceed(countCall)
		assert.False(t, ok)
	})

	t.Run("method filter matches names and labels", func(t *testing.T) {
		ok, _ := NewMethodFilter("Count").ShouldProceed(countCall)
		assert.True(t, ok)

		ok, _ = NewMethodFilter("Inventory.Reserve").ShouldProceed(reserveCall)
		assert.True(t, ok)

		ok, _ = NewMethodFilter("Count").ShouldProceed(reserveCall)
		assert.False(t, ok)
	})

	t.Run("context filter reads the interceptor context", func(t *testing.T) {
		ok, _ := NewContextBasedFilter("tenant", "acme").ShouldProceed(reserveCall)
		assert.False(t, ok)

		ic := NewInterceptorContext()
		ic.Set("tenant", "acme")
		withTenant := &mockInventory{}
		var matched bool
		probe := plugin.NewInterceptorFunc("probe", []plugin.Signature{reserveSignature()}, func(inv *plugin.Invocation) ([]any, error) {
			matched, _ = NewContextBasedFilter("tenant", "acme").ShouldProceed(inv)
			return []any{""}, nil
		})

		_, _ = wrap(t, withTenant, probe).Reserve(WithInterceptorContext(context.Background(), ic), "a", 1)
		assert.True(t, matched)
	})
}

func TestConditionalInterceptor(t *testing.T) {
	t.Run("runs the inner interceptor only when the condition holds", func(t *testing.T) {
		target := &mockInventory{}
		target.On("Count", "live").Return(1, nil)

		conditional := NewConditionalInterceptor(skuFilter("cached"), NewShortCircuitInterceptor(Always(50), countSignature()))
		assert.Equal(t, "ConditionalInterceptor[ShortCircuitInterceptor]", conditional.Name())
		assert.Len(t, conditional.Signatures(), 1)

		inv := wrap(t, target, conditional)

		count, err := inv.Count("cached")
		require.NoError(t, err)
		assert.Equal(t, 50, count)

		count, err = inv.Count("live")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
