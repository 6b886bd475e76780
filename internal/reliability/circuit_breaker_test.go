package reliability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	mu      sync.Mutex
	changes []string
}

func (l *recordingListener) OnStateChange(name string, from, to State, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, name+":"+from.String()+"->"+to.String())
}

func (l *recordingListener) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.changes...)
}

func fail(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		_ = cb.Execute(context.Background(), func() error { return errors.New("test error") })
	}
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("starts in closed state", func(t *testing.T) {
		cb := NewCircuitBreaker()
		assert.Equal(t, StateClosed, cb.GetState())
		assert.Equal(t, "default", cb.Name())
	})

	t.Run("returns the function error unchanged", func(t *testing.T) {
		cb := NewCircuitBreaker()
		boom := errors.New("boom")

		err := cb.Execute(context.Background(), func() error { return boom })

		assert.Same(t, boom, err)
	})

	t.Run("opens after failure threshold and rejects calls", func(t *testing.T) {
		cb := NewCircuitBreaker(WithFailureThreshold(3), WithName("store"))
		fail(cb, 3)
		require.Equal(t, StateOpen, cb.GetState())

		executed := false
		err := cb.Execute(context.Background(), func() error {
			executed = true
			return nil
		})

		assert.False(t, executed)
		assert.True(t, IsCircuitOpen(err))

		var cbErr *CircuitBreakerError
		require.ErrorAs(t, err, &cbErr)
		assert.Equal(t, StateOpen, cbErr.State)
		assert.Equal(t, "store", cbErr.Name)
		assert.Contains(t, cbErr.Error(), "circuit breaker store open")
	})

	t.Run("success in closed state resets failures", func(t *testing.T) {
		cb := NewCircuitBreaker(WithFailureThreshold(2))
		fail(cb, 1)
		_ = cb.Execute(context.Background(), func() error { return nil })
		fail(cb, 1)

		assert.Equal(t, StateClosed, cb.GetState())
		assert.Equal(t, 1, cb.GetMetrics().CurrentFailures)
	})

	t.Run("half-open closes after success threshold", func(t *testing.T) {
		listener := &recordingListener{}
		cb := NewCircuitBreaker(
			WithFailureThreshold(1),
			WithSuccessThreshold(2),
			WithTimeout(20*time.Millisecond),
			WithName("cb"),
			WithListener(listener),
		)
		fail(cb, 1)
		time.Sleep(40 * time.Millisecond)

		require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
		assert.Equal(t, StateHalfOpen, cb.GetState())
		require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
		assert.Equal(t, StateClosed, cb.GetState())

		assert.Equal(t, []string{"cb:closed->open", "cb:open->half-open", "cb:half-open->closed"}, listener.seen())
	})

	t.Run("half-open reopens on failure", func(t *testing.T) {
		cb := NewCircuitBreaker(WithFailureThreshold(1), WithTimeout(20*time.Millisecond))
		fail(cb, 1)
		time.Sleep(40 * time.Millisecond)

		fail(cb, 1)
		assert.Equal(t, StateOpen, cb.GetState())
	})

	t.Run("half-open limits concurrent calls", func(t *testing.T) {
		cb := NewCircuitBreaker(
			WithFailureThreshold(1),
			WithSuccessThreshold(10),
			WithHalfOpenRequests(1),
			WithTimeout(20*time.Millisecond),
		)
		fail(cb, 1)
		time.Sleep(40 * time.Millisecond)

		release := make(chan struct{})
		started := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- cb.Execute(context.Background(), func() error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started

		err := cb.Execute(context.Background(), func() error { return nil })
		assert.ErrorIs(t, err, ErrCircuitHalfOpenLimit)

		close(release)
		assert.NoError(t, <-done)
	})

	t.Run("Reset closes the circuit", func(t *testing.T) {
		cb := NewCircuitBreaker(WithFailureThreshold(1))
		fail(cb, 1)
		require.Equal(t, StateOpen, cb.GetState())

		cb.Reset()

		assert.Equal(t, StateClosed, cb.GetState())
		assert.Equal(t, 0, cb.GetMetrics().CurrentFailures)
	})

	t.Run("context cancellation skips the call", func(t *testing.T) {
		cb := NewCircuitBreaker()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		executed := false
		err := cb.Execute(ctx, func() error {
			executed = true
			return nil
		})

		assert.Equal(t, context.Canceled, err)
		assert.False(t, executed)
	})

	t.Run("metrics count requests", func(t *testing.T) {
		cb := NewCircuitBreaker(WithFailureThreshold(5), WithName("metrics"))
		fail(cb, 2)
		_ = cb.Execute(context.Background(), func() error { return nil })

		m := cb.GetMetrics()
		assert.Equal(t, "metrics", m.Name)
		assert.Equal(t, int64(3), m.TotalRequests)
		assert.Equal(t, int64(2), m.TotalFailures)
		assert.Equal(t, int64(1), m.TotalSuccesses)
		assert.NotZero(t, m.LastFailureTime)
	})
}

func TestCircuitBreakerOptions(t *testing.T) {
	t.Run("uses defaults when no options", func(t *testing.T) {
		cb := NewCircuitBreaker()

		assert.Equal(t, 5, cb.failureThreshold)
		assert.Equal(t, 3, cb.successThreshold)
		assert.Equal(t, 30*time.Second, cb.timeout)
		assert.Equal(t, 3, cb.halfOpenRequests)
	})
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}
