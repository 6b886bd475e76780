package reliability

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy decides whether and when a failed call is attempted again
type RetryPolicy interface {
	// ShouldRetry determines if a retry should be attempted after the given attempt failed
	ShouldRetry(attempt int, err error) (bool, time.Duration)
	// MaxRetries returns the maximum number of retries
	MaxRetries() int
	// NextDelay calculates the delay before the next attempt
	NextDelay(attempt int) time.Duration
}

// Limit bounds the number of retries and classifies errors. It is embedded
// by the built-in policies.
type Limit struct {
	MaxAttempts int
	// Retryable reports whether an error may be retried. Nil means IsRetryable.
	Retryable func(error) bool
}

// MaxRetries implements RetryPolicy
func (l Limit) MaxRetries() int {
	return l.MaxAttempts
}

func (l Limit) allows(attempt int, err error) bool {
	if attempt >= l.MaxAttempts || err == nil {
		return false
	}
	if l.Retryable != nil {
		return l.Retryable(err)
	}
	return IsRetryable(err)
}

// jitter spreads d uniformly over ±15%
func jitter(d time.Duration) time.Duration {
	return d + time.Duration((rand.Float64()*0.3-0.15)*float64(d))
}

// ExponentialBackoff multiplies the delay after every attempt up to MaxInterval
type ExponentialBackoff struct {
	Limit
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          bool
}

// NewExponentialBackoff creates an exponential backoff policy with jitter
func NewExponentialBackoff(initial, max time.Duration, multiplier float64, maxRetries int) *ExponentialBackoff {
	return &ExponentialBackoff{
		Limit:           Limit{MaxAttempts: maxRetries},
		InitialInterval: initial,
		MaxInterval:     max,
		Multiplier:      multiplier,
		Jitter:          true,
	}
}

// ShouldRetry implements RetryPolicy
func (e *ExponentialBackoff) ShouldRetry(attempt int, err error) (bool, time.Duration) {
	if !e.allows(attempt, err) {
		return false, 0
	}
	return true, e.NextDelay(attempt)
}

// NextDelay implements RetryPolicy
func (e *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := time.Duration(min(
		float64(e.InitialInterval)*math.Pow(e.Multiplier, float64(attempt)),
		float64(e.MaxInterval),
	))
	if e.Jitter {
		return jitter(delay)
	}
	return delay
}

// LinearBackoff waits the same interval, with optional jitter, between attempts
type LinearBackoff struct {
	Limit
	Interval time.Duration
	Jitter   bool
}

// NewLinearBackoff creates a linear backoff policy with jitter
func NewLinearBackoff(interval time.Duration, maxRetries int) *LinearBackoff {
	return &LinearBackoff{
		Limit:    Limit{MaxAttempts: maxRetries},
		Interval: interval,
		Jitter:   true,
	}
}

// ShouldRetry implements RetryPolicy
func (l *LinearBackoff) ShouldRetry(attempt int, err error) (bool, time.Duration) {
	if !l.allows(attempt, err) {
		return false, 0
	}
	return true, l.NextDelay(attempt)
}

// NextDelay implements RetryPolicy
func (l *LinearBackoff) NextDelay(int) time.Duration {
	if l.Jitter {
		return jitter(l.Interval)
	}
	return l.Interval
}

// FixedDelay waits exactly Delay between attempts
type FixedDelay struct {
	Limit
	Delay time.Duration
}

// NewFixedDelay creates a fixed delay policy
func NewFixedDelay(delay time.Duration, maxRetries int) *FixedDelay {
	return &FixedDelay{Limit: Limit{MaxAttempts: maxRetries}, Delay: delay}
}

// ShouldRetry implements RetryPolicy
func (f *FixedDelay) ShouldRetry(attempt int, err error) (bool, time.Duration) {
	if !f.allows(attempt, err) {
		return false, 0
	}
	return true, f.Delay
}

// NextDelay implements RetryPolicy
func (f *FixedDelay) NextDelay(int) time.Duration {
	return f.Delay
}

// Retry runs fn until it succeeds, the policy gives up, or ctx is done.
// fn receives the zero-based attempt number. When the policy gives up the
// last error is returned as is.
func Retry(ctx context.Context, policy RetryPolicy, fn func(attempt int) error) error {
	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}

		shouldRetry, delay := policy.ShouldRetry(attempt, err)
		if !shouldRetry {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// IsRetryable reports whether err may be retried. Errors that implement
// IsRetryable() bool decide for themselves; everything else is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r interface{ IsRetryable() bool }
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return true
}

// RetryableError wraps an error to mark it retryable or not
type RetryableError struct {
	Err       error
	Retryable bool
}

// Error implements error interface
func (r RetryableError) Error() string {
	return r.Err.Error()
}

// IsRetryable indicates if the error is retryable
func (r RetryableError) IsRetryable() bool {
	return r.Retryable
}

// Unwrap returns the wrapped error
func (r RetryableError) Unwrap() error {
	return r.Err
}

// Permanent marks err as not retryable
func Permanent(err error) error {
	return RetryableError{Err: err, Retryable: false}
}
