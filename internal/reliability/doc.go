// Package reliability provides the retry and circuit breaker primitives used by
// the resilience interceptors.
//
// This package implements:
//   - Retry Policies: exponential backoff, linear and fixed delay
//   - Retry: runs a call until it succeeds or the policy gives up
//   - Circuit Breaker: stops calling a failing operation until it recovers
//
// Errors can opt out of retries by implementing IsRetryable() bool, or by being
// wrapped with Permanent. A policy's Limit.Retryable replaces that check with a
// transport specific classifier.
//
// Example usage:
//
//	cb := NewCircuitBreaker(
//	    WithFailureThreshold(5),
//	    WithSuccessThreshold(3),
//	    WithTimeout(30 * time.Second),
//	)
//
//	err := cb.Execute(ctx, func() error {
//	    return riskyOperation()
//	})
package reliability
