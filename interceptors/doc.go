// Package interceptors provides ready-made plugin.Interceptor implementations
// for cross-cutting concerns around contract method calls.
//
// Every built-in is constructed with the signatures it should observe and
// calls plugin.Invocation.Proceed to reach the next layer or the target.
// Methods that are not declared pass straight through.
//
// Built-in interceptors:
//   - LoggingInterceptor: Logs calls with a call id and timing information
//   - MetricsInterceptor: Reports call counts, durations and errors to a MetricsCollector
//   - TracingInterceptor: Opens a span and hands its context to the target
//   - ValidationInterceptor: Validates arguments before the call proceeds
//   - RateLimitingInterceptor: Limits calls per method
//   - TimeoutInterceptor: Puts a deadline on the context argument
//   - RetryInterceptor: Proceeds again under a retry policy
//   - ErrorHandlingInterceptor: Hands failures to an ErrorHandler
//   - CircuitBreakerInterceptor: Runs calls through a circuit breaker
//   - ShortCircuitInterceptor, CachingInterceptor: Answer calls without the target
//   - FilteringInterceptor, ConditionalInterceptor: Skip or guard calls by filter
//
// Example usage:
//
//	get := plugin.SignatureFor[Store]("Get", reflect.TypeFor[string]())
//
//	chain, err := interceptors.NewChainBuilder(logger, get).
//		WithLogging().
//		WithMetrics(collector).
//		WithTimeout(5 * time.Second).
//		WithRetry(reliability.NewExponentialBackoff(100*time.Millisecond, time.Second, 2, 3)).
//		Build()
//	if err != nil {
//		return err
//	}
//
//	store, err = plugin.ApplyAs[Store](chain, store)
//
// Interceptors added later wrap the ones added earlier, so the last one sees
// the call first.
package interceptors
