package interceptors

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/mmate-plugin/internal/reliability"
	"github.com/glimte/mmate-plugin/plugin"
	"github.com/google/uuid"
)

// observes holds the signatures a built-in interceptor was configured with
type observes struct {
	signatures []plugin.Signature
}

func observe(signatures []plugin.Signature) observes {
	return observes{signatures: append([]plugin.Signature(nil), signatures...)}
}

// Signatures implements plugin.Interceptor
func (o observes) Signatures() []plugin.Signature {
	return append([]plugin.Signature(nil), o.signatures...)
}

// Built-in interceptors

// LoggingInterceptor logs every intercepted call with its duration
type LoggingInterceptor struct {
	observes
	logger *slog.Logger
}

// NewLoggingInterceptor creates a new logging interceptor
func NewLoggingInterceptor(logger *slog.Logger, signatures ...plugin.Signature) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return &LoggingInterceptor{observes: observe(signatures), logger: logger}
}

// Intercept implements plugin.Interceptor
func (i *LoggingInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	start := time.Now()
	callID := uuid.New().String()
	method := inv.Method().Label()

	i.logger.Info("calling method",
		"callId", callID,
		"method", method,
		"target", fmt.Sprintf("%T", inv.Target()),
	)

	out, err := inv.Proceed()
	duration := time.Since(start)

	if err != nil {
		i.logger.Error("method call failed",
			"callId", callID,
			"method", method,
			"duration", duration,
			"error", err,
		)
	} else {
		i.logger.Info("method call completed",
			"callId", callID,
			"method", method,
			"duration", duration,
		)
	}

	return out, err
}

// Name implements plugin.Interceptor
func (i *LoggingInterceptor) Name() string {
	return "LoggingInterceptor"
}

// MetricsInterceptor collects metrics about intercepted calls
type MetricsInterceptor struct {
	observes
	collector MetricsCollector
}

// MetricsCollector defines the interface for collecting metrics.
// Methods are identified by their "Contract.Method" label.
type MetricsCollector interface {
	IncrementCallCount(method string)
	RecordCallDuration(method string, duration time.Duration)
	IncrementErrorCount(method string, errorType string)
}

// NewMetricsInterceptor creates a new metrics interceptor
func NewMetricsInterceptor(collector MetricsCollector, signatures ...plugin.Signature) *MetricsInterceptor {
	return &MetricsInterceptor{observes: observe(signatures), collector: collector}
}

// Intercept implements plugin.Interceptor
func (i *MetricsInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	start := time.Now()
	method := inv.Method().Label()

	i.collector.IncrementCallCount(method)

	out, err := inv.Proceed()
	duration := time.Since(start)

	i.collector.RecordCallDuration(method, duration)

	if err != nil {
		i.collector.IncrementErrorCount(method, "call_error")
	}

	return out, err
}

// Name implements plugin.Interceptor
func (i *MetricsInterceptor) Name() string {
	return "MetricsInterceptor"
}

// TracingInterceptor opens a span around every intercepted call. When the
// method takes a context, the span context replaces it.
type TracingInterceptor struct {
	observes
	tracer Tracer
}

// Tracer defines the interface for distributed tracing
type Tracer interface {
	StartSpan(ctx context.Context, operationName string, method plugin.Method) (context.Context, Span)
}

// Span represents a tracing span
type Span interface {
	SetTag(key string, value any)
	SetError(err error)
	Finish()
}

// NewTracingInterceptor creates a new tracing interceptor
func NewTracingInterceptor(tracer Tracer, signatures ...plugin.Signature) *TracingInterceptor {
	return &TracingInterceptor{observes: observe(signatures), tracer: tracer}
}

// Intercept implements plugin.Interceptor
func (i *TracingInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	method := inv.Method()
	spanCtx, span := i.tracer.StartSpan(inv.Context(), "plugin.call", method)
	defer span.Finish()

	span.SetTag("method.contract", method.Contract.String())
	span.SetTag("method.name", method.Name)
	span.SetTag("method.target", fmt.Sprintf("%T", inv.Target()))

	inv.SetContext(spanCtx)

	out, err := inv.Proceed()
	if err != nil {
		span.SetError(err)
	}

	return out, err
}

// Name implements plugin.Interceptor
func (i *TracingInterceptor) Name() string {
	return "TracingInterceptor"
}

// ValidationInterceptor validates call arguments before the call proceeds
type ValidationInterceptor struct {
	observes
	validator ArgumentValidator
}

// ArgumentValidator defines the interface for argument validation
type ArgumentValidator interface {
	Validate(ctx context.Context, method plugin.Method, args []any) error
}

// ArgumentValidatorFunc is a function adapter for ArgumentValidator
type ArgumentValidatorFunc func(ctx context.Context, method plugin.Method, args []any) error

// Validate implements ArgumentValidator
func (f ArgumentValidatorFunc) Validate(ctx context.Context, method plugin.Method, args []any) error {
	return f(ctx, method, args)
}

// NewValidationInterceptor creates a new validation interceptor
func NewValidationInterceptor(validator ArgumentValidator, signatures ...plugin.Signature) *ValidationInterceptor {
	return &ValidationInterceptor{observes: observe(signatures), validator: validator}
}

// Intercept implements plugin.Interceptor
func (i *ValidationInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	if err := i.validator.Validate(inv.Context(), inv.Method(), inv.Args()); err != nil {
		return inv.Method().ZeroResults(), fmt.Errorf("argument validation failed: %w", err)
	}

	return inv.Proceed()
}

// Name implements plugin.Interceptor
func (i *ValidationInterceptor) Name() string {
	return "ValidationInterceptor"
}

// RateLimitingInterceptor implements rate limiting per method
type RateLimitingInterceptor struct {
	observes
	limiter RateLimiter
}

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	Allow(ctx context.Context, key string) error
}

// NewRateLimitingInterceptor creates a new rate limiting interceptor
func NewRateLimitingInterceptor(limiter RateLimiter, signatures ...plugin.Signature) *RateLimitingInterceptor {
	return &RateLimitingInterceptor{observes: observe(signatures), limiter: limiter}
}

// Intercept implements plugin.Interceptor
func (i *RateLimitingInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	// Use the method label as rate limiting key
	key := inv.Method().Label()

	if err := i.limiter.Allow(inv.Context(), key); err != nil {
		return inv.Method().ZeroResults(), fmt.Errorf("rate limit exceeded for %s: %w", key, err)
	}

	return inv.Proceed()
}

// Name implements plugin.Interceptor
func (i *RateLimitingInterceptor) Name() string {
	return "RateLimitingInterceptor"
}

// TimeoutInterceptor puts a deadline on the context argument of intercepted
// calls. Methods without a context argument proceed unchanged. The call runs
// on the caller's goroutine, so the target has to honour the deadline.
type TimeoutInterceptor struct {
	observes
	timeout time.Duration
}

// NewTimeoutInterceptor creates a new timeout interceptor
func NewTimeoutInterceptor(timeout time.Duration, signatures ...plugin.Signature) *TimeoutInterceptor {
	return &TimeoutInterceptor{observes: observe(signatures), timeout: timeout}
}

// Intercept implements plugin.Interceptor
func (i *TimeoutInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	timeoutCtx, cancel := context.WithTimeout(inv.Context(), i.timeout)
	defer cancel()

	inv.SetContext(timeoutCtx)
	return inv.Proceed()
}

// Name implements plugin.Interceptor
func (i *TimeoutInterceptor) Name() string {
	return "TimeoutInterceptor"
}

// ErrorHandlingInterceptor hands call failures to an ErrorHandler
type ErrorHandlingInterceptor struct {
	observes
	errorHandler ErrorHandler
	logger       *slog.Logger
}

// ErrorHandler defines the interface for error handling. Returning nil
// swallows the failure and the caller receives the results unchanged.
type ErrorHandler interface {
	HandleError(ctx context.Context, method plugin.Method, err error) error
}

// NewErrorHandlingInterceptor creates a new error handling interceptor
func NewErrorHandlingInterceptor(errorHandler ErrorHandler, logger *slog.Logger, signatures ...plugin.Signature) *ErrorHandlingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return &ErrorHandlingInterceptor{
		observes:     observe(signatures),
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// Intercept implements plugin.Interceptor
func (i *ErrorHandlingInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	out, err := inv.Proceed()
	if err != nil {
		i.logger.Error("method call error",
			"method", inv.Method().Label(),
			"error", err,
		)

		// Let error handler decide how to handle the error
		return out, i.errorHandler.HandleError(inv.Context(), inv.Method(), err)
	}

	return out, nil
}

// Name implements plugin.Interceptor
func (i *ErrorHandlingInterceptor) Name() string {
	return "ErrorHandlingInterceptor"
}

// CircuitBreakerInterceptor runs intercepted calls through a circuit breaker
type CircuitBreakerInterceptor struct {
	observes
	circuitBreaker CircuitBreaker
}

// CircuitBreaker defines the interface for circuit breaker functionality.
// *reliability.CircuitBreaker satisfies it.
type CircuitBreaker interface {
	Execute(ctx context.Context, fn func() error) error
}

// NewCircuitBreakerInterceptor creates a new circuit breaker interceptor
func NewCircuitBreakerInterceptor(circuitBreaker CircuitBreaker, signatures ...plugin.Signature) *CircuitBreakerInterceptor {
	return &CircuitBreakerInterceptor{observes: observe(signatures), circuitBreaker: circuitBreaker}
}

// Intercept implements plugin.Interceptor
func (i *CircuitBreakerInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	var out []any
	err := i.circuitBreaker.Execute(inv.Context(), func() error {
		var callErr error
		out, callErr = inv.Proceed()
		return callErr
	})
	return out, err
}

// Name implements plugin.Interceptor
func (i *CircuitBreakerInterceptor) Name() string {
	return "CircuitBreakerInterceptor"
}

// Chain builder

// ChainBuilder builds an interceptor chain where every built-in observes the
// same signatures. The first interceptor that fails to register is reported by Build.
type ChainBuilder struct {
	chain      *plugin.InterceptorChain
	logger     *slog.Logger
	signatures []plugin.Signature
	err        error
}

// NewChainBuilder creates a new builder whose interceptors observe signatures
func NewChainBuilder(logger *slog.Logger, signatures ...plugin.Signature) *ChainBuilder {
	if logger == nil {
		logger = slog.Default()
	}

	return &ChainBuilder{
		chain:      plugin.NewInterceptorChain(plugin.WithChainLogger(logger)),
		logger:     logger,
		signatures: append([]plugin.Signature(nil), signatures...),
	}
}

func (b *ChainBuilder) add(interceptor plugin.Interceptor) *ChainBuilder {
	if b.err != nil {
		return b
	}
	if err := b.chain.Add(interceptor); err != nil {
		b.err = err
	}
	return b
}

// WithLogging adds logging interceptor
func (b *ChainBuilder) WithLogging() *ChainBuilder {
	return b.add(NewLoggingInterceptor(b.logger, b.signatures...))
}

// WithMetrics adds metrics interceptor
func (b *ChainBuilder) WithMetrics(collector MetricsCollector) *ChainBuilder {
	return b.add(NewMetricsInterceptor(collector, b.signatures...))
}

// WithTracing adds tracing interceptor
func (b *ChainBuilder) WithTracing(tracer Tracer) *ChainBuilder {
	return b.add(NewTracingInterceptor(tracer, b.signatures...))
}

// WithValidation adds validation interceptor
func (b *ChainBuilder) WithValidation(validator ArgumentValidator) *ChainBuilder {
	return b.add(NewValidationInterceptor(validator, b.signatures...))
}

// WithRateLimit adds rate limiting interceptor
func (b *ChainBuilder) WithRateLimit(limiter RateLimiter) *ChainBuilder {
	return b.add(NewRateLimitingInterceptor(limiter, b.signatures...))
}

// WithTimeout adds timeout interceptor
func (b *ChainBuilder) WithTimeout(timeout time.Duration) *ChainBuilder {
	return b.add(NewTimeoutInterceptor(timeout, b.signatures...))
}

// WithErrorHandling adds error handling interceptor
func (b *ChainBuilder) WithErrorHandling(errorHandler ErrorHandler) *ChainBuilder {
	return b.add(NewErrorHandlingInterceptor(errorHandler, b.logger, b.signatures...))
}

// WithCircuitBreaker adds circuit breaker interceptor
func (b *ChainBuilder) WithCircuitBreaker(circuitBreaker CircuitBreaker) *ChainBuilder {
	return b.add(NewCircuitBreakerInterceptor(circuitBreaker, b.signatures...))
}

// WithRetry adds retry interceptor
func (b *ChainBuilder) WithRetry(retryPolicy reliability.RetryPolicy) *ChainBuilder {
	return b.add(NewRetryInterceptor(retryPolicy, b.signatures...).WithLogger(b.logger))
}

// WithCustom adds a custom interceptor with its own signatures
func (b *ChainBuilder) WithCustom(interceptor plugin.Interceptor) *ChainBuilder {
	return b.add(interceptor)
}

// Build returns the built interceptor chain
func (b *ChainBuilder) Build() (*plugin.InterceptorChain, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.chain, nil
}
