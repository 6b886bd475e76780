package interceptors

import (
	"log/slog"

	"github.com/glimte/mmate-plugin/internal/reliability"
	"github.com/glimte/mmate-plugin/plugin"
)

// RetryInterceptor proceeds again when an intercepted call fails, as long as
// the retry policy allows it. The caller sees the last failure unchanged.
type RetryInterceptor struct {
	observes
	retryPolicy reliability.RetryPolicy
	logger      *slog.Logger
}

// NewRetryInterceptor creates a new retry interceptor
func NewRetryInterceptor(retryPolicy reliability.RetryPolicy, signatures ...plugin.Signature) *RetryInterceptor {
	return &RetryInterceptor{
		observes:    observe(signatures),
		retryPolicy: retryPolicy,
		logger:      slog.Default(),
	}
}

// WithLogger sets the logger for the retry interceptor
func (r *RetryInterceptor) WithLogger(logger *slog.Logger) *RetryInterceptor {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Intercept implements plugin.Interceptor
func (r *RetryInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	var out []any
	err := reliability.Retry(inv.Context(), r.retryPolicy, func(attempt int) error {
		if attempt > 0 {
			r.logger.Debug("retrying method call",
				"method", inv.Method().Label(),
				"attempt", attempt,
			)
		}

		var callErr error
		out, callErr = inv.Proceed()
		return callErr
	})
	return out, err
}

// Name returns the interceptor name
func (r *RetryInterceptor) Name() string {
	return "RetryInterceptor"
}
