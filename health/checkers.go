package health

import (
	"context"
	"fmt"
	"time"

	"github.com/glimte/mmate-plugin/internal/reliability"
	"github.com/glimte/mmate-plugin/monitor"
	"github.com/glimte/mmate-plugin/transports/rabbitmq"
)

// ChannelPoolChecker checks that an intercepted channel pool can hand out a channel
type ChannelPoolChecker struct {
	pool *rabbitmq.ChannelPool
}

// NewChannelPoolChecker creates a new channel pool health checker
func NewChannelPoolChecker(pool *rabbitmq.ChannelPool) *ChannelPoolChecker {
	return &ChannelPoolChecker{pool: pool}
}

func (c *ChannelPoolChecker) Name() string {
	return "channel_pool"
}

func (c *ChannelPoolChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]any),
	}
	result.Details["pool_size"] = c.pool.Size()

	ch, err := c.pool.Get(ctx)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = "Failed to get channel from pool"
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}
	c.pool.Put(ch)

	result.Status = StatusHealthy
	result.Message = "Channel pool is healthy"
	result.Duration = time.Since(start)
	result.Details["response_time_ms"] = result.Duration.Milliseconds()

	return result
}

// CircuitBreakerChecker reports an open breaker as unhealthy and a
// half-open one as degraded
type CircuitBreakerChecker struct {
	breaker *reliability.CircuitBreaker
}

// NewCircuitBreakerChecker creates a new circuit breaker health checker
func NewCircuitBreakerChecker(breaker *reliability.CircuitBreaker) *CircuitBreakerChecker {
	return &CircuitBreakerChecker{breaker: breaker}
}

func (c *CircuitBreakerChecker) Name() string {
	return "circuit_breaker_" + c.breaker.Name()
}

func (c *CircuitBreakerChecker) Check(_ context.Context) CheckResult {
	start := time.Now()
	metrics := c.breaker.GetMetrics()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details: map[string]any{
			"state":            metrics.State.String(),
			"total_requests":   metrics.TotalRequests,
			"total_failures":   metrics.TotalFailures,
			"current_failures": metrics.CurrentFailures,
		},
	}

	switch metrics.State {
	case reliability.StateClosed:
		result.Status = StatusHealthy
		result.Message = "Circuit is closed"
	case reliability.StateHalfOpen:
		result.Status = StatusDegraded
		result.Message = "Circuit is half-open"
	default:
		result.Status = StatusUnhealthy
		result.Message = "Circuit is open"
		if !metrics.LastFailureTime.IsZero() {
			result.Details["last_failure"] = metrics.LastFailureTime
		}
	}

	result.Duration = time.Since(start)
	return result
}

// ErrorRateChecker checks the error rate of intercepted calls against thresholds
type ErrorRateChecker struct {
	collector         *monitor.SimpleMetricsCollector
	warningThreshold  float64
	criticalThreshold float64
}

// NewErrorRateChecker creates a checker over an in-memory collector.
// Thresholds are fractions of calls, for example 0.05 for five percent.
func NewErrorRateChecker(collector *monitor.SimpleMetricsCollector, warningThreshold, criticalThreshold float64) *ErrorRateChecker {
	return &ErrorRateChecker{
		collector:         collector,
		warningThreshold:  warningThreshold,
		criticalThreshold: criticalThreshold,
	}
}

func (c *ErrorRateChecker) Name() string {
	return "error_rate"
}

func (c *ErrorRateChecker) Check(_ context.Context) CheckResult {
	start := time.Now()
	rate := c.collector.ErrorRate()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   map[string]any{"error_rate": rate},
	}

	switch {
	case rate >= c.criticalThreshold:
		result.Status = StatusUnhealthy
		result.Message = fmt.Sprintf("Error rate %.2f%% above critical threshold", rate*100)
	case rate >= c.warningThreshold:
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("Error rate %.2f%% above warning threshold", rate*100)
	default:
		result.Status = StatusHealthy
		result.Message = "Error rate is normal"
	}

	result.Duration = time.Since(start)
	return result
}

// ComponentChecker allows checking custom components
type ComponentChecker struct {
	name    string
	checker func(ctx context.Context) (Status, string, map[string]any, error)
}

// NewComponentChecker creates a checker for custom components
func NewComponentChecker(name string, checker func(ctx context.Context) (Status, string, map[string]any, error)) *ComponentChecker {
	return &ComponentChecker{
		name:    name,
		checker: checker,
	}
}

func (c *ComponentChecker) Name() string {
	return c.name
}

func (c *ComponentChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]any),
	}

	status, message, details, err := c.checker(ctx)

	result.Status = status
	result.Message = message
	if details != nil {
		result.Details = details
	}
	if err != nil {
		result.Error = err.Error()
	}
	result.Duration = time.Since(start)

	return result
}
