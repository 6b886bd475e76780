package otel

import (
	"context"
	"time"

	"github.com/glimte/mmate-plugin/interceptors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsCollector implements interceptors.MetricsCollector with
// OpenTelemetry instruments:
//   - IncrementCallCount -> plugin.calls counter
//   - RecordCallDuration -> plugin.call.duration histogram in seconds
//   - IncrementErrorCount -> plugin.call.errors counter
type MetricsCollector struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewMetricsCollector creates the instruments on meter
func NewMetricsCollector(meter metric.Meter) (*MetricsCollector, error) {
	calls, err := meter.Int64Counter("plugin.calls",
		metric.WithDescription("Intercepted method calls"))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("plugin.call.duration",
		metric.WithDescription("Duration of intercepted method calls"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter("plugin.call.errors",
		metric.WithDescription("Failed intercepted method calls"))
	if err != nil {
		return nil, err
	}

	return &MetricsCollector{calls: calls, duration: duration, errors: errs}, nil
}

// IncrementCallCount implements interceptors.MetricsCollector
func (m *MetricsCollector) IncrementCallCount(method string) {
	m.calls.Add(context.Background(), 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordCallDuration implements interceptors.MetricsCollector
func (m *MetricsCollector) RecordCallDuration(method string, duration time.Duration) {
	m.duration.Record(context.Background(), duration.Seconds(), metric.WithAttributes(attribute.String("method", method)))
}

// IncrementErrorCount implements interceptors.MetricsCollector
func (m *MetricsCollector) IncrementErrorCount(method string, errorType string) {
	m.errors.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("error.type", errorType),
	))
}

var _ interceptors.MetricsCollector = (*MetricsCollector)(nil)
