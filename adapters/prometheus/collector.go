// Package prometheus reports intercepted calls as Prometheus metrics.
package prometheus

import (
	"time"

	"github.com/glimte/mmate-plugin/interceptors"
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds metric naming options
type Config struct {
	Namespace string
	Subsystem string
	Buckets   []float64
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Namespace: "mmate",
		Subsystem: "plugin",
		Buckets:   prometheus.DefBuckets,
	}
}

// MetricsCollector implements interceptors.MetricsCollector with Prometheus
// vectors labelled by method
type MetricsCollector struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Errors   *prometheus.CounterVec
}

// NewMetricsCollector creates the collector and registers its vectors with reg
func NewMetricsCollector(reg prometheus.Registerer, cfg Config) (*MetricsCollector, error) {
	if len(cfg.Buckets) == 0 {
		cfg.Buckets = prometheus.DefBuckets
	}

	mc := &MetricsCollector{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "calls_total",
			Help:      "Total number of intercepted method calls",
		}, []string{"method"}),

		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "call_duration_seconds",
			Help:      "Duration of intercepted method calls in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"method"}),

		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "call_errors_total",
			Help:      "Total number of failed intercepted method calls",
		}, []string{"method", "error_type"}),
	}

	for _, c := range []prometheus.Collector{mc.Calls, mc.Duration, mc.Errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return mc, nil
}

// IncrementCallCount implements interceptors.MetricsCollector
func (m *MetricsCollector) IncrementCallCount(method string) {
	m.Calls.WithLabelValues(method).Inc()
}

// RecordCallDuration implements interceptors.MetricsCollector
func (m *MetricsCollector) RecordCallDuration(method string, duration time.Duration) {
	m.Duration.WithLabelValues(method).Observe(duration.Seconds())
}

// IncrementErrorCount implements interceptors.MetricsCollector
func (m *MetricsCollector) IncrementErrorCount(method string, errorType string) {
	m.Errors.WithLabelValues(method, errorType).Inc()
}

var _ interceptors.MetricsCollector = (*MetricsCollector)(nil)
