package monitor

import (
	"slices"
	"sync"
	"time"

	"github.com/glimte/mmate-plugin/interceptors"
)

const maxSamples = 100

// SimpleMetricsCollector is an in-memory interceptors.MetricsCollector
type SimpleMetricsCollector struct {
	mu sync.RWMutex

	// Call counters by method label
	callCounters map[string]int64

	// Error counters by method label and error type
	errorCounters map[string]map[string]int64

	// Call duration stats by method label
	durations map[string]*TimeStats
}

// TimeStats tracks timing statistics
type TimeStats struct {
	Count   int64
	Total   time.Duration
	Min     time.Duration
	Max     time.Duration
	samples []time.Duration // last maxSamples durations, oldest first
}

// NewSimpleMetricsCollector creates a new in-memory metrics collector
func NewSimpleMetricsCollector() *SimpleMetricsCollector {
	return &SimpleMetricsCollector{
		callCounters:  make(map[string]int64),
		errorCounters: make(map[string]map[string]int64),
		durations:     make(map[string]*TimeStats),
	}
}

// IncrementCallCount implements interceptors.MetricsCollector
func (c *SimpleMetricsCollector) IncrementCallCount(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callCounters[method]++
}

// RecordCallDuration implements interceptors.MetricsCollector
func (c *SimpleMetricsCollector) RecordCallDuration(method string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, exists := c.durations[method]
	if !exists {
		stats = &TimeStats{
			Min:     duration,
			Max:     duration,
			samples: make([]time.Duration, 0, maxSamples),
		}
		c.durations[method] = stats
	}

	stats.Count++
	stats.Total += duration
	stats.Min = min(stats.Min, duration)
	stats.Max = max(stats.Max, duration)

	if len(stats.samples) >= maxSamples {
		stats.samples = stats.samples[1:]
	}
	stats.samples = append(stats.samples, duration)
}

// IncrementErrorCount implements interceptors.MetricsCollector
func (c *SimpleMetricsCollector) IncrementErrorCount(method string, errorType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.errorCounters[method] == nil {
		c.errorCounters[method] = make(map[string]int64)
	}
	c.errorCounters[method][errorType]++
}

// MetricsSummary represents a snapshot of all metrics
type MetricsSummary struct {
	CallCounts  map[string]int64            `json:"call_counts"`
	ErrorCounts map[string]map[string]int64 `json:"error_counts"`
	CallStats   map[string]CallStats        `json:"call_stats"`
}

// CallStats represents call duration statistics for one method
type CallStats struct {
	Count int64         `json:"count"`
	Avg   time.Duration `json:"avg"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

// GetMetricsSummary returns a summary of all collected metrics
func (c *SimpleMetricsCollector) GetMetricsSummary() MetricsSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := MetricsSummary{
		CallCounts:  make(map[string]int64, len(c.callCounters)),
		ErrorCounts: make(map[string]map[string]int64, len(c.errorCounters)),
		CallStats:   make(map[string]CallStats, len(c.durations)),
	}

	for method, count := range c.callCounters {
		summary.CallCounts[method] = count
	}

	for method, errs := range c.errorCounters {
		summary.ErrorCounts[method] = make(map[string]int64, len(errs))
		for errorType, count := range errs {
			summary.ErrorCounts[method][errorType] = count
		}
	}

	for method, stats := range c.durations {
		callStats := CallStats{
			Count: stats.Count,
			Min:   stats.Min,
			Max:   stats.Max,
		}
		if stats.Count > 0 {
			callStats.Avg = stats.Total / time.Duration(stats.Count)
		}

		sorted := slices.Clone(stats.samples)
		slices.Sort(sorted)
		callStats.P50 = percentile(sorted, 0.50)
		callStats.P95 = percentile(sorted, 0.95)
		callStats.P99 = percentile(sorted, 0.99)

		summary.CallStats[method] = callStats
	}

	return summary
}

// ErrorRate returns errors divided by calls across all methods
func (c *SimpleMetricsCollector) ErrorRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var calls, errs int64
	for _, count := range c.callCounters {
		calls += count
	}
	for _, byType := range c.errorCounters {
		for _, count := range byType {
			errs += count
		}
	}
	if calls == 0 {
		return 0
	}
	return float64(errs) / float64(calls)
}

// Reset clears all collected metrics
func (c *SimpleMetricsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callCounters = make(map[string]int64)
	c.errorCounters = make(map[string]map[string]int64)
	c.durations = make(map[string]*TimeStats)
}

// percentile picks the nearest-rank value from sorted samples
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

var _ interceptors.MetricsCollector = (*SimpleMetricsCollector)(nil)
