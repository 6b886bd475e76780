// Package health reports the state of the components an intercepted
// client depends on.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Status is the health of a single check or of a whole report
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// CheckResult is the outcome of one Checker run
type CheckResult struct {
	Name      string         `json:"name"`
	Status    Status         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  time.Duration  `json:"duration"`
}

// Checker checks one component
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Report aggregates the results of every registered checker
type Report struct {
	Status    Status                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
}

// Registry runs a set of checkers together
type Registry struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
	logger   *slog.Logger
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithCheckTimeout bounds every check run by Check
func WithCheckTimeout(timeout time.Duration) RegistryOption {
	return func(r *Registry) {
		r.timeout = timeout
	}
}

// WithRegistryLogger sets the logger used to report failing checks
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		timeout: 5 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// ErrDuplicateChecker is returned when a checker name is already registered
var ErrDuplicateChecker = errors.New("health: duplicate checker name")

// Register adds checkers to the registry. Names must be unique; on a
// duplicate nothing is registered.
func (r *Registry) Register(checkers ...Checker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make(map[string]struct{}, len(r.checkers)+len(checkers))
	for _, c := range r.checkers {
		names[c.Name()] = struct{}{}
	}
	for _, c := range checkers {
		if _, exists := names[c.Name()]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateChecker, c.Name())
		}
		names[c.Name()] = struct{}{}
	}

	r.checkers = append(r.checkers, checkers...)
	return nil
}

// Check runs all checkers concurrently. The report status is the worst
// status of any check.
func (r *Registry) Check(ctx context.Context) Report {
	r.mu.RLock()
	checkers := make([]Checker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	start := time.Now()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	results := make([]CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, checker := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = checker.Check(ctx)
		}()
	}
	wg.Wait()

	report := Report{
		Status:    StatusHealthy,
		Checks:    make(map[string]CheckResult, len(results)),
		Timestamp: start,
	}
	for _, result := range results {
		report.Checks[result.Name] = result
		if result.Status.severity() > report.Status.severity() {
			report.Status = result.Status
		}
		if result.Status != StatusHealthy {
			r.logger.Warn("health check not healthy",
				"check", result.Name,
				"status", result.Status,
				"message", result.Message,
				"error", result.Error,
			)
		}
	}
	report.Duration = time.Since(start)

	return report
}
