package interceptors

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/glimte/mmate-plugin/plugin"
)

// ErrFiltered is returned by a FilteringInterceptor configured with SkipWithError
var ErrFiltered = errors.New("call filtered")

// InvocationFilter defines the interface for call filtering
type InvocationFilter interface {
	// ShouldProceed returns true if the call should reach the target
	ShouldProceed(inv *plugin.Invocation) (bool, error)
}

// FilterFunc is a function adapter for InvocationFilter
type FilterFunc func(inv *plugin.Invocation) (bool, error)

// ShouldProceed implements InvocationFilter
func (f FilterFunc) ShouldProceed(inv *plugin.Invocation) (bool, error) {
	return f(inv)
}

// FilteringInterceptor drops calls its filter rejects
type FilteringInterceptor struct {
	observes
	filter       InvocationFilter
	skipBehavior SkipBehavior
	logger       *slog.Logger
}

// SkipBehavior defines what happens when a call is filtered out
type SkipBehavior int

const (
	// SkipSilently returns zero results without error
	SkipSilently SkipBehavior = iota
	// SkipWithError returns ErrFiltered
	SkipWithError
	// SkipWithLog logs the skipped call and returns zero results
	SkipWithLog
)

// NewFilteringInterceptor creates a new filtering interceptor
func NewFilteringInterceptor(filter InvocationFilter, skipBehavior SkipBehavior, signatures ...plugin.Signature) *FilteringInterceptor {
	return &FilteringInterceptor{
		observes:     observe(signatures),
		filter:       filter,
		skipBehavior: skipBehavior,
		logger:       slog.Default(),
	}
}

// WithLogger sets the logger used by SkipWithLog
func (i *FilteringInterceptor) WithLogger(logger *slog.Logger) *FilteringInterceptor {
	if logger != nil {
		i.logger = logger
	}
	return i
}

// Intercept implements plugin.Interceptor
func (i *FilteringInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	shouldProceed, err := i.filter.ShouldProceed(inv)
	if err != nil {
		return inv.Method().ZeroResults(), fmt.Errorf("filter error: %w", err)
	}

	if shouldProceed {
		return inv.Proceed()
	}

	switch i.skipBehavior {
	case SkipWithError:
		return inv.Method().ZeroResults(), fmt.Errorf("%w: %s", ErrFiltered, inv.Method())
	case SkipWithLog:
		i.logger.Info("call filtered", "method", inv.Method().Label())
	}
	return inv.Method().ZeroResults(), nil
}

// Name implements plugin.Interceptor
func (i *FilteringInterceptor) Name() string {
	return "FilteringInterceptor"
}

// CompositeFilter combines multiple filters with AND logic
type CompositeFilter struct {
	filters []InvocationFilter
}

// NewCompositeFilter creates a new composite filter
func NewCompositeFilter(filters ...InvocationFilter) *CompositeFilter {
	return &CompositeFilter{filters: filters}
}

// ShouldProceed implements InvocationFilter - all filters must return true
func (f *CompositeFilter) ShouldProceed(inv *plugin.Invocation) (bool, error) {
	for _, filter := range f.filters {
		shouldProceed, err := filter.ShouldProceed(inv)
		if err != nil {
			return false, err
		}
		if !shouldProceed {
			return false, nil
		}
	}
	return true, nil
}

// OrFilter combines multiple filters with OR logic
type OrFilter struct {
	filters []InvocationFilter
}

// NewOrFilter creates a new OR filter
func NewOrFilter(filters ...InvocationFilter) *OrFilter {
	return &OrFilter{filters: filters}
}

// ShouldProceed implements InvocationFilter - at least one filter must return true
func (f *OrFilter) ShouldProceed(inv *plugin.Invocation) (bool, error) {
	for _, filter := range f.filters {
		shouldProceed, err := filter.ShouldProceed(inv)
		if err != nil {
			return false, err
		}
		if shouldProceed {
			return true, nil
		}
	}
	return false, nil
}

// MethodFilter passes calls to the named methods
type MethodFilter struct {
	allowed map[string]bool
}

// NewMethodFilter creates a filter that only allows specific methods.
// Names are plain method names or "Contract.Method" labels.
func NewMethodFilter(methods ...string) *MethodFilter {
	allowed := make(map[string]bool, len(methods))
	for _, m := range methods {
		allowed[m] = true
	}
	return &MethodFilter{allowed: allowed}
}

// ShouldProceed implements InvocationFilter
func (f *MethodFilter) ShouldProceed(inv *plugin.Invocation) (bool, error) {
	m := inv.Method()
	return f.allowed[m.Name] || f.allowed[m.Label()], nil
}

// ConditionalInterceptor runs an interceptor only if a condition is met.
// It observes the signatures of the interceptor it guards.
type ConditionalInterceptor struct {
	condition   InvocationFilter
	interceptor plugin.Interceptor
}

// NewConditionalInterceptor creates a new conditional interceptor
func NewConditionalInterceptor(condition InvocationFilter, interceptor plugin.Interceptor) *ConditionalInterceptor {
	return &ConditionalInterceptor{
		condition:   condition,
		interceptor: interceptor,
	}
}

// Intercept implements plugin.Interceptor
func (i *ConditionalInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	shouldExecute, err := i.condition.ShouldProceed(inv)
	if err != nil {
		return inv.Method().ZeroResults(), err
	}

	if shouldExecute {
		return i.interceptor.Intercept(inv)
	}

	return inv.Proceed()
}

// Signatures implements plugin.Interceptor
func (i *ConditionalInterceptor) Signatures() []plugin.Signature {
	return i.interceptor.Signatures()
}

// Name implements plugin.Interceptor
func (i *ConditionalInterceptor) Name() string {
	return fmt.Sprintf("ConditionalInterceptor[%s]", i.interceptor.Name())
}

// ContextBasedFilter passes calls whose InterceptorContext holds an expected value
type ContextBasedFilter struct {
	contextKey    string
	expectedValue any
}

// NewContextBasedFilter creates a filter that checks context values
func NewContextBasedFilter(contextKey string, expectedValue any) *ContextBasedFilter {
	return &ContextBasedFilter{
		contextKey:    contextKey,
		expectedValue: expectedValue,
	}
}

// ShouldProceed implements InvocationFilter
func (f *ContextBasedFilter) ShouldProceed(inv *plugin.Invocation) (bool, error) {
	ic, exists := GetInterceptorContext(inv.Context())
	if !exists {
		return false, nil
	}

	value, exists := ic.Get(f.contextKey)
	if !exists {
		return false, nil
	}

	return value == f.expectedValue, nil
}
