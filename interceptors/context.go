package interceptors

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/glimte/mmate-plugin/plugin"
)

type interceptorContextKey struct{}

// InterceptorContext is a bag of values shared by every layer of one call.
// It travels in the call's context.Context argument.
type InterceptorContext struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewInterceptorContext creates an empty interceptor context
func NewInterceptorContext() *InterceptorContext {
	return &InterceptorContext{values: make(map[string]any)}
}

// Set stores value under key
func (ic *InterceptorContext) Set(key string, value any) {
	ic.mu.Lock()
	ic.values[key] = value
	ic.mu.Unlock()
}

// Get returns the value stored under key
func (ic *InterceptorContext) Get(key string) (any, bool) {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	value, ok := ic.values[key]
	return value, ok
}

// Delete removes key
func (ic *InterceptorContext) Delete(key string) {
	ic.mu.Lock()
	delete(ic.values, key)
	ic.mu.Unlock()
}

// Keys returns the stored keys in sorted order
func (ic *InterceptorContext) Keys() []string {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return slices.Sorted(maps.Keys(ic.values))
}

// ContextValue returns the value under key when it has type T
func ContextValue[T any](ic *InterceptorContext, key string) (T, bool) {
	value, ok := ic.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := value.(T)
	return typed, ok
}

// GetInterceptorContext returns the interceptor context carried by ctx
func GetInterceptorContext(ctx context.Context) (*InterceptorContext, bool) {
	ic, ok := ctx.Value(interceptorContextKey{}).(*InterceptorContext)
	return ic, ok
}

// WithInterceptorContext returns a copy of ctx carrying ic
func WithInterceptorContext(ctx context.Context, ic *InterceptorContext) context.Context {
	return context.WithValue(ctx, interceptorContextKey{}, ic)
}

// EnsureInterceptorContext returns ctx and its interceptor context, attaching
// a new one when ctx carries none
func EnsureInterceptorContext(ctx context.Context) (context.Context, *InterceptorContext) {
	if ic, ok := GetInterceptorContext(ctx); ok {
		return ctx, ic
	}
	ic := NewInterceptorContext()
	return WithInterceptorContext(ctx, ic), ic
}

// ContextEnricher fills the interceptor context of a call before it proceeds
type ContextEnricher interface {
	Enrich(ctx context.Context, ic *InterceptorContext, inv *plugin.Invocation) error
}

// ContextEnricherFunc is a function adapter for ContextEnricher
type ContextEnricherFunc func(ctx context.Context, ic *InterceptorContext, inv *plugin.Invocation) error

// Enrich implements ContextEnricher
func (f ContextEnricherFunc) Enrich(ctx context.Context, ic *InterceptorContext, inv *plugin.Invocation) error {
	return f(ctx, ic, inv)
}

// ContextEnrichmentInterceptor attaches an InterceptorContext to the context
// argument of intercepted calls and lets an enricher fill it. Methods without
// a context argument are enriched but the target cannot see the values.
type ContextEnrichmentInterceptor struct {
	observes
	enricher ContextEnricher
}

// NewContextEnrichmentInterceptor creates a new context enrichment interceptor
func NewContextEnrichmentInterceptor(enricher ContextEnricher, signatures ...plugin.Signature) *ContextEnrichmentInterceptor {
	return &ContextEnrichmentInterceptor{observes: observe(signatures), enricher: enricher}
}

// Intercept implements plugin.Interceptor
func (i *ContextEnrichmentInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	ctx, ic := EnsureInterceptorContext(inv.Context())
	inv.SetContext(ctx)

	if err := i.enricher.Enrich(ctx, ic, inv); err != nil {
		return inv.Method().ZeroResults(), err
	}

	return inv.Proceed()
}

// Name implements plugin.Interceptor
func (i *ContextEnrichmentInterceptor) Name() string {
	return "ContextEnrichmentInterceptor"
}
