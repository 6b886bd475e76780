package interceptors

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/glimte/mmate-plugin/plugin"
)

// ShortCircuitInterceptor answers calls itself when its evaluator says so.
// The target is not touched for a short-circuited call.
type ShortCircuitInterceptor struct {
	observes
	evaluator ShortCircuitEvaluator
}

// ShortCircuitEvaluator determines if a call should be short-circuited.
// When it should, results are returned to the caller in place of the
// method's results, without the trailing error.
type ShortCircuitEvaluator interface {
	ShouldShortCircuit(inv *plugin.Invocation) (bool, []any, error)
}

// EvaluatorFunc is a function adapter for ShortCircuitEvaluator
type EvaluatorFunc func(inv *plugin.Invocation) (bool, []any, error)

// ShouldShortCircuit implements ShortCircuitEvaluator
func (f EvaluatorFunc) ShouldShortCircuit(inv *plugin.Invocation) (bool, []any, error) {
	return f(inv)
}

// Always short-circuits every call with the given results
func Always(results ...any) ShortCircuitEvaluator {
	return EvaluatorFunc(func(*plugin.Invocation) (bool, []any, error) {
		return true, append([]any(nil), results...), nil
	})
}

// NewShortCircuitInterceptor creates a new short-circuit interceptor
func NewShortCircuitInterceptor(evaluator ShortCircuitEvaluator, signatures ...plugin.Signature) *ShortCircuitInterceptor {
	return &ShortCircuitInterceptor{observes: observe(signatures), evaluator: evaluator}
}

// Intercept implements plugin.Interceptor
func (i *ShortCircuitInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	shouldShortCircuit, results, err := i.evaluator.ShouldShortCircuit(inv)
	if err != nil {
		return inv.Method().ZeroResults(), err
	}

	if shouldShortCircuit {
		return results, nil
	}

	return inv.Proceed()
}

// Name implements plugin.Interceptor
func (i *ShortCircuitInterceptor) Name() string {
	return "ShortCircuitInterceptor"
}

// CachingInterceptor returns cached results for calls it has seen succeed
type CachingInterceptor struct {
	observes
	cache ResultCache
}

// ResultCache stores method results by call key
type ResultCache interface {
	Get(ctx context.Context, key string) ([]any, bool, error)
	Set(ctx context.Context, key string, results []any) error
}

// NewCachingInterceptor creates a new caching interceptor
func NewCachingInterceptor(cache ResultCache, signatures ...plugin.Signature) *CachingInterceptor {
	return &CachingInterceptor{observes: observe(signatures), cache: cache}
}

// Intercept implements plugin.Interceptor
func (i *CachingInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	ctx := inv.Context()
	cacheKey := CallKey(inv)

	cached, found, err := i.cache.Get(ctx, cacheKey)
	if err != nil {
		return inv.Method().ZeroResults(), err
	}

	if found {
		return cached, nil
	}

	out, err := inv.Proceed()
	if err != nil {
		return out, err
	}

	// A failed cache write does not fail the call
	_ = i.cache.Set(ctx, cacheKey, out)

	return out, nil
}

// Name implements plugin.Interceptor
func (i *CachingInterceptor) Name() string {
	return "CachingInterceptor"
}

// CallKey identifies a call by target, method and arguments. Context
// arguments are left out and pointer arguments are keyed by the value they
// point to. Channel and func arguments are keyed by identity, so calls with
// them only hit the cache for the same channel or func value.
func CallKey(inv *plugin.Invocation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%T:%s(", inv.Target(), inv.Method().Label())
	written := 0
	for _, arg := range inv.Args() {
		if _, ok := arg.(context.Context); ok {
			continue
		}
		if written > 0 {
			b.WriteByte(',')
		}
		writeKeyArg(&b, arg)
		written++
	}
	b.WriteByte(')')
	return b.String()
}

func writeKeyArg(b *strings.Builder, arg any) {
	v := reflect.ValueOf(arg)
	depth := 0
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
		depth++
	}
	if depth == 0 {
		fmt.Fprintf(b, "%#v", arg)
		return
	}
	fmt.Fprintf(b, "%s%#v", strings.Repeat("&", depth), v.Interface())
}

// ShortCircuitOnErrorInterceptor replaces selected failures with fallback results
type ShortCircuitOnErrorInterceptor struct {
	observes
	errorEvaluator ErrorEvaluator
}

// ErrorEvaluator determines if an error should be replaced by fallback results
type ErrorEvaluator interface {
	ShouldShortCircuitOnError(err error) (bool, []any)
}

// NewShortCircuitOnErrorInterceptor creates a new error-based short-circuit interceptor
func NewShortCircuitOnErrorInterceptor(errorEvaluator ErrorEvaluator, signatures ...plugin.Signature) *ShortCircuitOnErrorInterceptor {
	return &ShortCircuitOnErrorInterceptor{observes: observe(signatures), errorEvaluator: errorEvaluator}
}

// Intercept implements plugin.Interceptor
func (i *ShortCircuitOnErrorInterceptor) Intercept(inv *plugin.Invocation) ([]any, error) {
	out, err := inv.Proceed()
	if err != nil {
		if shouldShortCircuit, fallback := i.errorEvaluator.ShouldShortCircuitOnError(err); shouldShortCircuit {
			return fallback, nil
		}
	}
	return out, err
}

// Name implements plugin.Interceptor
func (i *ShortCircuitOnErrorInterceptor) Name() string {
	return "ShortCircuitOnErrorInterceptor"
}
