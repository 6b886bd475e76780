package plugin

import (
	"fmt"
	"reflect"
)

// Dispatcher routes calls made on a proxy either through the interceptor or
// straight to the target. It is built once per wrap and never changes, so one
// dispatcher serves concurrent callers.
type Dispatcher struct {
	target      any
	interceptor Interceptor
	registry    *SignatureRegistry
	contract    reflect.Type
	methods     map[string]*dispatchEntry
}

type dispatchEntry struct {
	method      Method
	fn          reflect.Value
	intercepted bool
}

func newDispatcher(target any, interceptor Interceptor, registry *SignatureRegistry, contract reflect.Type, selected []reflect.Type) *Dispatcher {
	d := &Dispatcher{
		target:      target,
		interceptor: interceptor,
		registry:    registry,
		contract:    contract,
		methods:     make(map[string]*dispatchEntry, contract.NumMethod()),
	}

	tv := reflect.ValueOf(target)
	for i := 0; i < contract.NumMethod(); i++ {
		m := contract.Method(i)
		entry := &dispatchEntry{
			method: Method{Contract: contract, Name: m.Name, Type: m.Type},
			fn:     tv.MethodByName(m.Name),
		}

		key := keyOf(m.Name, m.Type)
		for _, c := range selected {
			declared, ok := c.MethodByName(m.Name)
			if !ok || declared.Type != m.Type {
				continue
			}
			if registry.contains(c, key) {
				entry.intercepted = true
				entry.method.Contract = c
				break
			}
		}

		d.methods[m.Name] = entry
	}

	return d
}

// Call dispatches one proxy method call and returns the method's results
// without the trailing error, plus that error.
//
// Calls to registered methods go through the interceptor; all others go to the
// target. Errors and panics from either side are passed through unchanged. For
// methods that have no error result, a non-nil error is raised as a panic.
func (d *Dispatcher) Call(method string, args ...any) ([]any, error) {
	entry, ok := d.methods[method]
	if !ok {
		panic(fmt.Sprintf("plugin: proxy for %s has no method %s", d.contract, method))
	}

	var (
		out []any
		err error
	)
	if entry.intercepted {
		inv := &Invocation{
			target:  d.target,
			method:  entry.method,
			args:    args,
			proceed: entry.call,
		}
		out, err = d.interceptor.Intercept(inv)
		out, err = entry.normalize(out, err)
	} else {
		out, err = entry.call(args)
	}

	if err != nil && !entry.method.ReturnsError() {
		panic(err)
	}
	return out, err
}

// Target returns the wrapped value
func (d *Dispatcher) Target() any {
	return d.target
}

// Interceptor returns the interceptor this dispatcher routes to
func (d *Dispatcher) Interceptor() Interceptor {
	return d.interceptor
}

// Registry returns the signature registry of the interceptor
func (d *Dispatcher) Registry() *SignatureRegistry {
	return d.registry
}

// Contract returns the bound contract the proxy implements
func (d *Dispatcher) Contract() reflect.Type {
	return d.contract
}

// Intercepts reports whether calls to the named method reach the interceptor
func (d *Dispatcher) Intercepts(method string) bool {
	entry, ok := d.methods[method]
	return ok && entry.intercepted
}

// call invokes the target method with the given arguments
func (e *dispatchEntry) call(args []any) ([]any, error) {
	ft := e.method.Type
	if len(args) != ft.NumIn() {
		return e.zeroResults(), &ProxyError{
			Method: e.method,
			Index:  len(args),
			Err:    fmt.Errorf("%w: want %d arguments, got %d", ErrArgumentMismatch, ft.NumIn(), len(args)),
		}
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		v, err := valueFor(arg, ft.In(i))
		if err != nil {
			return e.zeroResults(), &ProxyError{Method: e.method, Index: i, Err: fmt.Errorf("%w: %v", ErrArgumentMismatch, err)}
		}
		in[i] = v
	}

	var results []reflect.Value
	if ft.IsVariadic() {
		results = e.fn.CallSlice(in)
	} else {
		results = e.fn.Call(in)
	}

	n := len(results)
	var err error
	if e.method.ReturnsError() {
		n--
		if ev := results[n]; !ev.IsNil() {
			err = ev.Interface().(error)
		}
	}

	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = results[i].Interface()
	}
	return out, err
}

// normalize checks interceptor results against the method's result types.
// When the interceptor also returned an error, that error wins over any
// mismatch and the results become zero values.
func (e *dispatchEntry) normalize(out []any, err error) ([]any, error) {
	want := e.resultCount()
	if len(out) != want {
		if err != nil {
			return e.zeroResults(), err
		}
		return e.zeroResults(), &ProxyError{
			Method: e.method,
			Index:  len(out),
			Err:    fmt.Errorf("%w: want %d results, got %d", ErrResultMismatch, want, len(out)),
		}
	}

	normalized := make([]any, want)
	for i, v := range out {
		rv, verr := valueFor(v, e.method.Type.Out(i))
		if verr != nil {
			if err != nil {
				return e.zeroResults(), err
			}
			return e.zeroResults(), &ProxyError{Method: e.method, Index: i, Err: fmt.Errorf("%w: %v", ErrResultMismatch, verr)}
		}
		normalized[i] = rv.Interface()
	}
	return normalized, err
}

func (e *dispatchEntry) resultCount() int {
	n := e.method.Type.NumOut()
	if e.method.ReturnsError() {
		n--
	}
	return n
}

func (e *dispatchEntry) zeroResults() []any {
	return e.method.ZeroResults()
}

// valueFor converts v to a value of type t
func valueFor(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		if nillable(t) {
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a valid %s", t)
	}

	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		return rv, nil
	}
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", rv.Type(), t)
	}

	converted := reflect.New(t).Elem()
	converted.Set(rv)
	return converted, nil
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

// Result returns the i-th result converted to T, or T's zero value when the
// result is nil or absent
func Result[T any](out []any, i int) T {
	if i < len(out) {
		if v, ok := out[i].(T); ok {
			return v
		}
	}
	var zero T
	return zero
}
