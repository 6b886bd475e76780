package plugin

import (
	"context"
	"fmt"
	"reflect"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Method describes an intercepted contract method
type Method struct {
	// Contract is the registered contract that declares the method
	Contract reflect.Type
	Name     string
	// Type is the method's func type without receiver
	Type reflect.Type
}

// Signature returns the signature that identifies this method
func (m Method) Signature() Signature {
	args := make([]reflect.Type, m.Type.NumIn())
	for i := range args {
		args[i] = m.Type.In(i)
	}
	return Signature{Contract: m.Contract, Method: m.Name, Args: args}
}

// ReturnsError reports whether the method's last result is an error
func (m Method) ReturnsError() bool {
	n := m.Type.NumOut()
	return n > 0 && m.Type.Out(n-1) == errorType
}

// ZeroResults returns the zero value of every result except the trailing error.
// Interceptors return it when they skip the call.
func (m Method) ZeroResults() []any {
	n := m.Type.NumOut()
	if m.ReturnsError() {
		n--
	}
	out := make([]any, n)
	for i := range out {
		out[i] = reflect.Zero(m.Type.Out(i)).Interface()
	}
	return out
}

// Label returns "Contract.Method" without the package path
func (m Method) Label() string {
	if m.Contract == nil {
		return m.Name
	}
	return m.Contract.Name() + "." + m.Name
}

func (m Method) String() string {
	if m.Contract == nil || m.Type == nil {
		return m.Name
	}
	return m.Signature().String()
}

// contextIndex returns the position of the first context.Context parameter or -1
func (m Method) contextIndex() int {
	for i := 0; i < m.Type.NumIn(); i++ {
		if m.Type.In(i) == contextType {
			return i
		}
	}
	return -1
}

// Invocation captures one intercepted call. It lives for the duration of that call.
type Invocation struct {
	target  any
	method  Method
	args    []any
	proceed func(args []any) ([]any, error)
}

// Target returns the value the call is dispatched to on Proceed
func (inv *Invocation) Target() any {
	return inv.target
}

// Method returns the intercepted method
func (inv *Invocation) Method() Method {
	return inv.method
}

// Signature returns the signature of the intercepted method
func (inv *Invocation) Signature() Signature {
	return inv.method.Signature()
}

// Args returns the call arguments. A variadic method receives its trailing
// arguments as one slice. Changes to the returned slice are seen by Proceed.
func (inv *Invocation) Args() []any {
	return inv.args
}

// Context returns the first context.Context argument, or context.Background
// when the method takes none
func (inv *Invocation) Context() context.Context {
	if i := inv.method.contextIndex(); i >= 0 {
		if ctx, ok := inv.args[i].(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// SetContext replaces the first context.Context argument.
// It reports false when the method takes no context.
func (inv *Invocation) SetContext(ctx context.Context) bool {
	i := inv.method.contextIndex()
	if i < 0 {
		return false
	}
	inv.args[i] = ctx
	return true
}

// Proceed calls the real method, or the next layer, with the current arguments.
// It may be called any number of times. Failures of the method are returned unchanged.
func (inv *Invocation) Proceed() ([]any, error) {
	return inv.proceed(inv.args)
}

func (inv *Invocation) String() string {
	return fmt.Sprintf("%s on %T", inv.method, inv.target)
}
