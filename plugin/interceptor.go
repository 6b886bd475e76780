package plugin

// Interceptor observes calls to the contract methods it declares
type Interceptor interface {
	// Intercept handles one intercepted call. Calling inv.Proceed runs the next
	// layer or the real method; not calling it short-circuits the call.
	Intercept(inv *Invocation) ([]any, error)

	// Signatures returns the contract methods this interceptor observes
	Signatures() []Signature

	// Name returns the interceptor name for logging and debugging
	Name() string
}

// InterceptorFunc is a function adapter for Interceptor
type InterceptorFunc struct {
	name       string
	signatures []Signature
	fn         func(inv *Invocation) ([]any, error)
}

// NewInterceptorFunc creates a new function-based interceptor
func NewInterceptorFunc(name string, signatures []Signature, fn func(inv *Invocation) ([]any, error)) *InterceptorFunc {
	return &InterceptorFunc{
		name:       name,
		signatures: append([]Signature(nil), signatures...),
		fn:         fn,
	}
}

// Intercept implements Interceptor
func (i *InterceptorFunc) Intercept(inv *Invocation) ([]any, error) {
	return i.fn(inv)
}

// Signatures implements Interceptor
func (i *InterceptorFunc) Signatures() []Signature {
	return append([]Signature(nil), i.signatures...)
}

// Name implements Interceptor
func (i *InterceptorFunc) Name() string {
	return i.name
}
