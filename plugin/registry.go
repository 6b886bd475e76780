package plugin

import (
	"fmt"
	"reflect"
	"sort"
)

// SignatureRegistry maps each contract to the methods an interceptor observes.
// It is immutable once built and safe for concurrent use.
type SignatureRegistry struct {
	methods   map[reflect.Type]map[methodKey]reflect.Method
	contracts []reflect.Type
	size      int
}

// NewSignatureRegistry resolves every signature against its contract.
// Any unresolvable signature fails the whole build.
func NewSignatureRegistry(signatures ...Signature) (*SignatureRegistry, error) {
	if len(signatures) == 0 {
		return nil, &ConfigurationError{Err: ErrNoSignatures}
	}

	r := &SignatureRegistry{
		methods: make(map[reflect.Type]map[methodKey]reflect.Method),
	}

	for i := range signatures {
		sig := signatures[i]
		method, err := resolveMethod(sig)
		if err != nil {
			return nil, &ConfigurationError{Signature: &sig, Err: err}
		}

		set, exists := r.methods[sig.Contract]
		if !exists {
			set = make(map[methodKey]reflect.Method)
			r.methods[sig.Contract] = set
			r.contracts = append(r.contracts, sig.Contract)
		}

		key := keyOf(method.Name, method.Type)
		if _, dup := set[key]; dup {
			continue
		}
		set[key] = method
		r.size++
	}

	return r, nil
}

// resolveMethod finds the method a signature names, matching the parameter list exactly
func resolveMethod(sig Signature) (reflect.Method, error) {
	if sig.Contract == nil || sig.Contract.Kind() != reflect.Interface {
		return reflect.Method{}, ErrNotInterface
	}

	method, ok := sig.Contract.MethodByName(sig.Method)
	if !ok {
		return reflect.Method{}, fmt.Errorf("%w: %s has no method %s", ErrMethodNotFound, sig.Contract, sig.Method)
	}

	if method.Type.NumIn() != len(sig.Args) {
		return reflect.Method{}, fmt.Errorf("%w: %s.%s takes %d parameters, signature declares %d",
			ErrMethodNotFound, sig.Contract, sig.Method, method.Type.NumIn(), len(sig.Args))
	}
	for i, arg := range sig.Args {
		if method.Type.In(i) != arg {
			return reflect.Method{}, fmt.Errorf("%w: %s.%s parameter %d is %s, signature declares %v",
				ErrMethodNotFound, sig.Contract, sig.Method, i, method.Type.In(i), arg)
		}
	}

	return method, nil
}

// Contracts returns the registered contracts in first-declaration order
func (r *SignatureRegistry) Contracts() []reflect.Type {
	return append([]reflect.Type(nil), r.contracts...)
}

// Has reports whether the contract has at least one registered method
func (r *SignatureRegistry) Has(contract reflect.Type) bool {
	_, ok := r.methods[contract]
	return ok
}

// Methods returns the registered methods of a contract sorted by name
func (r *SignatureRegistry) Methods(contract reflect.Type) []reflect.Method {
	set := r.methods[contract]
	methods := make([]reflect.Method, 0, len(set))
	for _, m := range set {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool {
		return methods[i].Name < methods[j].Name
	})
	return methods
}

// Contains reports whether the contract method with the given parameter types is registered
func (r *SignatureRegistry) Contains(contract reflect.Type, name string, params ...reflect.Type) bool {
	set, ok := r.methods[contract]
	if !ok {
		return false
	}
	for key := range set {
		if key.name != name || key.params.NumIn() != len(params) {
			continue
		}
		match := true
		for i, p := range params {
			if key.params.In(i) != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Len returns the number of distinct registered methods across all contracts
func (r *SignatureRegistry) Len() int {
	return r.size
}

func (r *SignatureRegistry) contains(contract reflect.Type, key methodKey) bool {
	_, ok := r.methods[contract][key]
	return ok
}
