package plugin

import (
	"reflect"
	"strings"
)

// Signature identifies one method on one contract by name and ordered parameter types
type Signature struct {
	Contract reflect.Type
	Method   string
	Args     []reflect.Type
}

// NewSignature creates a signature for a method on the given contract
func NewSignature(contract reflect.Type, method string, args ...reflect.Type) Signature {
	return Signature{
		Contract: contract,
		Method:   method,
		Args:     append([]reflect.Type(nil), args...),
	}
}

// SignatureFor creates a signature for a method on contract C
func SignatureFor[C any](method string, args ...reflect.Type) Signature {
	return NewSignature(reflect.TypeFor[C](), method, args...)
}

// String renders the signature as Contract.Method(T1, T2)
func (s Signature) String() string {
	var b strings.Builder
	if s.Contract != nil {
		b.WriteString(s.Contract.String())
	} else {
		b.WriteString("<nil>")
	}
	b.WriteByte('.')
	b.WriteString(s.Method)
	b.WriteByte('(')
	for i, arg := range s.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		if arg == nil {
			b.WriteString("<nil>")
			continue
		}
		b.WriteString(arg.String())
	}
	b.WriteByte(')')
	return b.String()
}

// methodKey is the identity of a method within one contract.
// params is the canonical func type built from the parameter list, so equal
// parameter lists always produce equal keys.
type methodKey struct {
	name   string
	params reflect.Type
}

func keyOf(name string, fn reflect.Type) methodKey {
	in := make([]reflect.Type, fn.NumIn())
	for i := range in {
		in[i] = fn.In(i)
	}
	return methodKey{name: name, params: reflect.FuncOf(in, nil, fn.IsVariadic())}
}
