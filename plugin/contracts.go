package plugin

import (
	"fmt"
	"reflect"
	"sync"
)

// ProxyFactory builds a forwarding value for one bound contract.
// Every method of the returned value must delegate to d.Call.
type ProxyFactory func(d *Dispatcher) any

type binding struct {
	contract reflect.Type
	factory  ProxyFactory
}

// Contracts is a catalog of contracts that have a forwarding implementation.
// A proxy can only be built for targets whose selected contracts are covered
// by one bound contract.
type Contracts struct {
	bindings []*binding
	index    map[reflect.Type]*binding
	mu       sync.RWMutex
}

// NewContracts creates an empty contract catalog
func NewContracts() *Contracts {
	return &Contracts{
		index: make(map[reflect.Type]*binding),
	}
}

// Global catalog used by Wrap and by plugins created without WithContracts
var defaultContracts = NewContracts()

// DefaultContracts returns the global contract catalog
func DefaultContracts() *Contracts {
	return defaultContracts
}

// Bind registers the forwarding implementation for contract C
func Bind[C any](cs *Contracts, factory func(d *Dispatcher) C) error {
	contract := reflect.TypeFor[C]()
	if factory == nil {
		return &ConfigurationError{Err: fmt.Errorf("%w: nil proxy factory for %s", ErrNoBinding, contract)}
	}
	return cs.bind(contract, func(d *Dispatcher) any { return factory(d) })
}

// MustBind is like Bind but panics on error. It is meant for package init functions.
func MustBind[C any](cs *Contracts, factory func(d *Dispatcher) C) {
	if err := Bind(cs, factory); err != nil {
		panic(err)
	}
}

func (cs *Contracts) bind(contract reflect.Type, factory ProxyFactory) error {
	if contract.Kind() != reflect.Interface {
		return &ConfigurationError{Err: fmt.Errorf("%w: %s", ErrNotInterface, contract)}
	}
	if contract.NumMethod() == 0 {
		return &ConfigurationError{Err: fmt.Errorf("%w: %s declares no methods", ErrNotInterface, contract)}
	}
	for i := 0; i < contract.NumMethod(); i++ {
		if m := contract.Method(i); !m.IsExported() {
			return &ConfigurationError{Err: fmt.Errorf("%w: %s.%s", ErrUnexportedMethod, contract, m.Name)}
		}
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, exists := cs.index[contract]; exists {
		return &ConfigurationError{Err: fmt.Errorf("%w: %s", ErrAlreadyBound, contract)}
	}

	b := &binding{contract: contract, factory: factory}
	cs.bindings = append(cs.bindings, b)
	cs.index[contract] = b
	return nil
}

// IsBound checks if a contract has a forwarding implementation
func (cs *Contracts) IsBound(contract reflect.Type) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	_, exists := cs.index[contract]
	return exists
}

// Bound returns the bound contracts in registration order
func (cs *Contracts) Bound() []reflect.Type {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	types := make([]reflect.Type, len(cs.bindings))
	for i, b := range cs.bindings {
		types[i] = b.contract
	}
	return types
}

// lookup picks the smallest bound contract that the target implements and that
// includes every selected contract and the required one. Ties go to the
// earliest registration.
func (cs *Contracts) lookup(targetType reflect.Type, selected []reflect.Type, required reflect.Type) (*binding, bool) {
	if required != nil && required.Kind() != reflect.Interface {
		return nil, false
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()

	var best *binding
	for _, b := range cs.bindings {
		if !targetType.Implements(b.contract) {
			continue
		}
		if required != nil && !b.contract.Implements(required) {
			continue
		}
		covers := true
		for _, contract := range selected {
			if !b.contract.Implements(contract) {
				covers = false
				break
			}
		}
		if !covers {
			continue
		}
		if best == nil || b.contract.NumMethod() < best.contract.NumMethod() {
			best = b
		}
	}
	return best, best != nil
}
