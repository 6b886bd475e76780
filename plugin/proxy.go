package plugin

import (
	"fmt"
	"log/slog"
	"reflect"
)

// Plugin pairs an interceptor with its resolved signature registry.
// The registry is built once in NewPlugin; a Plugin holds no other state.
type Plugin struct {
	interceptor Interceptor
	registry    *SignatureRegistry
	contracts   *Contracts
	logger      *slog.Logger
}

// PluginOption configures a plugin
type PluginOption func(*Plugin)

// WithContracts sets the contract catalog used to build proxies
func WithContracts(contracts *Contracts) PluginOption {
	return func(p *Plugin) {
		if contracts != nil {
			p.contracts = contracts
		}
	}
}

// WithLogger sets the logger for wrap decisions
func WithLogger(logger *slog.Logger) PluginOption {
	return func(p *Plugin) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPlugin resolves the interceptor's signatures. It fails with a
// ConfigurationError when the interceptor declares nothing or declares a
// method that does not exist.
func NewPlugin(interceptor Interceptor, options ...PluginOption) (*Plugin, error) {
	if interceptor == nil {
		return nil, &ConfigurationError{Err: ErrNilInterceptor}
	}

	registry, err := NewSignatureRegistry(interceptor.Signatures()...)
	if err != nil {
		if cfgErr, ok := err.(*ConfigurationError); ok {
			cfgErr.Interceptor = interceptor.Name()
		}
		return nil, err
	}

	p := &Plugin{
		interceptor: interceptor,
		registry:    registry,
		contracts:   defaultContracts,
		logger:      slog.Default(),
	}

	for _, opt := range options {
		opt(p)
	}

	return p, nil
}

// Interceptor returns the plugin's interceptor
func (p *Plugin) Interceptor() Interceptor {
	return p.interceptor
}

// Registry returns the plugin's signature registry
func (p *Plugin) Registry() *SignatureRegistry {
	return p.registry
}

// Wrap returns a proxy for target when target implements at least one
// registered contract, and target itself otherwise
func (p *Plugin) Wrap(target any) (any, error) {
	return p.wrap(target, nil)
}

func (p *Plugin) wrap(target any, required reflect.Type) (any, error) {
	if target == nil {
		return target, nil
	}

	targetType := reflect.TypeOf(target)
	selected := Resolve(targetType, p.registry)
	if len(selected) == 0 {
		p.logger.Debug("interceptor does not apply to target",
			"interceptor", p.interceptor.Name(),
			"target", targetType.String(),
		)
		return target, nil
	}

	b, ok := p.contracts.lookup(targetType, selected, required)
	if !ok {
		return nil, &ConfigurationError{
			Interceptor: p.interceptor.Name(),
			Err:         fmt.Errorf("%w: target %s, contracts %v", ErrNoBinding, targetType, selected),
		}
	}

	d := newDispatcher(target, p.interceptor, p.registry, b.contract, selected)
	p.logger.Debug("wrapped target",
		"interceptor", p.interceptor.Name(),
		"target", targetType.String(),
		"contract", b.contract.String(),
		"contracts", len(selected),
	)
	return b.factory(d), nil
}

// Resolve returns the registered contracts the target type implements, in
// registry order. Methods promoted from embedded fields count.
func Resolve(targetType reflect.Type, registry *SignatureRegistry) []reflect.Type {
	if targetType == nil || registry == nil {
		return nil
	}

	var selected []reflect.Type
	for _, contract := range registry.contracts {
		if targetType.Implements(contract) {
			selected = append(selected, contract)
		}
	}
	return selected
}

// Wrap applies the interceptor to target using the default contract catalog
func Wrap(target any, interceptor Interceptor) (any, error) {
	p, err := NewPlugin(interceptor)
	if err != nil {
		return nil, err
	}
	return p.Wrap(target)
}

// WrapAs is the typed form of Wrap. The returned value always implements C;
// a proxy that would not is reported as a ConfigurationError.
func WrapAs[C any](target C, interceptor Interceptor, options ...PluginOption) (C, error) {
	p, err := NewPlugin(interceptor, options...)
	if err != nil {
		var zero C
		return zero, err
	}
	return PluginAs(p, target)
}

// PluginAs wraps target with an existing plugin and returns it as C
func PluginAs[C any](p *Plugin, target C) (C, error) {
	var zero C
	wrapped, err := p.wrap(target, reflect.TypeFor[C]())
	if err != nil {
		return zero, err
	}
	if wrapped == nil {
		return zero, nil
	}
	c, ok := wrapped.(C)
	if !ok {
		return zero, &ConfigurationError{
			Interceptor: p.interceptor.Name(),
			Err:         fmt.Errorf("%w: proxy %T does not implement %s", ErrNoBinding, wrapped, reflect.TypeFor[C]()),
		}
	}
	return c, nil
}
