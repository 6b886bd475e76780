package plugin

import (
	"log/slog"
	"reflect"
	"sync"
)

// InterceptorChain applies a sequence of interceptors to targets.
// Each interceptor wraps the result of the previous one, so the last one
// added sees calls first.
type InterceptorChain struct {
	plugins   []*Plugin
	contracts *Contracts
	logger    *slog.Logger
	mu        sync.RWMutex
}

// ChainOption configures an interceptor chain
type ChainOption func(*InterceptorChain)

// WithChainContracts sets the contract catalog for every plugin in the chain
func WithChainContracts(contracts *Contracts) ChainOption {
	return func(c *InterceptorChain) {
		if contracts != nil {
			c.contracts = contracts
		}
	}
}

// WithChainLogger sets the logger for the chain and its plugins
func WithChainLogger(logger *slog.Logger) ChainOption {
	return func(c *InterceptorChain) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewInterceptorChain creates a new interceptor chain
func NewInterceptorChain(options ...ChainOption) *InterceptorChain {
	c := &InterceptorChain{
		plugins:   make([]*Plugin, 0),
		contracts: defaultContracts,
		logger:    slog.Default(),
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// Add resolves the interceptor's signatures and appends it to the chain.
// A misconfigured interceptor is rejected and the chain is left unchanged.
func (c *InterceptorChain) Add(interceptor Interceptor) error {
	p, err := NewPlugin(interceptor, WithContracts(c.contracts), WithLogger(c.logger))
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.plugins = append(c.plugins, p)
	c.mu.Unlock()
	return nil
}

// Interceptors returns the interceptors in the order they were added
func (c *InterceptorChain) Interceptors() []Interceptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	interceptors := make([]Interceptor, len(c.plugins))
	for i, p := range c.plugins {
		interceptors[i] = p.interceptor
	}
	return interceptors
}

// Len returns the number of interceptors in the chain
func (c *InterceptorChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.plugins)
}

// PluginAll wraps target with every interceptor in order
func (c *InterceptorChain) PluginAll(target any) (any, error) {
	return c.pluginAll(target, nil)
}

func (c *InterceptorChain) pluginAll(target any, required reflect.Type) (any, error) {
	c.mu.RLock()
	plugins := append([]*Plugin(nil), c.plugins...)
	c.mu.RUnlock()

	var err error
	for _, p := range plugins {
		target, err = p.wrap(target, required)
		if err != nil {
			return nil, err
		}
	}
	return target, nil
}

// ApplyAs is the typed form of PluginAll
func ApplyAs[C any](c *InterceptorChain, target C) (C, error) {
	var zero C
	wrapped, err := c.pluginAll(target, reflect.TypeFor[C]())
	if err != nil || wrapped == nil {
		return zero, err
	}
	return wrapped.(C), nil
}
