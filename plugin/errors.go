package plugin

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrNoSignatures     = errors.New("plugin: interceptor declares no signatures")
	ErrNotInterface     = errors.New("plugin: contract is not an interface type")
	ErrMethodNotFound   = errors.New("plugin: method not found on contract")
	ErrNoBinding        = errors.New("plugin: no bound contract covers the selected contracts")
	ErrAlreadyBound     = errors.New("plugin: contract already bound")
	ErrUnexportedMethod = errors.New("plugin: contract has unexported methods")
	ErrNilInterceptor   = errors.New("plugin: interceptor is nil")

	// Proxy errors
	ErrResultMismatch   = errors.New("plugin: interceptor results do not match method results")
	ErrArgumentMismatch = errors.New("plugin: argument does not match method parameter")
)

// ConfigurationError is returned when an interceptor or contract binding cannot be
// applied. It is always surfaced at wrap or bind time.
type ConfigurationError struct {
	Interceptor string
	Signature   *Signature
	Err         error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Signature != nil && e.Interceptor != "":
		return fmt.Sprintf("plugin configuration: interceptor %s: %s: %v", e.Interceptor, e.Signature, e.Err)
	case e.Signature != nil:
		return fmt.Sprintf("plugin configuration: %s: %v", e.Signature, e.Err)
	case e.Interceptor != "":
		return fmt.Sprintf("plugin configuration: interceptor %s: %v", e.Interceptor, e.Err)
	default:
		return fmt.Sprintf("plugin configuration: %v", e.Err)
	}
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// ProxyError reports misuse of a proxy by an interceptor, as opposed to a failure
// of the underlying method
type ProxyError struct {
	Method Method
	Index  int
	Err    error
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("plugin proxy: %s: position %d: %v", e.Method, e.Index, e.Err)
}

func (e *ProxyError) Unwrap() error {
	return e.Err
}
