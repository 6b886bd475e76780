// Package plugin provides selective method interception for Go interfaces.
//
// An interceptor declares the contract methods it wants to observe as a list of
// signatures (contract interface, method name, parameter types). Wrapping a target
// with the interceptor yields a value that behaves exactly like the target, except
// that calls to the declared methods are routed through the interceptor first.
//
// The package provides:
//   - Signature and SignatureRegistry: signatures resolved and validated once per interceptor
//   - Plugin and Wrap: apply one interceptor to a target
//   - InterceptorChain: apply several interceptors, each wrapping the previous result
//   - Invocation: the per-call record handed to an interceptor, with Proceed
//   - Contracts and Dispatcher: forwarding implementations for contracts
//
// Go cannot build interface implementations at run time, so every contract that can be
// proxied is bound once to a small forwarding type whose methods delegate to a
// Dispatcher:
//
//	type storeProxy struct{ d *plugin.Dispatcher }
//
//	func (p *storeProxy) Get(key string) (string, error) {
//		out, err := p.d.Call("Get", key)
//		return plugin.Result[string](out, 0), err
//	}
//
//	func init() {
//		plugin.MustBind[Store](plugin.DefaultContracts(), func(d *plugin.Dispatcher) Store {
//			return &storeProxy{d: d}
//		})
//	}
//
// An interceptor then names the methods it observes:
//
//	audit := plugin.NewInterceptorFunc("audit",
//		[]plugin.Signature{plugin.SignatureFor[Store]("Get", reflect.TypeFor[string]())},
//		func(inv *plugin.Invocation) ([]any, error) {
//			out, err := inv.Proceed()
//			log.Printf("%s -> %v", inv.Method(), out)
//			return out, err
//		})
//
//	store, err := plugin.WrapAs[Store](realStore, audit)
//
// If the target implements none of the contracts an interceptor registers, Wrap returns
// the target itself. Errors returned by the real method reach the caller unchanged; a
// ProxyError is only produced when an interceptor misuses the proxy, for example by
// returning results of the wrong type.
package plugin
