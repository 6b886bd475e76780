package plugin

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/stretchr/testify/mock"
)

// Test contracts
type Store interface {
	Get(key string) (string, error)
	Close(flag bool) bool
}

type Lister interface {
	Keys() []string
}

type StoreLister interface {
	Store
	Lister
}

type Publisher interface {
	Publish(ctx context.Context, topic string, tags ...string) error
}

// Flusher is intentionally never bound
type Flusher interface {
	Flush() error
}

var (
	storeType  = reflect.TypeFor[Store]()
	listerType = reflect.TypeFor[Lister]()
	stringType = reflect.TypeFor[string]()
	boolType   = reflect.TypeFor[bool]()

	errNotFound = errors.New("key not found")
)

// Forwarders
type storeProxy struct{ d *Dispatcher }

func (p *storeProxy) Get(key string) (string, error) {
	out, err := p.d.Call("Get", key)
	return Result[string](out, 0), err
}

func (p *storeProxy) Close(flag bool) bool {
	out, _ := p.d.Call("Close", flag)
	return Result[bool](out, 0)
}

type storeListerProxy struct{ storeProxy }

func (p *storeListerProxy) Keys() []string {
	out, _ := p.d.Call("Keys")
	return Result[[]string](out, 0)
}

type publisherProxy struct{ d *Dispatcher }

func (p *publisherProxy) Publish(ctx context.Context, topic string, tags ...string) error {
	_, err := p.d.Call("Publish", ctx, topic, tags)
	return err
}

func newStoreProxy(d *Dispatcher) Store {
	return &storeProxy{d: d}
}

func newStoreListerProxy(d *Dispatcher) StoreLister {
	return &storeListerProxy{storeProxy{d: d}}
}

func newPublisherProxy(d *Dispatcher) Publisher {
	return &publisherProxy{d: d}
}

func init() {
	MustBind[Store](DefaultContracts(), newStoreProxy)
	MustBind[StoreLister](DefaultContracts(), newStoreListerProxy)
	MustBind[Publisher](DefaultContracts(), newPublisherProxy)
}

// Targets
type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	gets   int
	closed bool
}

func newMemoryStore(values map[string]string) *memoryStore {
	return &memoryStore{values: values}
}

func (s *memoryStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	v, ok := s.values[key]
	if !ok {
		return "", errNotFound
	}
	return v, nil
}

func (s *memoryStore) Close(flag bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = flag
	return !flag
}

func (s *memoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

func (s *memoryStore) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

// embeddedStore implements Store only through the promoted methods of memoryStore
type embeddedStore struct {
	*memoryStore
}

// keysOnly implements Lister and nothing else
type keysOnly struct{}

func (keysOnly) Keys() []string { return []string{"a"} }

// Mock store
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Close(flag bool) bool {
	args := m.Called(flag)
	return args.Bool(0)
}

// Mock publisher
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, tags ...string) error {
	args := m.Called(ctx, topic, tags)
	return args.Error(0)
}

// Interceptor helpers
func getSignature() Signature {
	return SignatureFor[Store]("Get", stringType)
}

func closeSignature() Signature {
	return SignatureFor[Store]("Close", boolType)
}

func passThrough(name string, sigs ...Signature) *InterceptorFunc {
	return NewInterceptorFunc(name, sigs, func(inv *Invocation) ([]any, error) {
		return inv.Proceed()
	})
}

func constant(name string, value string, sigs ...Signature) *InterceptorFunc {
	return NewInterceptorFunc(name, sigs, func(inv *Invocation) ([]any, error) {
		return []any{value}, nil
	})
}
