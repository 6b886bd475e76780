package interceptors

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/glimte/mmate-plugin/plugin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Test contract
type Inventory interface {
	Reserve(ctx context.Context, sku string, qty int) (string, error)
	Count(sku string) (int, error)
}

type inventoryProxy struct{ d *plugin.Dispatcher }

func (p *inventoryProxy) Reserve(ctx context.Context, sku string, qty int) (string, error) {
	out, err := p.d.Call("Reserve", ctx, sku, qty)
	return plugin.Result[string](out, 0), err
}

func (p *inventoryProxy) Count(sku string) (int, error) {
	out, err := p.d.Call("Count", sku)
	return plugin.Result[int](out, 0), err
}

func init() {
	plugin.MustBind[Inventory](plugin.DefaultContracts(), func(d *plugin.Dispatcher) Inventory {
		return &inventoryProxy{d: d}
	})
}

var errOutOfStock = errors.New("out of stock")

func reserveSignature() plugin.Signature {
	return plugin.SignatureFor[Inventory]("Reserve",
		reflect.TypeFor[context.Context](), reflect.TypeFor[string](), reflect.TypeFor[int]())
}

func countSignature() plugin.Signature {
	return plugin.SignatureFor[Inventory]("Count", reflect.TypeFor[string]())
}

func wrap(t testing.TB, target Inventory, interceptor plugin.Interceptor) Inventory {
	t.Helper()
	wrapped, err := plugin.WrapAs[Inventory](target, interceptor)
	require.NoError(t, err)
	return wrapped
}

// Mock inventory
type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) Reserve(ctx context.Context, sku string, qty int) (string, error) {
	args := m.Called(ctx, sku, qty)
	return args.String(0), args.Error(1)
}

func (m *mockInventory) Count(sku string) (int, error) {
	args := m.Called(sku)
	return args.Int(0), args.Error(1)
}

// Mock interfaces for testing
type mockMetricsCollector struct {
	mock.Mock
}

func (m *mockMetricsCollector) IncrementCallCount(method string) {
	m.Called(method)
}

func (m *mockMetricsCollector) RecordCallDuration(method string, duration time.Duration) {
	m.Called(method, duration)
}

func (m *mockMetricsCollector) IncrementErrorCount(method string, errorType string) {
	m.Called(method, errorType)
}

type mockTracer struct {
	mock.Mock
}

func (m *mockTracer) StartSpan(ctx context.Context, operationName string, method plugin.Method) (context.Context, Span) {
	args := m.Called(ctx, operationName, method)
	return args.Get(0).(context.Context), args.Get(1).(Span)
}

type mockSpan struct {
	mock.Mock
}

func (m *mockSpan) SetTag(key string, value any) {
	m.Called(key, value)
}

func (m *mockSpan) SetError(err error) {
	m.Called(err)
}

func (m *mockSpan) Finish() {
	m.Called()
}

type mockRateLimiter struct {
	mock.Mock
}

func (m *mockRateLimiter) Allow(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type mockErrorHandler struct {
	mock.Mock
}

func (m *mockErrorHandler) HandleError(ctx context.Context, method plugin.Method, err error) error {
	args := m.Called(ctx, method, err)
	return args.Error(0)
}

type mockCircuitBreaker struct {
	mock.Mock
}

func (m *mockCircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	args := m.Called(ctx, fn)
	if args.Bool(0) {
		return fn()
	}
	return args.Error(1)
}

type ctxKey string
