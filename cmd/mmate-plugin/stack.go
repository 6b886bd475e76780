package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	oteladapter "github.com/glimte/mmate-plugin/adapters/otel"
	prommetrics "github.com/glimte/mmate-plugin/adapters/prometheus"
	"github.com/glimte/mmate-plugin/health"
	"github.com/glimte/mmate-plugin/interceptors"
	"github.com/glimte/mmate-plugin/internal/reliability"
	"github.com/glimte/mmate-plugin/monitor"
	"github.com/glimte/mmate-plugin/plugin"
	"github.com/glimte/mmate-plugin/transports/rabbitmq"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// stackOptions are the flags shared by every command
type stackOptions struct {
	url      string
	poolSize int
	timeout  time.Duration
	rate     float64
	retries  int
	trace    bool
	logger   *slog.Logger
}

// stack is a connected channel pool with the full interceptor chain applied
type stack struct {
	conn      *amqp.Connection
	pool      *rabbitmq.ChannelPool
	breaker   *reliability.CircuitBreaker
	collector *monitor.SimpleMetricsCollector
	registry  *prometheus.Registry
	health    *health.Registry
	tracer    *sdktrace.TracerProvider
	logger    *slog.Logger
}

// fanOut reports to several metrics collectors
type fanOut []interceptors.MetricsCollector

func (f fanOut) IncrementCallCount(method string) {
	for _, c := range f {
		c.IncrementCallCount(method)
	}
}

func (f fanOut) RecordCallDuration(method string, duration time.Duration) {
	for _, c := range f {
		c.RecordCallDuration(method, duration)
	}
}

func (f fanOut) IncrementErrorCount(method string, errorType string) {
	for _, c := range f {
		c.IncrementErrorCount(method, errorType)
	}
}

// breakerLogger logs circuit breaker transitions
type breakerLogger struct{ logger *slog.Logger }

func (l breakerLogger) OnStateChange(name string, from, to reliability.State, reason string) {
	l.logger.Warn("circuit breaker state changed",
		"breaker", name,
		"from", from.String(),
		"to", to.String(),
		"reason", reason,
	)
}

func newStack(opts stackOptions) (*stack, error) {
	s := &stack{
		collector: monitor.NewSimpleMetricsCollector(),
		registry:  prometheus.NewRegistry(),
		logger:    opts.logger,
	}
	s.breaker = reliability.NewCircuitBreaker(
		reliability.WithName("rabbitmq"),
		reliability.WithListener(breakerLogger{logger: opts.logger}),
	)

	promCollector, err := prommetrics.NewMetricsCollector(s.registry, prommetrics.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	signatures := append([]plugin.Signature{rabbitmq.PublishSignature()}, rabbitmq.TopologySignatures()...)
	builder := interceptors.NewChainBuilder(opts.logger, signatures...).
		WithTimeout(opts.timeout)
	if opts.rate > 0 {
		builder = builder.WithRateLimit(interceptors.NewKeyedLimiter(opts.rate, int(opts.rate)+1))
	}
	retry := reliability.NewExponentialBackoff(100*time.Millisecond, 2*time.Second, 2, opts.retries)
	retry.Retryable = rabbitmq.IsTransient
	builder = builder.
		WithCircuitBreaker(s.breaker).
		WithRetry(retry)
	if opts.trace {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		s.tracer = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		builder = builder.WithTracing(oteladapter.NewTracer(s.tracer.Tracer("mmate-plugin")))
	}
	chain, err := builder.
		WithMetrics(fanOut{s.collector, promCollector}).
		WithLogging().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build interceptor chain: %w", err)
	}

	s.conn, err = amqp.Dial(opts.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	s.pool, err = rabbitmq.NewChannelPool(rabbitmq.ConnectionOpener(s.conn),
		rabbitmq.WithMaxSize(opts.poolSize),
		rabbitmq.WithInterceptors(chain),
	)
	if err != nil {
		_ = s.conn.Close()
		return nil, err
	}

	s.health = health.NewRegistry(health.WithRegistryLogger(opts.logger))
	err = s.health.Register(
		health.NewChannelPoolChecker(s.pool),
		health.NewCircuitBreakerChecker(s.breaker),
		health.NewErrorRateChecker(s.collector, 0.05, 0.25),
		health.NewComponentChecker("connection", func(context.Context) (health.Status, string, map[string]any, error) {
			if s.conn.IsClosed() {
				return health.StatusUnhealthy, "Connection is closed", nil, amqp.ErrClosed
			}
			return health.StatusHealthy, "Connection is open", nil, nil
		}),
	)
	if err != nil {
		_ = s.Close(context.Background())
		return nil, err
	}

	return s, nil
}

func (s *stack) Close(ctx context.Context) error {
	var errs []error
	if err := s.pool.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	if s.tracer != nil {
		if err := s.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
