// Package otel connects interceptors to OpenTelemetry tracing and metrics.
package otel

import (
	"context"
	"fmt"

	"github.com/glimte/mmate-plugin/interceptors"
	"github.com/glimte/mmate-plugin/plugin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer implements interceptors.Tracer with an OpenTelemetry tracer.
// The tracer should come from your TracerProvider.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new OpenTelemetry tracer adapter
func NewTracer(tracer trace.Tracer) *Tracer {
	return &Tracer{tracer: tracer}
}

// StartSpan starts a client span named after the method label
func (t *Tracer) StartSpan(ctx context.Context, operationName string, method plugin.Method) (context.Context, interceptors.Span) {
	spanCtx, span := t.tracer.Start(ctx, method.Label(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("plugin.operation", operationName),
			attribute.String("code.function", method.Name),
		),
	)
	return spanCtx, &Span{span: span}
}

var _ interceptors.Tracer = (*Tracer)(nil)

// Span wraps an OpenTelemetry span
type Span struct {
	span   trace.Span
	failed bool
}

// SetTag records value as a span attribute
func (s *Span) SetTag(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprint(v)))
	}
}

// SetError records err and marks the span failed
func (s *Span) SetError(err error) {
	if err == nil {
		return
	}
	s.failed = true
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// Finish ends the span, with status ok unless an error was recorded
func (s *Span) Finish() {
	if !s.failed {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

var _ interceptors.Span = (*Span)(nil)
