package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// MutationMeta describes one collaborator call for telemetry purposes.
type MutationMeta struct {
	Name    string // Mutation name (required)
	EntryID string // Cache-assigned entry identifier (optional)
	Key     string // Invocation key (optional)
	Task    string // Task identity of this call (optional)
}

// SpanName returns the deterministic span name for this mutation.
// Format: mutation.<name>
func (m MutationMeta) SpanName() string {
	return "mutation." + m.Name
}

// InvocationID returns name/key, or just the name when no key is set.
func (m MutationMeta) InvocationID() string {
	if m.Key == "" {
		return m.Name
	}
	return m.Name + "/" + m.Key
}

// Tracer wraps OpenTelemetry tracing with mutation-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a collaborator call.
	StartSpan(ctx context.Context, meta MutationMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with mutation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta MutationMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("mutation.name", meta.Name),
		attribute.Bool("mutation.error", false),
	}
	if meta.EntryID != "" {
		attrs = append(attrs, attribute.String("mutation.entry", meta.EntryID))
	}
	if meta.Key != "" {
		attrs = append(attrs, attribute.String("mutation.key", meta.Key))
	}
	if meta.Task != "" {
		attrs = append(attrs, attribute.String("mutation.task", meta.Task))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("mutation.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta MutationMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
