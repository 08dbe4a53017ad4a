package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records execution metrics for mutations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
// - Cardinality: invocation keys are never used as metric attributes.
type Metrics interface {
	// RecordExecution records one collaborator call with duration and error status.
	RecordExecution(ctx context.Context, meta MutationMeta, duration time.Duration, err error)

	// RecordDiscard records a completion dropped because a newer call superseded it.
	RecordDiscard(ctx context.Context, meta MutationMeta)
}

type metricsImpl struct {
	totalCount     metric.Int64Counter
	errorCount     metric.Int64Counter
	discardedCount metric.Int64Counter
	durationHist   metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"mutation.exec.total",
		metric.WithDescription("Total number of mutation calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"mutation.exec.errors",
		metric.WithDescription("Total number of failed mutation calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	discardedCount, err := meter.Int64Counter(
		"mutation.settle.discarded",
		metric.WithDescription("Completions discarded because a newer call superseded them"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"mutation.exec.duration_ms",
		metric.WithDescription("Mutation call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:     totalCount,
		errorCount:     errorCount,
		discardedCount: discardedCount,
		durationHist:   durationHist,
	}, nil
}

func attributesFor(meta MutationMeta) metric.MeasurementOption {
	attrs := []attribute.KeyValue{
		attribute.String("mutation.name", meta.Name),
	}
	if meta.EntryID != "" {
		attrs = append(attrs, attribute.String("mutation.entry", meta.EntryID))
	}
	return metric.WithAttributes(attrs...)
}

// RecordExecution records metrics for a collaborator call.
func (m *metricsImpl) RecordExecution(ctx context.Context, meta MutationMeta, duration time.Duration, err error) {
	opt := attributesFor(meta)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordDiscard increments the discarded counter.
func (m *metricsImpl) RecordDiscard(ctx context.Context, meta MutationMeta) {
	m.discardedCount.Add(ctx, 1, attributesFor(meta))
}

type noopMetrics struct{}

func (m *noopMetrics) RecordExecution(context.Context, MutationMeta, time.Duration, error) {}
func (m *noopMetrics) RecordDiscard(context.Context, MutationMeta)                         {}
