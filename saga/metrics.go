package saga

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/relaybus/mongopersistence/saga"

// Metrics provides OpenTelemetry instrumentation for a Store.
//
// All methods are nil-safe — calling any method on a nil *Metrics is a
// no-op — so WithMetrics(nil) and simply never calling WithMetrics are
// equivalent.
//
// Available metrics:
//   - saga_operations_total: Counter of Insert/Update/Delete/Find calls, by operation and outcome
//   - saga_operation_duration_seconds: Histogram of operation latency, by operation
//   - saga_conflicts_total: Counter of ConflictError returns, by operation
//   - saga_index_assertions_total: Counter of background index-assertion passes
type Metrics struct {
	operationsTotal   metric.Int64Counter
	operationDuration metric.Float64Histogram
	conflictsTotal    metric.Int64Counter
	indexAssertions   metric.Int64Counter
}

// MetricsOption configures a Metrics instance.
type MetricsOption func(*metricsOptions)

type metricsOptions struct {
	meterProvider metric.MeterProvider
	namespace     string
}

// WithMeterProvider sets a custom meter provider. Defaults to the global
// OpenTelemetry meter provider.
func WithMeterProvider(provider metric.MeterProvider) MetricsOption {
	return func(o *metricsOptions) {
		if provider != nil {
			o.meterProvider = provider
		}
	}
}

// WithMetricsNamespace prefixes every metric name, letting two stores in
// the same process (e.g. one per bus instance) report distinguishable
// series.
func WithMetricsNamespace(namespace string) MetricsOption {
	return func(o *metricsOptions) {
		if namespace != "" {
			o.namespace = namespace + "_"
		}
	}
}

// NewMetrics creates a Metrics instance suitable for saga.WithMetrics.
func NewMetrics(opts ...MetricsOption) (*Metrics, error) {
	o := &metricsOptions{meterProvider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(o)
	}

	meter := o.meterProvider.Meter(meterName)
	prefix := o.namespace
	m := &Metrics{}

	var err error
	m.operationsTotal, err = meter.Int64Counter(
		prefix+"saga_operations_total",
		metric.WithDescription("Total number of saga store operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	m.operationDuration, err = meter.Float64Histogram(
		prefix+"saga_operation_duration_seconds",
		metric.WithDescription("Latency of saga store operations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, err
	}

	m.conflictsTotal, err = meter.Int64Counter(
		prefix+"saga_conflicts_total",
		metric.WithDescription("Total number of optimistic locking conflicts"),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		return nil, err
	}

	m.indexAssertions, err = meter.Int64Counter(
		prefix+"saga_index_assertions_total",
		metric.WithDescription("Total number of background index-assertion passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) record(ctx context.Context, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		var conflict *ConflictError
		if isConflict(err, &conflict) {
			outcome = "conflict"
			m.conflictsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
		}
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.operationsTotal.Add(ctx, 1, attrs)
	m.operationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("operation", operation)))
}

func isConflict(err error, target **ConflictError) bool {
	c, ok := err.(*ConflictError)
	if ok {
		*target = c
	}
	return ok
}

func (m *Metrics) recordInsert(ctx context.Context, d time.Duration, err error) {
	m.record(ctx, "insert", d, err)
}

func (m *Metrics) recordUpdate(ctx context.Context, d time.Duration, err error) {
	m.record(ctx, "update", d, err)
}

func (m *Metrics) recordDelete(ctx context.Context, d time.Duration, err error) {
	m.record(ctx, "delete", d, err)
}

func (m *Metrics) recordFind(ctx context.Context, d time.Duration, err error) {
	m.record(ctx, "find", d, err)
}

func (m *Metrics) recordIndexAssertion(ctx context.Context) {
	if m == nil {
		return
	}
	m.indexAssertions.Add(ctx, 1)
}
