package timeout

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/relaybus/mongopersistence/timeout"

// Metrics provides OpenTelemetry instrumentation for a Store. All methods
// are nil-safe.
//
// Available metrics:
//   - timeout_operations_total: Counter of Add/claim calls, by operation and outcome
//   - timeout_operation_duration_seconds: Histogram of operation latency
//   - timeout_due_batch_size: Histogram of GetDueTimeouts result sizes
type Metrics struct {
	operationsTotal   metric.Int64Counter
	operationDuration metric.Float64Histogram
	dueBatchSize      metric.Int64Histogram
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

// WithMetricsNamespace prefixes every metric name.
func WithMetricsNamespace(namespace string) MetricsOption {
	return func(o *metricsOptions) {
		if namespace != "" {
			o.namespace = namespace + "_"
		}
	}
}

// NewMetrics creates a Metrics instance suitable for timeout.WithMetrics.
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
		prefix+"timeout_operations_total",
		metric.WithDescription("Total number of timeout store operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	m.operationDuration, err = meter.Float64Histogram(
		prefix+"timeout_operation_duration_seconds",
		metric.WithDescription("Latency of timeout store operations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, err
	}

	m.dueBatchSize, err = meter.Int64Histogram(
		prefix+"timeout_due_batch_size",
		metric.WithDescription("Number of timeouts claimed per GetDueTimeouts call"),
		metric.WithUnit("{timeout}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 25, 50, 100),
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
	if err != nil && err != mongo.ErrNoDocuments {
		outcome = "error"
	}
	m.operationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
	m.operationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("operation", operation)))
}

func (m *Metrics) recordAdd(ctx context.Context, d time.Duration, err error) {
	m.record(ctx, "add", d, err)
}

func (m *Metrics) recordClaim(ctx context.Context, d time.Duration, err error) {
	m.record(ctx, "claim", d, err)
}

func (m *Metrics) recordBatchSize(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.dueBatchSize.Record(ctx, int64(n))
}
