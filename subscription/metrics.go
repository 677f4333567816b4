package subscription

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/relaybus/mongopersistence/subscription"

// Metrics provides OpenTelemetry instrumentation for a Store. All methods
// are nil-safe.
type Metrics struct {
	operationsTotal metric.Int64Counter
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

// NewMetrics creates a Metrics instance suitable for subscription.WithMetrics.
func NewMetrics(opts ...MetricsOption) (*Metrics, error) {
	o := &metricsOptions{meterProvider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(o)
	}

	meter := o.meterProvider.Meter(meterName)

	operationsTotal, err := meter.Int64Counter(
		o.namespace+"subscription_operations_total",
		metric.WithDescription("Total number of subscription store operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{operationsTotal: operationsTotal}, nil
}

func (m *Metrics) record(ctx context.Context, operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) recordStore(ctx context.Context, err error) { m.record(ctx, "store", err) }

func (m *Metrics) recordRemove(ctx context.Context, err error) { m.record(ctx, "remove", err) }
