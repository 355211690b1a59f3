package cart

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/Sabariaz123456/Hackathon3/internal/domain/cart"

// Option configures a Store or Manager.
type Option func(*options)

type options struct {
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	keyPrefix      string
}

// WithMeterProvider sets the meter provider used for cart counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider used for cart operation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithKeyPrefix sets the document key prefix used by a Manager.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.keyPrefix = prefix }
}

func newOptions(opts []Option) options {
	o := options{
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
		keyPrefix:      DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// telemetry bundles the instruments shared by all stores of a manager.
type telemetry struct {
	tracer        trace.Tracer
	operations    metric.Int64Counter
	corrupt       metric.Int64Counter
	storageErrors metric.Int64Counter
}

func newTelemetry(o options) *telemetry {
	meter := o.meterProvider.Meter(instrumentationName)
	return &telemetry{
		tracer: o.tracerProvider.Tracer(instrumentationName),
		operations: counter(meter, "cart.operations",
			"Cart store operations by name"),
		corrupt: counter(meter, "cart.documents.corrupt",
			"Persisted cart documents discarded because they could not be parsed"),
		storageErrors: counter(meter, "cart.storage.errors",
			"Cart backend reads or writes that failed"),
	}
}

func counter(meter metric.Meter, name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return metricnoop.Int64Counter{}
	}
	return c
}

func (t *telemetry) start(ctx context.Context, op, key string) (context.Context, trace.Span) {
	t.operations.Add(ctx, 1, metric.WithAttributes(attribute.String("cart.op", op)))
	return t.tracer.Start(ctx, "cart."+op, trace.WithAttributes(
		attribute.String("cart.op", op),
		attribute.String("cart.key", key),
	))
}

func (t *telemetry) storageError(ctx context.Context, stage string) {
	t.storageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("cart.stage", stage)))
}
