package kvstore

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/dataacquisition/das/internal/kvstore"

// InstrumentedBackend records a span and duration/count metrics per operation.
type InstrumentedBackend struct {
	next     Backend
	driver   string
	tracer   trace.Tracer
	duration metric.Float64Histogram
	total    metric.Int64Counter
}

// NewInstrumentedBackend wraps next using the global tracer and meter providers.
func NewInstrumentedBackend(next Backend, driver string) (*InstrumentedBackend, error) {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"kvstore.operation.duration",
		metric.WithDescription("Duration of key-value store operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	total, err := meter.Int64Counter(
		"kvstore.operation.total",
		metric.WithDescription("Total number of key-value store operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedBackend{
		next:     next,
		driver:   driver,
		tracer:   otel.Tracer(instrumentationName),
		duration: duration,
		total:    total,
	}, nil
}

func (b *InstrumentedBackend) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := b.tracer.Start(ctx, "kvstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", b.driver)),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	// A missing key is an answer, not a failure.
	failed := err != nil && !errors.Is(err, ErrNil)
	if failed {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	attrs := metric.WithAttributes(
		attribute.String("kvstore.driver", b.driver),
		attribute.String("kvstore.operation", op),
		attribute.Bool("error", failed),
	)
	b.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	b.total.Add(ctx, 1, attrs)
	return err
}

// Set stores value under key.
func (b *InstrumentedBackend) Set(ctx context.Context, key, value string) error {
	return b.observe(ctx, "set", func(ctx context.Context) error {
		return b.next.Set(ctx, key, value)
	})
}

// Get returns the value stored under key.
func (b *InstrumentedBackend) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := b.observe(ctx, "get", func(ctx context.Context) error {
		var err error
		v, err = b.next.Get(ctx, key)
		return err
	})
	return v, err
}

// Keys returns the keys matching pattern.
func (b *InstrumentedBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	err := b.observe(ctx, "keys", func(ctx context.Context) error {
		var err error
		keys, err = b.next.Keys(ctx, pattern)
		return err
	})
	return keys, err
}

// Ping checks the wrapped backend.
func (b *InstrumentedBackend) Ping(ctx context.Context) error {
	return b.observe(ctx, "ping", b.next.Ping)
}

// Unwrap returns the instrumented backend.
func (b *InstrumentedBackend) Unwrap() Backend { return b.next }

var _ Backend = (*InstrumentedBackend)(nil)
