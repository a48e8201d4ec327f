package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"caucus/internal/models"
	"caucus/internal/storage"
)

// InstrumentedStorage wraps a storage.Storage implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// Ensure InstrumentedStorage implements storage.Storage
var _ storage.Storage = (*InstrumentedStorage)(nil)

// NewInstrumentedStorage creates a new storage wrapper that records trace spans,
// operation latency histograms, and error counters for every storage method call.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	tracer := otel.Tracer("caucus/storage")
	meter := otel.Meter("caucus/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of storage operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStorage) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "storage."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
}

// record ends span and records the operation. A missing document is an
// expected outcome and is not counted as an error.
func (s *InstrumentedStorage) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, storage.ErrNotFound):
		span.SetAttributes(attribute.Bool("storage.not_found", true))
	default:
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}

// observe runs fn inside a span and records its duration.
func observe[T any](ctx context.Context, s *InstrumentedStorage, operation string, fn func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := s.startSpan(ctx, operation, attrs...)
	start := time.Now()
	result, err := fn(ctx)
	s.record(ctx, span, operation, start, err)
	return result, err
}

func (s *InstrumentedStorage) observeErr(ctx context.Context, operation string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	_, err := observe(ctx, s, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, attrs...)
	return err
}

func idAttr(id string) attribute.KeyValue {
	return attribute.String("document.id", id)
}

func (s *InstrumentedStorage) Events(ctx context.Context) ([]*models.Event, error) {
	return observe(ctx, s, "Events", s.inner.Events)
}

func (s *InstrumentedStorage) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return observe(ctx, s, "GetEvent", func(ctx context.Context) (*models.Event, error) {
		return s.inner.GetEvent(ctx, id)
	}, idAttr(id))
}

func (s *InstrumentedStorage) SaveEvent(ctx context.Context, event *models.Event) error {
	return s.observeErr(ctx, "SaveEvent", func(ctx context.Context) error {
		return s.inner.SaveEvent(ctx, event)
	}, idAttr(event.ID))
}

func (s *InstrumentedStorage) DeleteEvent(ctx context.Context, id string) error {
	return s.observeErr(ctx, "DeleteEvent", func(ctx context.Context) error {
		return s.inner.DeleteEvent(ctx, id)
	}, idAttr(id))
}

func (s *InstrumentedStorage) Resources(ctx context.Context) ([]*models.Resource, error) {
	return observe(ctx, s, "Resources", s.inner.Resources)
}

func (s *InstrumentedStorage) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	return observe(ctx, s, "GetResource", func(ctx context.Context) (*models.Resource, error) {
		return s.inner.GetResource(ctx, id)
	}, idAttr(id))
}

func (s *InstrumentedStorage) SaveResource(ctx context.Context, resource *models.Resource) error {
	return s.observeErr(ctx, "SaveResource", func(ctx context.Context) error {
		return s.inner.SaveResource(ctx, resource)
	}, idAttr(resource.ID))
}

func (s *InstrumentedStorage) DeleteResource(ctx context.Context, id string) error {
	return s.observeErr(ctx, "DeleteResource", func(ctx context.Context) error {
		return s.inner.DeleteResource(ctx, id)
	}, idAttr(id))
}

func (s *InstrumentedStorage) TechItems(ctx context.Context) ([]*models.TechItem, error) {
	return observe(ctx, s, "TechItems", s.inner.TechItems)
}

func (s *InstrumentedStorage) GetTechItem(ctx context.Context, id string) (*models.TechItem, error) {
	return observe(ctx, s, "GetTechItem", func(ctx context.Context) (*models.TechItem, error) {
		return s.inner.GetTechItem(ctx, id)
	}, idAttr(id))
}

func (s *InstrumentedStorage) SaveTechItem(ctx context.Context, item *models.TechItem) error {
	return s.observeErr(ctx, "SaveTechItem", func(ctx context.Context) error {
		return s.inner.SaveTechItem(ctx, item)
	}, idAttr(item.ID))
}

func (s *InstrumentedStorage) DeleteTechItem(ctx context.Context, id string) error {
	return s.observeErr(ctx, "DeleteTechItem", func(ctx context.Context) error {
		return s.inner.DeleteTechItem(ctx, id)
	}, idAttr(id))
}

func (s *InstrumentedStorage) ContactMessages(ctx context.Context) ([]*models.ContactMessage, error) {
	return observe(ctx, s, "ContactMessages", s.inner.ContactMessages)
}

func (s *InstrumentedStorage) SaveContactMessage(ctx context.Context, msg *models.ContactMessage) error {
	return s.observeErr(ctx, "SaveContactMessage", func(ctx context.Context) error {
		return s.inner.SaveContactMessage(ctx, msg)
	}, idAttr(msg.ID))
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	return s.observeErr(ctx, "Ping", s.inner.Ping)
}

// Close closes the wrapped storage. It is not traced.
func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
