// Package service implements the document lifecycle: creation with derived
// dates, filtered listing, versioned update and delete-to-archive.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"middleoffice/internal/document/events"
	"middleoffice/internal/document/filter"
	"middleoffice/internal/document/metrics"
	"middleoffice/internal/document/models"
	dErrors "middleoffice/pkg/domain-errors"
	"middleoffice/pkg/platform/lease"
	"middleoffice/pkg/platform/sentinel"
	"middleoffice/pkg/requestcontext"
)

// Store is the persistence backend. Supersede and Archive must be atomic:
// either the record leaves Active together with its archive copy being
// written, or nothing changes and sentinel.ErrNotFound is returned.
type Store interface {
	Insert(ctx context.Context, record models.Content) (string, error)
	FindByID(ctx context.Context, id string) (models.Content, error)
	Find(ctx context.Context, predicate bson.D, page filter.Page) ([]models.Content, error)
	Count(ctx context.Context, predicate bson.D) (int64, error)
	Supersede(ctx context.Context, id string, original, replacement models.Content) (string, error)
	Archive(ctx context.Context, id string, original models.Content) (int64, error)
	Ping(ctx context.Context) error
}

// Publisher receives lifecycle events after a transition commits.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service orchestrates document operations.
type Service struct {
	store     Store
	locker    lease.Locker
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func(ctx context.Context) time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithLocker replaces the default in-process per-identifier lease.
func WithLocker(l lease.Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

// WithClock fixes the time used for integrationDate and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = func(context.Context) time.Time { return now() }
	}
}

// New constructs a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("middleoffice/document"),
		now:    requestcontext.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = lease.NewSharded(0)
	}
	return s
}

// Create validates and stores a new document. The returned Document carries
// only the assigned identifier.
func (s *Service) Create(ctx context.Context, content any) (doc *models.Document, err error) {
	ctx, finish := s.begin(ctx, "create")
	defer func() { finish(err) }()

	obj, ok := asObject(content)
	if !ok {
		return nil, dErrors.New(dErrors.CodeParsing, "Document creation exception")
	}
	record, err := s.prepare(ctx, obj)
	if err != nil {
		return nil, err
	}
	id, err := s.store.Insert(ctx, record)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConnection, err.Error())
	}

	s.publish(ctx, events.New(events.TypeCreated, id, "", s.timestamp(ctx)))
	return &models.Document{ID: id, Content: models.InsertedID(id)}, nil
}

// Get returns the active version of id without its identifier field.
func (s *Service) Get(ctx context.Context, id string) (doc *models.Document, err error) {
	ctx, finish := s.begin(ctx, "get")
	defer func() { finish(err) }()

	if !validID(id) {
		return nil, dErrors.New(dErrors.CodeOidFormat, "ObjectId wrongly structure.")
	}
	content, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.Document{ID: id, Content: content}, nil
}

func (s *Service) get(ctx context.Context, id string) (models.Content, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeDataNotFound, "No result.")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeConnection, fmt.Sprintf("Exception on get any : %s", err))
	}
	delete(record, models.FieldID)
	return record, nil
}

// List returns one page of active documents matching q. Listed content keeps
// its identifier so callers can address each version.
func (s *Service) List(ctx context.Context, q models.Query) (docs []models.Document, err error) {
	ctx, finish := s.begin(ctx, "list")
	defer func() { finish(err) }()

	predicate, err := filter.Build(q)
	if err != nil {
		return nil, err
	}
	records, err := s.store.Find(ctx, predicate, filter.Pagination(q.Page, q.Limit))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConnection, fmt.Sprintf("Exception while reading data from filter : %s", err))
	}

	docs = make([]models.Document, 0, len(records))
	for _, r := range records {
		id, _ := r[models.FieldID].(string)
		docs = append(docs, models.Document{ID: id, Content: r})
	}
	return docs, nil
}

// Count returns the number of active documents matching q.
func (s *Service) Count(ctx context.Context, q models.Query) (n int64, err error) {
	ctx, finish := s.begin(ctx, "count")
	defer func() { finish(err) }()

	predicate, err := filter.Build(q)
	if err != nil {
		return 0, err
	}
	n, err = s.store.Count(ctx, predicate)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeConnection, fmt.Sprintf("Exception while reading count data from filter : %s", err))
	}
	return n, nil
}

// Ping checks the backend.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// timestamp is the transition time, UTC at store precision.
func (s *Service) timestamp(ctx context.Context) time.Time {
	return s.now(ctx).UTC().Truncate(time.Millisecond)
}

// prepare derives the native date fields from content.context and stamps
// integrationDate.
func (s *Service) prepare(ctx context.Context, content models.Content) (models.Content, error) {
	record := content.Clone()
	delete(record, models.FieldID)
	for _, field := range models.DerivedDateFields {
		raw, ok := content.ContextValue(field)
		if !ok {
			return nil, dErrors.New(dErrors.CodeContext, "Invalid "+field)
		}
		t, err := filter.ParseTimestamp(raw)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeContext, "Invalid "+field)
		}
		record[field] = t.Truncate(time.Millisecond)
	}
	record[models.FieldIntegrationDate] = s.timestamp(ctx)
	return record, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.IncrementEventsDropped()
		s.logger.WarnContext(ctx, "failed to publish lifecycle event",
			"event_type", event.Type,
			"document_id", event.DocumentID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// begin opens a span and returns the matching finisher.
func (s *Service) begin(ctx context.Context, op string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "document."+op)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if code, ok := dErrors.RootCode(err); ok {
				span.SetAttributes(attribute.String("error.code", string(code)))
			}
			s.logger.DebugContext(ctx, "document operation failed",
				"operation", op,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		span.End()
		s.metrics.Observe(op, start, err)
	}
}

func validID(id string) bool {
	_, err := bson.ObjectIDFromHex(id)
	return err == nil
}

func asObject(v any) (models.Content, bool) {
	switch t := v.(type) {
	case models.Content:
		return t, t != nil
	case map[string]any:
		return models.Content(t), t != nil
	default:
		return nil, false
	}
}
