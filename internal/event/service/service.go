// Package service is the event lifecycle manager. Every mutation follows the
// same shape: load, snapshot, mutate, validate, diff, persist fields and
// audit entries together. Reads come back as zone-projected views.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"eventtrail/internal/event/cache"
	"eventtrail/internal/event/models"
	"eventtrail/internal/event/stream"
	"eventtrail/internal/platform/metrics"
)

// Store abstracts event persistence. Save must apply the field changes and
// append the audit entries atomically, and reject stale versions.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	FindByID(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	List(ctx context.Context) ([]*models.Event, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*models.Event, error)
	Save(ctx context.Context, e *models.Event, expectedVersion int64, entries []models.ChangeEntry) error
	Delete(ctx context.Context, eventID uuid.UUID) error
}

// ProfileDirectory answers the two questions events ask about profiles:
// do these IDs all exist, and what zone does this profile prefer.
type ProfileDirectory interface {
	ExistAll(ctx context.Context, profileIDs []uuid.UUID) (bool, error)
	Timezone(ctx context.Context, profileID uuid.UUID) (string, error)
}

// Service orchestrates event lifecycle and audit trail management.
type Service struct {
	events   Store
	profiles ProfileDirectory
	cache    *cache.Cache
	outbox   chan<- []stream.ChangeMessage
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithChangeStream routes persisted change entries to the given outbox for
// asynchronous publishing.
func WithChangeStream(outbox chan<- []stream.ChangeMessage) Option {
	return func(s *Service) {
		s.outbox = outbox
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(events Store, profiles ProfileDirectory, opts ...Option) *Service {
	s := &Service{
		events:   events,
		profiles: profiles,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.EventsCreated.Inc()
	}
}

func (s *Service) incrementUpdated(entries int) {
	if s.metrics != nil {
		s.metrics.EventsUpdated.Inc()
		s.metrics.ChangeEntriesAppended.Add(float64(entries))
	}
}

func (s *Service) incrementDeleted() {
	if s.metrics != nil {
		s.metrics.EventsDeleted.Inc()
	}
}

func (s *Service) incrementConflicts() {
	if s.metrics != nil {
		s.metrics.SaveConflicts.Inc()
	}
}

func (s *Service) recordCacheLookup(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.ProjectionCacheHits.Inc()
	} else {
		s.metrics.ProjectionCacheMisses.Inc()
	}
}
