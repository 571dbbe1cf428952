package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"eventtrail/internal/event/models"
	"eventtrail/internal/event/projection"
	"eventtrail/internal/event/stream"
	dErrors "eventtrail/pkg/domain-errors"
	"eventtrail/pkg/platform/dedupe"
	"eventtrail/pkg/platform/sentinel"
	"eventtrail/pkg/requestcontext"
	"eventtrail/pkg/timezone"
)

var tracer = otel.Tracer("eventtrail/internal/event/service")

// CreateInput carries a new event as submitted by a client. Temporal fields
// are wall-clock strings interpreted in Timezone.
type CreateInput struct {
	Title         string
	Profiles      []uuid.UUID
	Timezone      string
	StartDateTime string
	EndDateTime   string
}

// UpdateInput carries a partial update. Nil pointers leave the field alone.
// When Timezone changes in the same request, StartDateTime and EndDateTime
// are interpreted in the new zone.
type UpdateInput struct {
	Title         *string
	Profiles      []uuid.UUID
	Timezone      *string
	StartDateTime *string
	EndDateTime   *string
}

// Create validates and stores a new event and returns it projected in its
// own timezone.
func (s *Service) Create(ctx context.Context, in CreateInput) (*projection.DisplayEvent, error) {
	ctx, span := tracer.Start(ctx, "event.Create")
	defer span.End()

	zone := strings.TrimSpace(in.Timezone)
	if zone == "" {
		zone = "UTC"
	}
	if err := s.requireProfiles(ctx, in.Profiles); err != nil {
		return nil, err
	}
	start, err := timezone.ToStorage(in.StartDateTime, zone)
	if err != nil {
		return nil, err
	}
	end, err := timezone.ToStorage(in.EndDateTime, zone)
	if err != nil {
		return nil, err
	}

	e, err := models.NewEvent(uuid.New(), in.Title, in.Profiles, zone, start, end, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("event.id", e.ID.String()))

	if err := s.events.Create(ctx, e); err != nil {
		span.RecordError(err)
		return nil, wrapEventErr(err)
	}
	s.incrementCreated()
	s.logger.Info("event created",
		"event_id", e.ID,
		"title", e.Title,
		"timezone", e.Timezone,
	)
	return projection.Project(e, e.Timezone)
}

// Get returns the event projected into the requested display zone, serving
// from the projection cache when possible.
func (s *Service) Get(ctx context.Context, eventID uuid.UUID, zone string) (*projection.DisplayEvent, error) {
	ctx, span := tracer.Start(ctx, "event.Get",
		trace.WithAttributes(attribute.String("event.id", eventID.String())))
	defer span.End()

	if zone == "" {
		zone = "UTC"
	}
	if _, err := timezone.Resolve(zone); err != nil {
		return nil, err
	}

	if view, err := s.cache.Get(ctx, eventID, zone); err != nil {
		s.logger.Warn("projection cache read failed", "error", err, "event_id", eventID)
	} else if view != nil {
		s.recordCacheLookup(true)
		return view, nil
	}
	s.recordCacheLookup(false)

	e, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		return nil, wrapEventErr(err)
	}
	view, err := projection.Project(e, zone)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, view); err != nil {
		s.logger.Warn("projection cache write failed", "error", err, "event_id", eventID)
	}
	return view, nil
}

// List returns all events projected into the requested display zone, soonest
// start first.
func (s *Service) List(ctx context.Context, zone string) ([]*projection.DisplayEvent, error) {
	ctx, span := tracer.Start(ctx, "event.List")
	defer span.End()

	if zone == "" {
		zone = "UTC"
	}
	events, err := s.events.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, wrapEventErr(err)
	}
	return projectAll(events, zone)
}

// ListForProfile returns the profile's events. With no explicit zone the
// profile's own preferred timezone is used, so each member sees the shared
// event in their local time.
func (s *Service) ListForProfile(ctx context.Context, profileID uuid.UUID, zone string) ([]*projection.DisplayEvent, error) {
	ctx, span := tracer.Start(ctx, "event.ListForProfile",
		trace.WithAttributes(attribute.String("profile.id", profileID.String())))
	defer span.End()

	preferred, err := s.profiles.Timezone(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if zone == "" {
		zone = preferred
	}
	events, err := s.events.ListByProfile(ctx, profileID)
	if err != nil {
		span.RecordError(err)
		return nil, wrapEventErr(err)
	}
	return projectAll(events, zone)
}

// Update applies a partial update. The stored state is snapshotted first,
// the mutated event is validated, and the field-level diff is persisted
// together with the new field values. An update that changes nothing writes
// nothing.
func (s *Service) Update(ctx context.Context, eventID uuid.UUID, in UpdateInput) (*projection.DisplayEvent, error) {
	ctx, span := tracer.Start(ctx, "event.Update",
		trace.WithAttributes(attribute.String("event.id", eventID.String())))
	defer span.End()

	e, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		return nil, wrapEventErr(err)
	}
	snap := models.TakeSnapshot(e)
	baseVersion := e.Version

	if err := s.applyUpdate(ctx, e, in); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	entries, err := snap.Diff(e)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return projection.Project(e, e.Timezone)
	}

	now := requestcontext.Now(ctx)
	actor := requestcontext.Actor(ctx)
	for i := range entries {
		entries[i].OccurredAt = now
		entries[i].Actor = actor
	}
	e.UpdatedAt = now

	if err := s.events.Save(ctx, e, baseVersion, entries); err != nil {
		span.RecordError(err)
		if errors.Is(err, sentinel.ErrVersionConflict) {
			s.incrementConflicts()
			return nil, dErrors.New(dErrors.CodeConflict, "event was modified concurrently")
		}
		return nil, wrapEventErr(err)
	}
	s.incrementUpdated(len(entries))
	s.invalidate(ctx, eventID)
	s.publish(eventID, e.Version, entries)

	s.logger.Info("event updated",
		"event_id", e.ID,
		"version", e.Version,
		"changed_fields", len(entries),
		"actor", actor,
	)
	return projection.Project(e, e.Timezone)
}

// Delete removes the event and its entire audit trail.
func (s *Service) Delete(ctx context.Context, eventID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "event.Delete",
		trace.WithAttributes(attribute.String("event.id", eventID.String())))
	defer span.End()

	if err := s.events.Delete(ctx, eventID); err != nil {
		span.RecordError(err)
		return wrapEventErr(err)
	}
	s.incrementDeleted()
	s.invalidate(ctx, eventID)
	s.logger.Info("event deleted", "event_id", eventID)
	return nil
}

// Logs returns the event's audit trail in append order, timestamps rendered
// in the requested display zone.
func (s *Service) Logs(ctx context.Context, eventID uuid.UUID, zone string) ([]projection.DisplayEntry, error) {
	ctx, span := tracer.Start(ctx, "event.Logs",
		trace.WithAttributes(attribute.String("event.id", eventID.String())))
	defer span.End()

	if zone == "" {
		zone = "UTC"
	}
	e, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		return nil, wrapEventErr(err)
	}
	return projection.ProjectEntries(e.ChangeLog.Entries(), zone)
}

func (s *Service) applyUpdate(ctx context.Context, e *models.Event, in UpdateInput) error {
	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Profiles != nil {
		if err := s.requireProfiles(ctx, in.Profiles); err != nil {
			return err
		}
		e.Profiles = dedupe.Values(append([]uuid.UUID(nil), in.Profiles...))
	}
	if in.Timezone != nil {
		zone := strings.TrimSpace(*in.Timezone)
		if _, err := timezone.Resolve(zone); err != nil {
			return err
		}
		e.Timezone = zone
	}
	if in.StartDateTime != nil {
		start, err := timezone.ToStorage(*in.StartDateTime, e.Timezone)
		if err != nil {
			return err
		}
		e.StartDateTime = start
	}
	if in.EndDateTime != nil {
		end, err := timezone.ToStorage(*in.EndDateTime, e.Timezone)
		if err != nil {
			return err
		}
		e.EndDateTime = end
	}
	return nil
}

func (s *Service) requireProfiles(ctx context.Context, profileIDs []uuid.UUID) error {
	if len(profileIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "event requires at least one profile")
	}
	ok, err := s.profiles.ExistAll(ctx, profileIDs)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeValidation, "one or more profiles do not exist")
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, eventID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		s.logger.Warn("projection cache invalidation failed", "error", err, "event_id", eventID)
	}
}

// publish hands change messages to the stream worker without blocking the
// request. A full outbox drops the batch; the database remains the source
// of truth.
func (s *Service) publish(eventID uuid.UUID, version int64, entries []models.ChangeEntry) {
	if s.outbox == nil {
		return
	}
	msgs := stream.Messages(eventID, version, entries)
	select {
	case s.outbox <- msgs:
	default:
		s.logger.Warn("change stream outbox full, dropping batch",
			"event_id", eventID,
			"count", len(msgs),
		)
	}
}

func projectAll(events []*models.Event, zone string) ([]*projection.DisplayEvent, error) {
	views := make([]*projection.DisplayEvent, 0, len(events))
	for _, e := range events {
		view, err := projection.Project(e, zone)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func wrapEventErr(err error) error {
	var dErr *dErrors.DomainError
	if errors.As(err, &dErr) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "event already exists")
	case errors.Is(err, sentinel.ErrVersionConflict):
		return dErrors.New(dErrors.CodeConflict, "event was modified concurrently")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "event store failure")
}
