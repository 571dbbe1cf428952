package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "eventtrail/pkg/domain-errors"
	"eventtrail/pkg/platform/dedupe"
	"eventtrail/pkg/timezone"
)

// Event is the mutable record being tracked.
//
// Invariants:
//   - Title is non-empty
//   - At least one profile is referenced
//   - Timezone resolves against the IANA database
//   - EndDateTime is strictly after StartDateTime
//   - Every tracked-field mutation that survives to a save produces exactly
//     one ChangeLog entry; saves go through the lifecycle service, which is
//     the only writer of the log
//
// StartDateTime and EndDateTime are stored in the reference zone (UTC); the
// Timezone field is the event's own declared zone, itself a tracked field,
// used as a display default. Version backs the optimistic concurrency check
// at the persistence boundary.
type Event struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Profiles      []uuid.UUID `json:"profiles"`
	Timezone      string      `json:"timezone"`
	StartDateTime time.Time   `json:"start_date_time"`
	EndDateTime   time.Time   `json:"end_date_time"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Version       int64       `json:"version"`
	ChangeLog     ChangeLog   `json:"-"`
}

// NewEvent validates and constructs an event with an empty change log.
// Creation additionally requires the start to not be in the past.
func NewEvent(eventID uuid.UUID, title string, profiles []uuid.UUID, zone string, start, end, now time.Time) (*Event, error) {
	e := &Event{
		ID:            eventID,
		Title:         strings.TrimSpace(title),
		Profiles:      dedupe.Values(append([]uuid.UUID(nil), profiles...)),
		Timezone:      zone,
		StartDateTime: start.In(timezone.Reference),
		EndDateTime:   end.In(timezone.Reference),
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}
	if e.Timezone == "" {
		e.Timezone = "UTC"
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if e.StartDateTime.Before(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "start date/time cannot be in the past")
	}
	return e, nil
}

// Validate checks the invariants that must hold on every save.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if len(e.Profiles) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one profile is required")
	}
	if _, err := timezone.Resolve(e.Timezone); err != nil {
		return err
	}
	if !e.EndDateTime.After(e.StartDateTime) {
		return dErrors.New(dErrors.CodeValidation, "end date/time must be after start date/time")
	}
	return nil
}

// Fields returns the canonical tracked-field view used for diffing.
func (e *Event) Fields() FieldMap {
	return FieldMap{
		FieldTitle:    e.Title,
		FieldProfiles: profileStrings(e.Profiles),
		FieldTimezone: e.Timezone,
		FieldStart:    e.StartDateTime,
		FieldEnd:      e.EndDateTime,
	}
}

func profileStrings(profiles []uuid.UUID) []string {
	out := make([]string, len(profiles))
	for i, profileID := range profiles {
		out[i] = profileID.String()
	}
	return out
}
