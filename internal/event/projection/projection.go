// Package projection renders stored events for display. Every temporal
// attribute, including each change entry's timestamp, is converted through
// the timezone codec into one caller-requested zone. Projection never touches
// stored state; it builds a fresh view each time.
package projection

import (
	"github.com/google/uuid"

	"eventtrail/internal/event/models"
	"eventtrail/pkg/timezone"
)

// DisplayEntry is a change-log entry with its timestamp rendered in the
// requested display zone.
type DisplayEntry struct {
	Field      models.Field `json:"field"`
	Previous   any          `json:"previous_value"`
	New        any          `json:"new_value"`
	OccurredAt string       `json:"occurred_at"`
	Actor      string       `json:"actor"`
}

// DisplayEvent is the read model returned to clients. Temporal fields are
// zone-local strings; everything else passes through unchanged.
type DisplayEvent struct {
	ID            uuid.UUID      `json:"id"`
	Title         string         `json:"title"`
	Profiles      []uuid.UUID    `json:"profiles"`
	Timezone      string         `json:"timezone"`
	DisplayZone   string         `json:"display_zone"`
	StartDateTime string         `json:"start_date_time"`
	EndDateTime   string         `json:"end_date_time"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
	Version       int64          `json:"version"`
	UpdateLogs    []DisplayEntry `json:"update_logs"`
}

// Project builds the display view of an event and its full change log in the
// given zone.
func Project(e *models.Event, zone string) (*DisplayEvent, error) {
	start, err := timezone.ToDisplay(e.StartDateTime, zone)
	if err != nil {
		return nil, err
	}
	end, err := timezone.ToDisplay(e.EndDateTime, zone)
	if err != nil {
		return nil, err
	}
	createdAt, err := timezone.ToDisplay(e.CreatedAt, zone)
	if err != nil {
		return nil, err
	}
	updatedAt, err := timezone.ToDisplay(e.UpdatedAt, zone)
	if err != nil {
		return nil, err
	}
	logs, err := ProjectEntries(e.ChangeLog.Entries(), zone)
	if err != nil {
		return nil, err
	}

	return &DisplayEvent{
		ID:            e.ID,
		Title:         e.Title,
		Profiles:      append([]uuid.UUID(nil), e.Profiles...),
		Timezone:      e.Timezone,
		DisplayZone:   zone,
		StartDateTime: start,
		EndDateTime:   end,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
		Version:       e.Version,
		UpdateLogs:    logs,
	}, nil
}

// ProjectEntries renders change entries in append order with their timestamps
// converted into the given zone.
func ProjectEntries(entries []models.ChangeEntry, zone string) ([]DisplayEntry, error) {
	out := make([]DisplayEntry, 0, len(entries))
	for _, entry := range entries {
		occurredAt, err := timezone.ToDisplay(entry.OccurredAt, zone)
		if err != nil {
			return nil, err
		}
		out = append(out, DisplayEntry{
			Field:      entry.Field,
			Previous:   entry.Previous,
			New:        entry.New,
			OccurredAt: occurredAt,
			Actor:      entry.Actor,
		})
	}
	return out, nil
}
