package projection

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventtrail/internal/event/models"
	dErrors "eventtrail/pkg/domain-errors"
)

func storedEvent(t *testing.T) *models.Event {
	t.Helper()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	e, err := models.NewEvent(
		uuid.New(),
		"Standup",
		[]uuid.UUID{uuid.New()},
		"UTC",
		time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 16, 0, 0, 0, time.UTC),
		now,
	)
	require.NoError(t, err)
	e.ChangeLog.Append(models.ChangeEntry{
		Field:      models.FieldTitle,
		Previous:   "Standup",
		New:        "Standup Sync",
		OccurredAt: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC),
		Actor:      "system",
	})
	return e
}

func TestProjectConvertsAllTemporalFields(t *testing.T) {
	e := storedEvent(t)

	view, err := Project(e, "America/New_York")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-10T10:00:00-05:00", view.StartDateTime)
	assert.Equal(t, "2024-01-10T11:00:00-05:00", view.EndDateTime)
	assert.Equal(t, "2024-01-01T04:00:00-05:00", view.CreatedAt)
	require.Len(t, view.UpdateLogs, 1)
	assert.Equal(t, "2024-01-05T07:00:00-05:00", view.UpdateLogs[0].OccurredAt)
	assert.Equal(t, "system", view.UpdateLogs[0].Actor)
}

func TestProjectIsIdempotentAndSideEffectFree(t *testing.T) {
	e := storedEvent(t)
	storedStart := e.StartDateTime

	first, err := Project(e, "Asia/Kolkata")
	require.NoError(t, err)
	_, err = Project(e, "Australia/Sydney")
	require.NoError(t, err)
	second, err := Project(e, "Asia/Kolkata")
	require.NoError(t, err)

	assert.Equal(t, first, second, "same zone must yield identical output")
	assert.True(t, storedStart.Equal(e.StartDateTime), "projection must not mutate the record")
	assert.Equal(t, time.UTC, e.StartDateTime.Location())
}

func TestProjectRejectsUnknownZone(t *testing.T) {
	_, err := Project(storedEvent(t), "Nowhere/Here")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidZone))
}

func TestProjectEntriesPreservesAppendOrder(t *testing.T) {
	base := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	entries := []models.ChangeEntry{
		{Field: models.FieldTitle, OccurredAt: base},
		{Field: models.FieldEnd, OccurredAt: base.Add(time.Minute)},
		{Field: models.FieldTimezone, OccurredAt: base.Add(2 * time.Minute)},
	}

	views, err := ProjectEntries(entries, "UTC")
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, models.FieldTitle, views[0].Field)
	assert.Equal(t, models.FieldEnd, views[1].Field)
	assert.Equal(t, models.FieldTimezone, views[2].Field)
}
