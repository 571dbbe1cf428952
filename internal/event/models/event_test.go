package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "eventtrail/pkg/domain-errors"
)

func TestNewEventValidation(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	profiles := []uuid.UUID{uuid.New()}
	start := now.Add(time.Hour)
	end := now.Add(2 * time.Hour)

	cases := []struct {
		name     string
		title    string
		profiles []uuid.UUID
		zone     string
		start    time.Time
		end      time.Time
		wantCode dErrors.Code
	}{
		{"empty title", "  ", profiles, "UTC", start, end, dErrors.CodeValidation},
		{"no profiles", "Standup", nil, "UTC", start, end, dErrors.CodeValidation},
		{"bad zone", "Standup", profiles, "Moon/Crater", start, end, dErrors.CodeInvalidZone},
		{"end before start", "Standup", profiles, "UTC", end, start, dErrors.CodeValidation},
		{"end equals start", "Standup", profiles, "UTC", start, start, dErrors.CodeValidation},
		{"start in past", "Standup", profiles, "UTC", now.Add(-time.Hour), end, dErrors.CodeValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEvent(uuid.New(), tc.title, tc.profiles, tc.zone, tc.start, tc.end, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tc.wantCode), "got %v", err)
		})
	}
}

func TestNewEventNormalizes(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	e, err := NewEvent(uuid.New(), "  Standup  ", []uuid.UUID{uuid.New()}, "",
		now.Add(time.Hour).In(loc), now.Add(2*time.Hour).In(loc), now)
	require.NoError(t, err)

	assert.Equal(t, "Standup", e.Title)
	assert.Equal(t, "UTC", e.Timezone)
	assert.Equal(t, time.UTC, e.StartDateTime.Location())
	assert.Equal(t, time.UTC, e.EndDateTime.Location())
	assert.Equal(t, int64(1), e.Version)
	assert.Zero(t, e.ChangeLog.Len())
}

func TestChangeLogAppendOnlyOrder(t *testing.T) {
	var log ChangeLog
	log.Append(ChangeEntry{Field: FieldTitle})
	log.Append(ChangeEntry{Field: FieldTimezone}, ChangeEntry{Field: FieldEnd})

	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, FieldTitle, entries[0].Field)
	assert.Equal(t, FieldTimezone, entries[1].Field)
	assert.Equal(t, FieldEnd, entries[2].Field)

	// Mutating the returned copy must not reach the log.
	entries[0].Field = FieldStart
	assert.Equal(t, FieldTitle, log.Entries()[0].Field)
}

func TestNewChangeLogCopiesInput(t *testing.T) {
	seed := []ChangeEntry{{Field: FieldTitle}}
	log := NewChangeLog(seed)
	seed[0].Field = FieldEnd
	assert.Equal(t, FieldTitle, log.Entries()[0].Field)
}
