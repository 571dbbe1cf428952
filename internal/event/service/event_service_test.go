package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventtrail/internal/event/models"
	"eventtrail/internal/event/store"
	"eventtrail/internal/event/stream"
	dErrors "eventtrail/pkg/domain-errors"
	"eventtrail/pkg/platform/sentinel"
	"eventtrail/pkg/requestcontext"
	"eventtrail/pkg/testutil"
)

type fakeProfiles struct {
	zones map[uuid.UUID]string
}

func (f *fakeProfiles) ExistAll(_ context.Context, ids []uuid.UUID) (bool, error) {
	for _, id := range ids {
		if _, ok := f.zones[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeProfiles) Timezone(_ context.Context, id uuid.UUID) (string, error) {
	zone, ok := f.zones[id]
	if !ok {
		return "", dErrors.New(dErrors.CodeNotFound, "profile not found")
	}
	return zone, nil
}

type fixture struct {
	svc      *Service
	store    *store.InMemoryStore
	profiles *fakeProfiles
	alice    uuid.UUID
	bob      uuid.UUID
	now      time.Time
	ctx      context.Context
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store: store.NewInMemoryStore(),
		alice: uuid.New(),
		bob:   uuid.New(),
		now:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	f.profiles = &fakeProfiles{zones: map[uuid.UUID]string{
		f.alice: "America/New_York",
		f.bob:   "Asia/Kolkata",
	}}
	f.svc = New(f.store, f.profiles, opts...)
	f.ctx = requestcontext.WithTime(context.Background(), f.now)
	return f
}

func (f *fixture) createEvent(t *testing.T) uuid.UUID {
	t.Helper()
	view, err := f.svc.Create(f.ctx, CreateInput{
		Title:         "Launch Review",
		Profiles:      []uuid.UUID{f.alice, f.bob},
		Timezone:      "America/New_York",
		StartDateTime: "2024-01-10T10:00:00",
		EndDateTime:   "2024-01-10T12:00:00",
	})
	require.NoError(t, err)
	return view.ID
}

func TestCreateProjectsIntoEventZone(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.Create(f.ctx, CreateInput{
		Title:         "Launch Review",
		Profiles:      []uuid.UUID{f.alice},
		Timezone:      "America/New_York",
		StartDateTime: "2024-01-10T10:00:00",
		EndDateTime:   "2024-01-10T12:00:00",
	})
	require.NoError(t, err)

	assert.Equal(t, "Launch Review", view.Title)
	assert.Equal(t, "America/New_York", view.DisplayZone)
	assert.Equal(t, "2024-01-10T10:00:00-05:00", view.StartDateTime)
	assert.Equal(t, "2024-01-10T12:00:00-05:00", view.EndDateTime)
	assert.Equal(t, int64(1), view.Version)
	assert.Empty(t, view.UpdateLogs)
}

func TestCreateRejectsUnknownProfiles(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, CreateInput{
		Title:         "Ghost meeting",
		Profiles:      []uuid.UUID{uuid.New()},
		Timezone:      "UTC",
		StartDateTime: "2024-01-10T10:00:00",
		EndDateTime:   "2024-01-10T11:00:00",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCreateRejectsBadZoneAndTimestamp(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, CreateInput{
		Title:         "Bad zone",
		Profiles:      []uuid.UUID{f.alice},
		Timezone:      "Mars/Olympus",
		StartDateTime: "2024-01-10T10:00:00",
		EndDateTime:   "2024-01-10T11:00:00",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidZone))

	_, err = f.svc.Create(f.ctx, CreateInput{
		Title:         "Bad time",
		Profiles:      []uuid.UUID{f.alice},
		Timezone:      "UTC",
		StartDateTime: "next tuesday",
		EndDateTime:   "2024-01-10T11:00:00",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTimestamp))
}

func TestUpdateRecordsStampedEntries(t *testing.T) {
	f := newFixture(t)
	eventID := f.createEvent(t)

	later := f.now.Add(time.Hour)
	ctx := requestcontext.WithActor(requestcontext.WithTime(context.Background(), later), "alice")

	title := "Launch Review v2"
	view, err := f.svc.Update(ctx, eventID, UpdateInput{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, int64(2), view.Version)
	require.Len(t, view.UpdateLogs, 1)
	entry := view.UpdateLogs[0]
	assert.Equal(t, models.FieldTitle, entry.Field)
	assert.Equal(t, "Launch Review", entry.Previous)
	assert.Equal(t, "Launch Review v2", entry.New)
	assert.Equal(t, "alice", entry.Actor)
	assert.Equal(t, "2024-01-01T08:00:00-05:00", entry.OccurredAt)
}

func TestUpdateWithoutActorDefaultsToSystem(t *testing.T) {
	f := newFixture(t)
	eventID := f.createEvent(t)

	title := "Renamed"
	view, err := f.svc.Update(f.ctx, eventID, UpdateInput{Title: &title})
	require.NoError(t, err)
	require.Len(t, view.UpdateLogs, 1)
	assert.Equal(t, requestcontext.ActorSystem, view.UpdateLogs[0].Actor)
}

func TestUpdateThatChangesNothingWritesNothing(t *testing.T) {
	f := newFixture(t)
	eventID := f.createEvent(t)

	title := "Launch Review"
	view, err := f.svc.Update(f.ctx, eventID, UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Version)
	assert.Empty(t, view.UpdateLogs)
}

func TestUpdateTimezoneReinterpretsWallClock(t *testing.T) {
	f := newFixture(t)
	eventID := f.createEvent(t)

	zone := "Asia/Kolkata"
	start := "2024-01-10T21:00:00"
	view, err := f.svc.Update(f.ctx, eventID, UpdateInput{
		Timezone:      &zone,
		StartDateTime: &start,
	})
	require.NoError(t, err)

	assert.Equal(t, "Asia/Kolkata", view.Timezone)
	assert.Equal(t, "2024-01-10T21:00:00+05:30", view.StartDateTime)

	fields := map[models.Field]bool{}
	for _, entry := range view.UpdateLogs {
		fields[entry.Field] = true
	}
	assert.True(t, fields[models.FieldTimezone])
	assert.True(t, fields[models.FieldStart])
}

func TestUpdateRejectsInvalidResult(t *testing.T) {
	f := newFixture(t)
	eventID := f.createEvent(t)

	end := "2024-01-10T09:00:00"
	_, err := f.svc.Update(f.ctx, eventID, UpdateInput{EndDateTime: &end})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	got, err := f.svc.Get(f.ctx, eventID, "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10T12:00:00-05:00", got.EndDateTime)
	assert.Empty(t, got.UpdateLogs)
}

type conflictingStore struct {
	*store.InMemoryStore
}

func (s *conflictingStore) Save(context.Context, *models.Event, int64, []models.ChangeEntry) error {
	return sentinel.ErrVersionConflict
}

func TestUpdateMapsVersionConflict(t *testing.T) {
	f := newFixture(t)
	eventID := f.createEvent(t)

	base, err := f.store.FindByID(f.ctx, eventID)
	require.NoError(t, err)

	svc := New(&conflictingStore{f.store}, f.profiles)
	title := "Contested"
	_, err = svc.Update(f.ctx, base.ID, UpdateInput{Title: &title})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestGetUnknownEventIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(f.ctx, uuid.New(), "UTC")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestListForProfileDefaultsToProfileZone(t *testing.T) {
	f := newFixture(t)
	f.createEvent(t)

	views, err := f.svc.ListForProfile(f.ctx, f.bob, "")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Asia/Kolkata", views[0].DisplayZone)
	assert.Equal(t, "2024-01-10T20:30:00+05:30", views[0].StartDateTime)

	views, err = f.svc.ListForProfile(f.ctx, f.bob, "UTC")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "2024-01-10T15:00:00Z", views[0].StartDateTime)
}

func TestListForProfileUnknownProfile(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListForProfile(f.ctx, uuid.New(), "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestLogsRenderInRequestedZone(t *testing.T) {
	f := newFixture(t)
	eventID := f.createEvent(t)

	for _, title := range []string{"First rename", "Second rename"} {
		title := title
		_, err := f.svc.Update(f.ctx, eventID, UpdateInput{Title: &title})
		require.NoError(t, err)
	}

	logs, err := f.svc.Logs(f.ctx, eventID, "Asia/Kolkata")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "First rename", logs[0].New)
	assert.Equal(t, "Second rename", logs[1].New)
	assert.Equal(t, "2024-01-01T17:30:00+05:30", logs[0].OccurredAt)
	assert.Equal(t, "First rename", logs[1].Previous)
}

func TestDeleteRemovesEventAndTrail(t *testing.T) {
	f := newFixture(t)
	eventID := f.createEvent(t)

	require.NoError(t, f.svc.Delete(f.ctx, eventID))

	_, err := f.svc.Get(f.ctx, eventID, "UTC")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	err = f.svc.Delete(f.ctx, eventID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestAuditTrailGrowsAcrossSequentialUpdates(t *testing.T) {
	f := newFixture(t)
	eventID := f.createEvent(t)

	testutil.Given(t, "an event renamed twice by different actors", func(t *testing.T) {
		for i, actor := range []string{"alice", "bob"} {
			ctx := requestcontext.WithActor(
				requestcontext.WithTime(context.Background(), f.now.Add(time.Duration(i+1)*time.Hour)),
				actor,
			)
			title := "Rename " + actor
			_, err := f.svc.Update(ctx, eventID, UpdateInput{Title: &title})
			require.NoError(t, err)
		}
	})

	testutil.Then(t, "the trail holds both changes in order with their actors", func(t *testing.T) {
		logs, err := f.svc.Logs(f.ctx, eventID, "UTC")
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "alice", logs[0].Actor)
		assert.Equal(t, "bob", logs[1].Actor)
		assert.Equal(t, "Rename alice", logs[1].Previous)

		got, err := f.svc.Get(f.ctx, eventID, "UTC")
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Version)
	})
}

func TestUpdatePublishesToChangeStream(t *testing.T) {
	outbox := make(chan []stream.ChangeMessage, 1)
	f := newFixture(t, WithChangeStream(outbox))
	eventID := f.createEvent(t)

	title := "Streamed rename"
	_, err := f.svc.Update(f.ctx, eventID, UpdateInput{Title: &title})
	require.NoError(t, err)

	select {
	case msgs := <-outbox:
		require.Len(t, msgs, 1)
		assert.Equal(t, eventID, msgs[0].EventID)
		assert.Equal(t, models.FieldTitle, msgs[0].Field)
		assert.Equal(t, int64(2), msgs[0].Version)
	default:
		t.Fatal("expected a change message batch in the outbox")
	}
}
