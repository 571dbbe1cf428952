package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventtrail/internal/event/projection"
	"eventtrail/internal/event/service"
	"eventtrail/internal/event/store"
	"eventtrail/pkg/requestcontext"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type stubProfiles struct {
	zones map[uuid.UUID]string
}

func (s *stubProfiles) ExistAll(_ context.Context, ids []uuid.UUID) (bool, error) {
	for _, id := range ids {
		if _, ok := s.zones[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *stubProfiles) Timezone(_ context.Context, id uuid.UUID) (string, error) {
	return s.zones[id], nil
}

func newEventRouter(t *testing.T) (chi.Router, uuid.UUID) {
	t.Helper()

	profileID := uuid.New()
	profiles := &stubProfiles{zones: map[uuid.UUID]string{profileID: "Asia/Kolkata"}}
	svc := service.New(store.NewInMemoryStore(), profiles)
	h := New(svc, slog.New(slog.DiscardHandler))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(requestcontext.WithTime(req.Context(), testNow)))
		})
	})
	h.Register(r)
	return r, profileID
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func doJSON(t *testing.T, router chi.Router, method, path string, payload any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return rec, env
}

func createEvent(t *testing.T, router chi.Router, profileID uuid.UUID) projection.DisplayEvent {
	t.Helper()
	rec, env := doJSON(t, router, http.MethodPost, "/events", map[string]any{
		"title":           "Launch Review",
		"profiles":        []uuid.UUID{profileID},
		"timezone":        "America/New_York",
		"start_date_time": "2024-01-10T10:00:00",
		"end_date_time":   "2024-01-10T12:00:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var view projection.DisplayEvent
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

func TestCreateEventEndpoint(t *testing.T) {
	router, profileID := newEventRouter(t)

	view := createEvent(t, router, profileID)
	assert.NotEqual(t, uuid.Nil, view.ID)
	assert.Equal(t, "America/New_York", view.DisplayZone)
	assert.Equal(t, "2024-01-10T10:00:00-05:00", view.StartDateTime)
	assert.Equal(t, int64(1), view.Version)
}

func TestCreateEventRejectsMalformedBody(t *testing.T) {
	router, _ := newEventRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEventValidationFailureIs422(t *testing.T) {
	router, profileID := newEventRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/events", map[string]any{
		"title":           "",
		"profiles":        []uuid.UUID{profileID},
		"timezone":        "UTC",
		"start_date_time": "2024-01-10T10:00:00",
		"end_date_time":   "2024-01-10T12:00:00",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, env.Success)
}

func TestGetEventHonorsTimezoneQuery(t *testing.T) {
	router, profileID := newEventRouter(t)
	created := createEvent(t, router, profileID)

	rec, env := doJSON(t, router, http.MethodGet,
		"/events/"+created.ID.String()+"?timezone=Asia/Kolkata", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view projection.DisplayEvent
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "Asia/Kolkata", view.DisplayZone)
	assert.Equal(t, "2024-01-10T20:30:00+05:30", view.StartDateTime)
}

func TestGetEventDefaultsToUTC(t *testing.T) {
	router, profileID := newEventRouter(t)
	created := createEvent(t, router, profileID)

	rec, env := doJSON(t, router, http.MethodGet, "/events/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view projection.DisplayEvent
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "2024-01-10T15:00:00Z", view.StartDateTime)
}

func TestGetUnknownEventIs404(t *testing.T) {
	router, _ := newEventRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/events/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec2, _ := doJSON(t, router, http.MethodGet, "/events/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestUpdateEventRecordsLogs(t *testing.T) {
	router, profileID := newEventRouter(t)
	created := createEvent(t, router, profileID)

	rec, env := doJSON(t, router, http.MethodPut, "/events/"+created.ID.String(), map[string]any{
		"title": "Launch Review v2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var view projection.DisplayEvent
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "Launch Review v2", view.Title)
	assert.Equal(t, int64(2), view.Version)
	require.Len(t, view.UpdateLogs, 1)
	assert.Equal(t, "Launch Review", view.UpdateLogs[0].Previous)
	assert.Equal(t, requestcontext.ActorSystem, view.UpdateLogs[0].Actor)
}

func TestEventLogsEndpointConvertsTimestamps(t *testing.T) {
	router, profileID := newEventRouter(t)
	created := createEvent(t, router, profileID)

	rec, _ := doJSON(t, router, http.MethodPut, "/events/"+created.ID.String(), map[string]any{
		"title": "Renamed",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doJSON(t, router, http.MethodGet,
		"/events/"+created.ID.String()+"/logs?timezone=Asia/Kolkata", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var logs []projection.DisplayEntry
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "2024-01-01T17:30:00+05:30", logs[0].OccurredAt)
}

func TestListForProfileUsesProfileZoneByDefault(t *testing.T) {
	router, profileID := newEventRouter(t)
	createEvent(t, router, profileID)

	rec, env := doJSON(t, router, http.MethodGet, "/events/profile/"+profileID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var views []projection.DisplayEvent
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Asia/Kolkata", views[0].DisplayZone)
}

func TestDeleteEventEndpoint(t *testing.T) {
	router, profileID := newEventRouter(t)
	created := createEvent(t, router, profileID)

	rec, _ := doJSON(t, router, http.MethodDelete, "/events/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, router, http.MethodGet, "/events/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
