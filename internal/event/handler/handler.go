package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"eventtrail/internal/event/projection"
	"eventtrail/internal/event/service"
	"eventtrail/internal/transport/http/shared"
	dErrors "eventtrail/pkg/domain-errors"
)

// Service defines the event operations the HTTP layer needs.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*projection.DisplayEvent, error)
	Get(ctx context.Context, eventID uuid.UUID, zone string) (*projection.DisplayEvent, error)
	List(ctx context.Context, zone string) ([]*projection.DisplayEvent, error)
	ListForProfile(ctx context.Context, profileID uuid.UUID, zone string) ([]*projection.DisplayEvent, error)
	Update(ctx context.Context, eventID uuid.UUID, in service.UpdateInput) (*projection.DisplayEvent, error)
	Delete(ctx context.Context, eventID uuid.UUID) error
	Logs(ctx context.Context, eventID uuid.UUID, zone string) ([]projection.DisplayEntry, error)
}

// Handler wires event endpoints to the event service.
type Handler struct {
	logger *slog.Logger
	events Service
}

func New(events Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, events: events}
}

// Register mounts the event routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/events", h.handleCreate)
	r.Get("/events", h.handleList)
	r.Get("/events/profile/{profileID}", h.handleListForProfile)
	r.Get("/events/{eventID}", h.handleGet)
	r.Put("/events/{eventID}", h.handleUpdate)
	r.Delete("/events/{eventID}", h.handleDelete)
	r.Get("/events/{eventID}/logs", h.handleLogs)
}

type createEventRequest struct {
	Title         string      `json:"title"`
	Profiles      []uuid.UUID `json:"profiles"`
	Timezone      string      `json:"timezone"`
	StartDateTime string      `json:"start_date_time"`
	EndDateTime   string      `json:"end_date_time"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	view, err := h.events.Create(r.Context(), service.CreateInput{
		Title:         req.Title,
		Profiles:      req.Profiles,
		Timezone:      req.Timezone,
		StartDateTime: req.StartDateTime,
		EndDateTime:   req.EndDateTime,
	})
	if err != nil {
		h.logAndWrite(w, r, "create event", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, "Event created successfully", view)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.events.List(r.Context(), displayZone(r))
	if err != nil {
		h.logAndWrite(w, r, "list events", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "Events fetched successfully", views)
}

func (h *Handler) handleListForProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := uuid.Parse(chi.URLParam(r, "profileID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid profile id"))
		return
	}

	views, err := h.events.ListForProfile(r.Context(), profileID, r.URL.Query().Get("timezone"))
	if err != nil {
		h.logAndWrite(w, r, "list profile events", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "Events fetched successfully", views)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	view, err := h.events.Get(r.Context(), eventID, displayZone(r))
	if err != nil {
		h.logAndWrite(w, r, "fetch event", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "Event fetched successfully", view)
}

type updateEventRequest struct {
	Title         *string     `json:"title"`
	Profiles      []uuid.UUID `json:"profiles"`
	Timezone      *string     `json:"timezone"`
	StartDateTime *string     `json:"start_date_time"`
	EndDateTime   *string     `json:"end_date_time"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	view, err := h.events.Update(r.Context(), eventID, service.UpdateInput{
		Title:         req.Title,
		Profiles:      req.Profiles,
		Timezone:      req.Timezone,
		StartDateTime: req.StartDateTime,
		EndDateTime:   req.EndDateTime,
	})
	if err != nil {
		h.logAndWrite(w, r, "update event", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "Event updated successfully", view)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.events.Delete(r.Context(), eventID); err != nil {
		h.logAndWrite(w, r, "delete event", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "Event deleted successfully", nil)
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	logs, err := h.events.Logs(r.Context(), eventID, displayZone(r))
	if err != nil {
		h.logAndWrite(w, r, "fetch event logs", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "Event logs fetched successfully", logs)
}

func eventIDParam(r *http.Request) (uuid.UUID, error) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid event id")
	}
	return eventID, nil
}

// displayZone reads the requested display zone, defaulting to UTC. Zone
// validity is the service's concern.
func displayZone(r *http.Request) string {
	zone := r.URL.Query().Get("timezone")
	if zone == "" {
		return "UTC"
	}
	return zone
}

func (h *Handler) logAndWrite(w http.ResponseWriter, r *http.Request, op string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(r.Context(), "event operation failed",
			"op", op,
			"error", err.Error(),
		)
	}
	shared.WriteError(w, err)
}
