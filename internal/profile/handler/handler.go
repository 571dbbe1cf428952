package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"eventtrail/internal/profile/models"
	"eventtrail/internal/transport/http/shared"
	dErrors "eventtrail/pkg/domain-errors"
)

// Service defines the profile operations the HTTP layer needs.
type Service interface {
	Create(ctx context.Context, name, zone string) (*models.Profile, error)
	Get(ctx context.Context, profileID uuid.UUID) (*models.Profile, error)
	List(ctx context.Context) ([]*models.Profile, error)
	UpdateTimezone(ctx context.Context, profileID uuid.UUID, zone string) (*models.Profile, error)
}

// Handler wires profile endpoints to the profile service.
type Handler struct {
	logger   *slog.Logger
	profiles Service
}

func New(profiles Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, profiles: profiles}
}

// Register mounts the profile routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/profiles", h.handleCreate)
	r.Get("/profiles", h.handleList)
	r.Put("/profiles/timezone", h.handleUpdateTimezone)
	r.Get("/profiles/{profileID}", h.handleGet)
}

type createProfileRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, err := h.profiles.Create(r.Context(), req.Name, req.Timezone)
	if err != nil {
		h.logAndWrite(w, r, "create profile", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, "Profile created successfully", profile)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		h.logAndWrite(w, r, "list profiles", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "Profiles fetched successfully", profiles)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	profileID, err := uuid.Parse(chi.URLParam(r, "profileID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid profile id"))
		return
	}

	profile, err := h.profiles.Get(r.Context(), profileID)
	if err != nil {
		h.logAndWrite(w, r, "fetch profile", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "Profile fetched successfully", profile)
}

type updateTimezoneRequest struct {
	ProfileID uuid.UUID `json:"profile_id"`
	Timezone  string    `json:"timezone"`
}

func (h *Handler) handleUpdateTimezone(w http.ResponseWriter, r *http.Request) {
	var req updateTimezoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.ProfileID == uuid.Nil || req.Timezone == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "profile_id and timezone are required"))
		return
	}

	profile, err := h.profiles.UpdateTimezone(r.Context(), req.ProfileID, req.Timezone)
	if err != nil {
		h.logAndWrite(w, r, "update profile timezone", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, "Profile timezone updated successfully", profile)
}

func (h *Handler) logAndWrite(w http.ResponseWriter, r *http.Request, op string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(r.Context(), "profile operation failed",
			"op", op,
			"error", err.Error(),
		)
	}
	shared.WriteError(w, err)
}
