package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"eventtrail/internal/profile/models"
	dErrors "eventtrail/pkg/domain-errors"
	"eventtrail/pkg/platform/sentinel"
	"eventtrail/pkg/requestcontext"
	"eventtrail/pkg/timezone"
)

// Store abstracts profile persistence. Implementations live under
// internal/profile/store.
type Store interface {
	Create(ctx context.Context, profile *models.Profile) error
	FindByID(ctx context.Context, profileID uuid.UUID) (*models.Profile, error)
	List(ctx context.Context) ([]*models.Profile, error)
	UpdateTimezone(ctx context.Context, profileID uuid.UUID, zone string, now time.Time) (*models.Profile, error)
	ExistAll(ctx context.Context, profileIDs []uuid.UUID) (bool, error)
}

// Service orchestrates profile lifecycle operations.
type Service struct {
	profiles Store
}

func New(profiles Store) *Service {
	return &Service{profiles: profiles}
}

// Create registers a new profile with a validated timezone.
func (s *Service) Create(ctx context.Context, name, zone string) (*models.Profile, error) {
	profile, err := models.NewProfile(uuid.New(), name, zone, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
	}
	return profile, nil
}

// Get returns a profile by ID.
func (s *Service) Get(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return nil, wrapProfileErr(err)
	}
	return profile, nil
}

// List returns all profiles, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Profile, error) {
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list profiles")
	}
	return profiles, nil
}

// UpdateTimezone changes a profile's preferred display zone.
func (s *Service) UpdateTimezone(ctx context.Context, profileID uuid.UUID, zone string) (*models.Profile, error) {
	if _, err := timezone.Resolve(zone); err != nil {
		return nil, err
	}
	profile, err := s.profiles.UpdateTimezone(ctx, profileID, zone, requestcontext.Now(ctx))
	if err != nil {
		return nil, wrapProfileErr(err)
	}
	return profile, nil
}

// ExistAll reports whether every given ID names a stored profile.
func (s *Service) ExistAll(ctx context.Context, profileIDs []uuid.UUID) (bool, error) {
	ok, err := s.profiles.ExistAll(ctx, profileIDs)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check profiles")
	}
	return ok, nil
}

// Timezone returns the profile's preferred display zone.
func (s *Service) Timezone(ctx context.Context, profileID uuid.UUID) (string, error) {
	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return "", wrapProfileErr(err)
	}
	return profile.Timezone, nil
}

func wrapProfileErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "profile not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "profile store failure")
}
