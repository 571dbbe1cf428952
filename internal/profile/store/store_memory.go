package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventtrail/internal/profile/models"
	"eventtrail/pkg/platform/sentinel"
)

// InMemoryStore keeps profiles in a map for unit tests and standalone runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]models.Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[uuid.UUID]models.Profile)}
}

func (s *InMemoryStore) Create(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ID] = *profile
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, profileID uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &profile, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Profile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		p := profile
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) ExistAll(_ context.Context, profileIDs []uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, profileID := range profileIDs {
		if _, ok := s.profiles[profileID]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *InMemoryStore) UpdateTimezone(_ context.Context, profileID uuid.UUID, zone string, now time.Time) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	profile.Timezone = zone
	profile.UpdatedAt = now
	s.profiles[profileID] = profile
	return &profile, nil
}
