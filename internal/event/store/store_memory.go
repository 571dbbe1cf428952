package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"eventtrail/internal/event/models"
	"eventtrail/pkg/platform/sentinel"
)

// InMemoryStore keeps events in a map for unit tests and standalone runs.
// It enforces the same version-check semantics as the PostgreSQL store so
// concurrency tests exercise real behavior.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*models.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[uuid.UUID]*models.Event)}
}

func cloneEvent(e *models.Event) *models.Event {
	clone := *e
	clone.Profiles = append([]uuid.UUID(nil), e.Profiles...)
	clone.ChangeLog = models.NewChangeLog(e.ChangeLog.Entries())
	return &clone
}

func (s *InMemoryStore) Create(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[e.ID]; exists {
		return sentinel.ErrConflict
	}
	s.events[e.ID] = cloneEvent(e)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, eventID uuid.UUID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, cloneEvent(e))
	}
	sortByStart(out)
	return out, nil
}

func (s *InMemoryStore) ListByProfile(_ context.Context, profileID uuid.UUID) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Event
	for _, e := range s.events {
		for _, ref := range e.Profiles {
			if ref == profileID {
				out = append(out, cloneEvent(e))
				break
			}
		}
	}
	sortByStart(out)
	return out, nil
}

// Save persists mutated fields together with the freshly diffed change
// entries as one atomic unit. A stale expectedVersion loses the race and
// nothing is written.
func (s *InMemoryStore) Save(_ context.Context, e *models.Event, expectedVersion int64, entries []models.ChangeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.events[e.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return sentinel.ErrVersionConflict
	}

	next := cloneEvent(e)
	next.Version = expectedVersion + 1
	next.ChangeLog = models.NewChangeLog(stored.ChangeLog.Entries())
	next.ChangeLog.Append(entries...)
	s.events[e.ID] = next

	e.Version = next.Version
	e.ChangeLog = models.NewChangeLog(next.ChangeLog.Entries())
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, eventID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.events, eventID)
	return nil
}

func sortByStart(events []*models.Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartDateTime.Before(events[j].StartDateTime)
	})
}
