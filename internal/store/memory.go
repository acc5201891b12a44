package store

import (
	"context"
	"sync"

	"github.com/mal49/period-tracker/internal/models"
)

// MemoryStore keeps schedules in a map. Used in tests and for local
// development without Postgres; entries do not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]models.ScheduleEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]models.ScheduleEntry)}
}

func (s *MemoryStore) Upsert(ctx context.Context, entry models.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, models.ScheduleID(endpoint))
	return nil
}

func (s *MemoryStore) RemoveByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) DueBefore(ctx context.Context, ts int64) ([]models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.ScheduleEntry
	for _, e := range s.entries {
		if e.NotifyAt <= ts {
			due = append(due, e)
		}
	}
	return due, nil
}

func (s *MemoryStore) GetByEndpoint(ctx context.Context, endpoint string) (models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[models.ScheduleID(endpoint)]
	if !ok {
		return models.ScheduleEntry{}, ErrNotFound
	}
	return e, nil
}
