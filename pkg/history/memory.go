package history

import (
	"context"
	"sync"
)

// MemoryStore keeps the most recent runs in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	runs  []Run
	limit int
}

// NewMemoryStore keeps at most limit runs; limit <= 0 means unbounded.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) Save(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	if s.limit > 0 && len(s.runs) > s.limit {
		drop := len(s.runs) - s.limit
		s.runs = append(s.runs[:0:0], s.runs[drop:]...)
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.runs) - 1; i >= 0; i-- {
		if s.runs[i].ID == id {
			return s.runs[i], nil
		}
	}
	return Run{}, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]Run, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		runs = append(runs, s.runs[i])
	}
	return clampList(runs, limit), nil
}

func (s *MemoryStore) Close() error { return nil }
