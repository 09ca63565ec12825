package memory

import (
	"context"
	"sort"
	"sync"

	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/storage"
)

// SweepRunStore is an in-memory implementation of storage.SweepRunStore.
type SweepRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SweepRun // keyed by run_id
}

// NewSweepRunStore creates a new in-memory sweep run store.
func NewSweepRunStore() *SweepRunStore {
	return &SweepRunStore{
		data: make(map[string]*domain.SweepRun),
	}
}

// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
func (s *SweepRunStore) Insert(_ context.Context, r *domain.SweepRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.RunID] = &copy
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SweepRunStore) GetByID(_ context.Context, runID string) (*domain.SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetByConfigHash retrieves all runs for a configuration, ordered by created_at ASC.
func (s *SweepRunStore) GetByConfigHash(_ context.Context, configHash string) ([]*domain.SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SweepRun
	for _, r := range s.data {
		if r.ConfigHash == configHash {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

// GetRecent retrieves the most recent runs, newest first.
func (s *SweepRunStore) GetRecent(_ context.Context, limit int) ([]*domain.SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SweepRun, 0, len(s.data))
	for _, r := range s.data {
		copy := *r
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].RunID > result[j].RunID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.SweepRunStore = (*SweepRunStore)(nil)
