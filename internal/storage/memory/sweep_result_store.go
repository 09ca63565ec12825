package memory

import (
	"context"
	"sort"
	"sync"

	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/storage"
)

// SweepResultStore is an in-memory implementation of storage.SweepResultStore.
//
// Fills and equity curves are not persisted; only the summary fields of each
// result survive storage, matching the relational backends.
type SweepResultStore struct {
	mu   sync.RWMutex
	data map[resultKey]domain.Stage2Result
}

type resultKey struct {
	runID   string
	paramID int
}

// NewSweepResultStore creates a new in-memory sweep result store.
func NewSweepResultStore() *SweepResultStore {
	return &SweepResultStore{
		data: make(map[resultKey]domain.Stage2Result),
	}
}

// InsertBulk adds all results of one run atomically. Fails entire batch on
// any duplicate (run_id, param_id).
func (s *SweepResultStore) InsertBulk(_ context.Context, runID string, results []domain.Stage2Result) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(results) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check duplicates, existing and intra-batch.
	batchKeys := make(map[resultKey]struct{}, len(results))
	for _, r := range results {
		k := resultKey{runID, r.ParamID}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all.
	for _, r := range results {
		s.data[resultKey{runID, r.ParamID}] = summaryOnly(r)
	}
	return nil
}

// GetByRunID retrieves all results for a run, ordered by param_id ASC.
func (s *SweepResultStore) GetByRunID(_ context.Context, runID string) ([]domain.Stage2Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Stage2Result
	for k, r := range s.data {
		if k.runID == runID {
			result = append(result, r)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ParamID < result[j].ParamID
	})
	return result, nil
}

// GetTopByProfit retrieves the best results for a run, ordered by
// net_profit DESC, param_id ASC.
func (s *SweepResultStore) GetTopByProfit(ctx context.Context, runID string, limit int) ([]domain.Stage2Result, error) {
	result, err := s.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].NetProfit != result[j].NetProfit {
			return result[i].NetProfit > result[j].NetProfit
		}
		return result[i].ParamID < result[j].ParamID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func summaryOnly(r domain.Stage2Result) domain.Stage2Result {
	return domain.Stage2Result{
		ParamID:     r.ParamID,
		NetProfit:   r.NetProfit,
		Trades:      r.Trades,
		MaxDrawdown: r.MaxDrawdown,
	}
}

var _ storage.SweepResultStore = (*SweepResultStore)(nil)
