package memory

import (
	"context"
	"sort"
	"sync"

	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/storage"
)

// BarSeriesStore is an in-memory implementation of storage.BarSeriesStore.
type BarSeriesStore struct {
	mu   sync.RWMutex
	data map[barKey]*domain.PriceBar
}

type barKey struct {
	symbol      string
	timestampMs int64
}

// NewBarSeriesStore creates a new in-memory bar series store.
func NewBarSeriesStore() *BarSeriesStore {
	return &BarSeriesStore{
		data: make(map[barKey]*domain.PriceBar),
	}
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate
// (symbol, timestamp_ms).
func (s *BarSeriesStore) InsertBulk(_ context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[barKey]struct{}, len(bars))
	for _, b := range bars {
		if b == nil {
			return storage.ErrInvalidInput
		}
		if err := b.Validate(); err != nil {
			return storage.ErrInvalidInput
		}

		k := barKey{b.Symbol, b.TimestampMs}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, b := range bars {
		copy := *b
		s.data[barKey{b.Symbol, b.TimestampMs}] = &copy
	}
	return nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
func (s *BarSeriesStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceBar
	for _, b := range s.data {
		if b.Symbol == symbol {
			copy := *b
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *BarSeriesStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceBar
	for _, b := range s.data {
		if b.Symbol == symbol && b.TimestampMs >= start && b.TimestampMs <= end {
			copy := *b
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

var _ storage.BarSeriesStore = (*BarSeriesStore)(nil)
