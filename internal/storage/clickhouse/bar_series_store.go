package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/storage"
)

// BarSeriesStore implements storage.BarSeriesStore using ClickHouse.
type BarSeriesStore struct {
	conn *Conn
}

// NewBarSeriesStore creates a new BarSeriesStore.
func NewBarSeriesStore(conn *Conn) *BarSeriesStore {
	return &BarSeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarSeriesStore = (*BarSeriesStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate
// (symbol, timestamp_ms). MergeTree does not enforce uniqueness at insert
// time, so duplicates are checked explicitly before the batch is sent.
func (s *BarSeriesStore) InsertBulk(ctx context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol      string
		timestampMs int64
	}
	seen := make(map[key]struct{}, len(bars))
	for _, b := range bars {
		if b == nil {
			return storage.ErrInvalidInput
		}
		if err := b.Validate(); err != nil {
			return storage.ErrInvalidInput
		}
		k := key{b.Symbol, b.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, b := range bars {
		exists, err := s.exists(ctx, b.Symbol, b.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_bars (
			symbol, timestamp_ms, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, uint64(b.TimestampMs),
			b.Open, b.High, b.Low, b.Close, uint64(b.Volume),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
func (s *BarSeriesStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.PriceBar, error) {
	query := `
		SELECT symbol, timestamp_ms, open, high, low, close, volume
		FROM price_bars
		WHERE symbol = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query bars by symbol: %w", err)
	}
	defer rows.Close()

	return scanPriceBars(rows)
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *BarSeriesStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceBar, error) {
	query := `
		SELECT symbol, timestamp_ms, open, high, low, close, volume
		FROM price_bars
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query bars by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceBars(rows)
}

func (s *BarSeriesStore) exists(ctx context.Context, symbol string, timestampMs int64) (bool, error) {
	query := `
		SELECT count() FROM price_bars
		WHERE symbol = ? AND timestamp_ms = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, symbol, uint64(timestampMs)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanPriceBars(rows driver.Rows) ([]*domain.PriceBar, error) {
	var bars []*domain.PriceBar

	for rows.Next() {
		var (
			b           domain.PriceBar
			timestampMs uint64
			volume      uint64
		)
		err := rows.Scan(&b.Symbol, &timestampMs, &b.Open, &b.High, &b.Low, &b.Close, &volume)
		if err != nil {
			return nil, fmt.Errorf("scan price bar row: %w", err)
		}
		b.TimestampMs = int64(timestampMs)
		b.Volume = int64(volume)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price bar rows: %w", err)
	}
	return bars, nil
}
