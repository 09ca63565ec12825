// Package storage defines the persistence interfaces for sweep runs, their
// confirmed results, and price bar history. Backends live in subpackages:
// memory for tests and single-process runs, postgres for run records,
// clickhouse for bar timeseries.
package storage

import (
	"context"

	"quant-sweep-lab/internal/domain"
)

// SweepRunStore provides access to sweep_runs storage.
type SweepRunStore interface {
	// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.SweepRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.SweepRun, error)

	// GetByConfigHash retrieves all runs executed under one workload
	// configuration, ordered by created_at ASC.
	GetByConfigHash(ctx context.Context, configHash string) ([]*domain.SweepRun, error)

	// GetRecent retrieves the most recent runs, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.SweepRun, error)
}

// SweepResultStore provides access to sweep_results storage: the stage-2
// confirmation summaries of one run, keyed by (run_id, param_id).
type SweepResultStore interface {
	// InsertBulk adds all results of one run atomically. Fails the entire
	// batch on any duplicate (run_id, param_id).
	InsertBulk(ctx context.Context, runID string, results []domain.Stage2Result) error

	// GetByRunID retrieves all results for a run, ordered by param_id ASC.
	GetByRunID(ctx context.Context, runID string) ([]domain.Stage2Result, error)

	// GetTopByProfit retrieves the best results for a run, ordered by
	// net_profit DESC, param_id ASC.
	GetTopByProfit(ctx context.Context, runID string, limit int) ([]domain.Stage2Result, error)
}

// BarSeriesStore provides access to price_bars storage.
type BarSeriesStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate
	// (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, bars []*domain.PriceBar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.PriceBar, error)

	// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceBar, error)
}
