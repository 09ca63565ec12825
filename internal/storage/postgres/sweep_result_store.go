package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/storage"
)

// SweepResultStore implements storage.SweepResultStore using PostgreSQL.
// Only the summary fields of each result are persisted; fills and equity
// curves never reach the database.
type SweepResultStore struct {
	pool *Pool
}

// NewSweepResultStore creates a new SweepResultStore.
func NewSweepResultStore(pool *Pool) *SweepResultStore {
	return &SweepResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SweepResultStore = (*SweepResultStore)(nil)

// InsertBulk adds all results of one run in a single transaction. Fails the
// entire batch on any duplicate (run_id, param_id).
func (s *SweepResultStore) InsertBulk(ctx context.Context, runID string, results []domain.Stage2Result) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO sweep_results (
			run_id, param_id, net_profit, trades, max_drawdown
		) VALUES ($1, $2, $3, $4, $5)
	`

	for _, r := range results {
		_, err := tx.Exec(ctx, query, runID, r.ParamID, r.NetProfit, r.Trades, r.MaxDrawdown)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert sweep result: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sweep results: %w", err)
	}
	return nil
}

// GetByRunID retrieves all results for a run, ordered by param_id ASC.
func (s *SweepResultStore) GetByRunID(ctx context.Context, runID string) ([]domain.Stage2Result, error) {
	query := `
		SELECT param_id, net_profit, trades, max_drawdown
		FROM sweep_results
		WHERE run_id = $1
		ORDER BY param_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get sweep results by run id: %w", err)
	}
	defer rows.Close()

	return scanSweepResults(rows)
}

// GetTopByProfit retrieves the best results for a run, ordered by
// net_profit DESC, param_id ASC.
func (s *SweepResultStore) GetTopByProfit(ctx context.Context, runID string, limit int) ([]domain.Stage2Result, error) {
	query := `
		SELECT param_id, net_profit, trades, max_drawdown
		FROM sweep_results
		WHERE run_id = $1
		ORDER BY net_profit DESC, param_id ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("get top sweep results: %w", err)
	}
	defer rows.Close()

	return scanSweepResults(rows)
}

func scanSweepResults(rows pgx.Rows) ([]domain.Stage2Result, error) {
	var results []domain.Stage2Result

	for rows.Next() {
		var r domain.Stage2Result
		if err := rows.Scan(&r.ParamID, &r.NetProfit, &r.Trades, &r.MaxDrawdown); err != nil {
			return nil, fmt.Errorf("scan sweep result row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep result rows: %w", err)
	}
	return results, nil
}
