package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/storage"
)

// SweepRunStore implements storage.SweepRunStore using PostgreSQL.
type SweepRunStore struct {
	pool *Pool
}

// NewSweepRunStore creates a new SweepRunStore.
func NewSweepRunStore(pool *Pool) *SweepRunStore {
	return &SweepRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SweepRunStore = (*SweepRunStore)(nil)

// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
func (s *SweepRunStore) Insert(ctx context.Context, r *domain.SweepRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO sweep_runs (
			run_id, config_hash, created_at, bars, params_total, top_k, gate_action
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.ConfigHash, r.CreatedAt, r.Bars, r.ParamsTotal, r.TopK, r.GateAction,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert sweep run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SweepRunStore) GetByID(ctx context.Context, runID string) (*domain.SweepRun, error) {
	query := `
		SELECT run_id, config_hash, created_at, bars, params_total, top_k, gate_action
		FROM sweep_runs
		WHERE run_id = $1
	`

	r, err := scanSweepRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get sweep run by id: %w", err)
	}
	return r, nil
}

// GetByConfigHash retrieves all runs for a configuration, ordered by created_at ASC.
func (s *SweepRunStore) GetByConfigHash(ctx context.Context, configHash string) ([]*domain.SweepRun, error) {
	query := `
		SELECT run_id, config_hash, created_at, bars, params_total, top_k, gate_action
		FROM sweep_runs
		WHERE config_hash = $1
		ORDER BY created_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, configHash)
	if err != nil {
		return nil, fmt.Errorf("get sweep runs by config hash: %w", err)
	}
	defer rows.Close()

	return scanSweepRuns(rows)
}

// GetRecent retrieves the most recent runs, newest first.
func (s *SweepRunStore) GetRecent(ctx context.Context, limit int) ([]*domain.SweepRun, error) {
	query := `
		SELECT run_id, config_hash, created_at, bars, params_total, top_k, gate_action
		FROM sweep_runs
		ORDER BY created_at DESC, run_id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent sweep runs: %w", err)
	}
	defer rows.Close()

	return scanSweepRuns(rows)
}

func scanSweepRun(row pgx.Row) (*domain.SweepRun, error) {
	var r domain.SweepRun
	err := row.Scan(
		&r.RunID, &r.ConfigHash, &r.CreatedAt,
		&r.Bars, &r.ParamsTotal, &r.TopK, &r.GateAction,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanSweepRuns(rows pgx.Rows) ([]*domain.SweepRun, error) {
	var runs []*domain.SweepRun

	for rows.Next() {
		var r domain.SweepRun
		err := rows.Scan(
			&r.RunID, &r.ConfigHash, &r.CreatedAt,
			&r.Bars, &r.ParamsTotal, &r.TopK, &r.GateAction,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sweep run row: %w", err)
		}
		runs = append(runs, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep run rows: %w", err)
	}
	return runs, nil
}
