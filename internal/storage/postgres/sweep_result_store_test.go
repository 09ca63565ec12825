package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/storage"
)

func insertParentRun(t *testing.T, ctx context.Context, pool *Pool, runID string) {
	t.Helper()
	require.NoError(t, NewSweepRunStore(pool).Insert(ctx, createTestSweepRun(runID, "hash-a", 1000)))
}

func TestSweepResultStore_InsertBulkAndGetByRunID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertParentRun(t, ctx, pool, "run-001")
	store := NewSweepResultStore(pool)

	results := []domain.Stage2Result{
		{ParamID: 7, NetProfit: 12.5, Trades: 4, MaxDrawdown: -3},
		{ParamID: 2, NetProfit: -1.25, Trades: 9, MaxDrawdown: -8},
	}
	require.NoError(t, store.InsertBulk(ctx, "run-001", results))

	got, err := store.GetByRunID(ctx, "run-001")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].ParamID)
	assert.Equal(t, 7, got[1].ParamID)
	assert.Equal(t, 12.5, got[1].NetProfit)
	assert.Equal(t, 4, got[1].Trades)
}

func TestSweepResultStore_DuplicateFailsBatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertParentRun(t, ctx, pool, "run-001")
	store := NewSweepResultStore(pool)

	require.NoError(t, store.InsertBulk(ctx, "run-001", []domain.Stage2Result{{ParamID: 1, NetProfit: 1}}))

	// The duplicate aborts the transaction; param 2 must not land.
	err := store.InsertBulk(ctx, "run-001", []domain.Stage2Result{
		{ParamID: 2, NetProfit: 2},
		{ParamID: 1, NetProfit: 3},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRunID(ctx, "run-001")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ParamID)
}

func TestSweepResultStore_GetTopByProfit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertParentRun(t, ctx, pool, "run-001")
	store := NewSweepResultStore(pool)

	results := []domain.Stage2Result{
		{ParamID: 1, NetProfit: 5},
		{ParamID: 2, NetProfit: 9},
		{ParamID: 3, NetProfit: 5},
		{ParamID: 4, NetProfit: -2},
	}
	require.NoError(t, store.InsertBulk(ctx, "run-001", results))

	top, err := store.GetTopByProfit(ctx, "run-001", 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, 2, top[0].ParamID)
	assert.Equal(t, 1, top[1].ParamID)
	assert.Equal(t, 3, top[2].ParamID)
}

func TestSweepResultStore_EmptyBatchIsNoop(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSweepResultStore(pool)

	require.NoError(t, store.InsertBulk(ctx, "run-001", nil))

	err := store.InsertBulk(ctx, "", []domain.Stage2Result{{ParamID: 1}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
