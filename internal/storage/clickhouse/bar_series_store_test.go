package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/storage"
)

func testBar(symbol string, ts int64, px float64) *domain.PriceBar {
	return &domain.PriceBar{
		Symbol:      symbol,
		TimestampMs: ts,
		Open:        px,
		High:        px + 1,
		Low:         px - 1,
		Close:       px,
		Volume:      100,
	}
}

func TestBarSeriesStore_InsertBulkAndGetBySymbol(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBarSeriesStore(conn)

	bars := []*domain.PriceBar{
		testBar("BTCUSD", 3000, 102),
		testBar("BTCUSD", 1000, 100),
		testBar("BTCUSD", 2000, 101),
		testBar("ETHUSD", 1000, 50),
	}
	require.NoError(t, store.InsertBulk(ctx, bars))

	got, err := store.GetBySymbol(ctx, "BTCUSD")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, int64(3000), got[2].TimestampMs)
	assert.Equal(t, 100.0, got[0].Open)
	assert.Equal(t, int64(100), got[0].Volume)
}

func TestBarSeriesStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBarSeriesStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.PriceBar{
		testBar("BTCUSD", 1000, 100),
		testBar("BTCUSD", 2000, 101),
		testBar("BTCUSD", 3000, 102),
	}))

	got, err := store.GetByTimeRange(ctx, "BTCUSD", 1000, 2000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, int64(2000), got[1].TimestampMs)
}

func TestBarSeriesStore_DuplicateDetected(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBarSeriesStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.PriceBar{testBar("BTCUSD", 1000, 100)}))

	// Against existing rows.
	err := store.InsertBulk(ctx, []*domain.PriceBar{testBar("BTCUSD", 1000, 100)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Intra-batch.
	err = store.InsertBulk(ctx, []*domain.PriceBar{
		testBar("BTCUSD", 2000, 101),
		testBar("BTCUSD", 2000, 101),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestBarSeriesStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBarSeriesStore(conn)

	err := store.InsertBulk(ctx, []*domain.PriceBar{testBar("", 1000, 100)})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
