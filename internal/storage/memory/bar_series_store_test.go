package memory

import (
	"context"
	"errors"
	"testing"

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

func TestBarSeriesStore_InsertBulkAndGet(t *testing.T) {
	store := NewBarSeriesStore()
	ctx := context.Background()

	bars := []*domain.PriceBar{
		testBar("BTCUSD", 3000, 102),
		testBar("BTCUSD", 1000, 100),
		testBar("BTCUSD", 2000, 101),
		testBar("ETHUSD", 1000, 50),
	}
	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetBySymbol(ctx, "BTCUSD")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d bars, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].TimestampMs >= got[i].TimestampMs {
			t.Errorf("bars out of order: %d before %d", got[i-1].TimestampMs, got[i].TimestampMs)
		}
	}
}

func TestBarSeriesStore_GetByTimeRange(t *testing.T) {
	store := NewBarSeriesStore()
	ctx := context.Background()

	bars := []*domain.PriceBar{
		testBar("BTCUSD", 1000, 100),
		testBar("BTCUSD", 2000, 101),
		testBar("BTCUSD", 3000, 102),
	}
	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	// Range bounds are inclusive.
	got, err := store.GetByTimeRange(ctx, "BTCUSD", 1000, 2000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 2 || got[0].TimestampMs != 1000 || got[1].TimestampMs != 2000 {
		t.Errorf("got %+v", got)
	}
}

func TestBarSeriesStore_DuplicateKey(t *testing.T) {
	store := NewBarSeriesStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.PriceBar{testBar("BTCUSD", 1000, 100)}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.PriceBar{
		testBar("BTCUSD", 2000, 101),
		testBar("BTCUSD", 1000, 100),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Atomic: the non-duplicate row from the failed batch did not land.
	got, _ := store.GetBySymbol(ctx, "BTCUSD")
	if len(got) != 1 {
		t.Errorf("failed batch leaked rows: %d bars", len(got))
	}
}

func TestBarSeriesStore_InvalidInput(t *testing.T) {
	store := NewBarSeriesStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.PriceBar{nil}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil bar: got %v", err)
	}

	bad := testBar("", 1000, 100)
	if err := store.InsertBulk(ctx, []*domain.PriceBar{bad}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty symbol: got %v", err)
	}
}
