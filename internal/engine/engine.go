// Package engine implements the deterministic order-matching simulation over
// fixed OHLC arrays. Two implementations share one contract: Reference is the
// straightforward, authoritative one; Book amortizes repeated scans behind a
// sorted activation cursor and a resident order book. Both must produce
// bit-identical fill sequences for any input, in any input permutation.
package engine

import (
	"fmt"

	"quant-sweep-lab/internal/domain"
)

// Simulator runs one simulation over a bar series and an intent batch.
// Implementations are side-effect free; each invocation gets its own order
// book and runs to completion on a single goroutine.
type Simulator interface {
	// Simulate returns the ordered fill sequence for the intent batch.
	// Intents may arrive in any order; the output never depends on it.
	Simulate(bars domain.Series, intents []domain.OrderIntent) ([]domain.Fill, error)

	// Name returns the implementation identifier.
	Name() string
}

// Simulate runs the reference implementation. Shorthand for callers that do
// not care about the hot path.
func Simulate(bars domain.Series, intents []domain.OrderIntent) ([]domain.Fill, error) {
	return Reference{}.Simulate(bars, intents)
}

// validateInput fails fast before any simulation step runs. Errors name the
// offending intent or bar so upstream retry logic can keep or drop per item.
func validateInput(bars domain.Series, intents []domain.OrderIntent) error {
	if err := bars.Validate(); err != nil {
		return err
	}

	seen := make(map[int64]struct{}, len(intents))
	for i := range intents {
		if err := intents[i].Validate(); err != nil {
			return err
		}
		id := intents[i].OrderID
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate order id %d", domain.ErrInvalidIntent, id)
		}
		seen[id] = struct{}{}
	}

	return nil
}
