// Package strategy turns price series into order-intent batches. Generators
// are injected into the confirmation stage explicitly; there is no global
// registry, so the simulation core stays free of hidden state.
package strategy

import (
	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/idgen"
)

// IntentGenerator produces the full intent batch for one parameter set.
// Implementations are pure functions of the bar series: two calls with the
// same inputs must return identical batches, ids included.
type IntentGenerator interface {
	// Intents returns the batch for the whole series. The caller owns the
	// result; the generator keeps no reference to it.
	Intents(bars domain.Series, paramIdx int64) []domain.OrderIntent

	// Name returns the strategy identifier.
	Name() string
}

// MACross is a breakout strategy on a fast/slow moving-average cross.
//
// On a cross-up at bar t it arms a one-shot entry buy-stop at high[t] and a
// good-till-cancelled bracket around that trigger: a sell-stop StopPct below
// (loss protection) and a sell-limit TargetPct above (profit taking). All
// three intents carry ids packed from their (bar, param) coordinates, so an
// independently vectorized generator would emit the same batch.
type MACross struct {
	Fast      int
	Slow      int
	StopPct   float64
	TargetPct float64
}

// Name implements IntentGenerator.
func (m MACross) Name() string { return "ma_cross" }

// Intents implements IntentGenerator.
func (m MACross) Intents(bars domain.Series, paramIdx int64) []domain.OrderIntent {
	closes := bars.Close
	n := len(closes)
	if m.Fast < 1 || m.Fast >= m.Slow || m.Slow > n {
		return nil
	}

	fast := rollingMean(closes, m.Fast)
	slow := rollingMean(closes, m.Slow)

	var intents []domain.OrderIntent
	for t := m.Slow; t < n; t++ {
		crossUp := fast[t] > slow[t] && fast[t-1] <= slow[t-1]
		if !crossUp {
			continue
		}

		bar := int64(t)
		trigger := bars.High[t]

		intents = append(intents,
			domain.OrderIntent{
				OrderID:    idgen.OrderID(bar, paramIdx, domain.RoleEntry, domain.KindStop, domain.SideBuy),
				CreatedBar: bar,
				Role:       domain.RoleEntry,
				Kind:       domain.KindStop,
				Side:       domain.SideBuy,
				Price:      trigger,
				Qty:        1,
				TTL:        1,
			},
			domain.OrderIntent{
				OrderID:    idgen.OrderID(bar, paramIdx, domain.RoleExit, domain.KindStop, domain.SideSell),
				CreatedBar: bar,
				Role:       domain.RoleExit,
				Kind:       domain.KindStop,
				Side:       domain.SideSell,
				Price:      trigger * (1 - m.StopPct),
				Qty:        1,
				TTL:        0,
			},
			domain.OrderIntent{
				OrderID:    idgen.OrderID(bar, paramIdx, domain.RoleExit, domain.KindLimit, domain.SideSell),
				CreatedBar: bar,
				Role:       domain.RoleExit,
				Kind:       domain.KindLimit,
				Side:       domain.SideSell,
				Price:      trigger * (1 + m.TargetPct),
				Qty:        1,
				TTL:        0,
			},
		)
	}

	return intents
}

// rollingMean returns the simple moving average; out[t] is defined for
// t >= window-1 and zero before that.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}
