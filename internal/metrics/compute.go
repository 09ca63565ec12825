// Package metrics derives performance figures from fill sequences.
// Everything here is order-dependent on the fill sequence the engine
// produced, which is already deterministic; no re-sorting happens.
package metrics

import "quant-sweep-lab/internal/domain"

// Costs are the per-fill frictions applied when realizing a trade.
// Slippage moves every execution adversely (buys pay more, sells receive
// less); Commission is charged once per fill.
type Costs struct {
	Commission float64
	Slippage   float64
}

// Performance is the confirmation-stage summary of one simulation run.
type Performance struct {
	// NetProfit is the final cumulative P&L across completed round trips.
	NetProfit float64

	// Trades counts completed round trips (entry fill closed by an exit
	// fill). An entry still open at the end of data is not counted.
	Trades int

	// MaxDrawdown is min(equity - runningPeak(equity)), non-positive.
	MaxDrawdown float64

	// Equity is the cumulative P&L after each completed round trip.
	Equity []float64
}

// Compute pairs fills into round trips and accumulates the equity curve.
//
// Pairing walks the fill sequence once: an entry fill opens a position, the
// next exit fill closes it. Exit fills arriving while flat and entry fills
// arriving while already positioned are ignored; the engine does not track
// positions, so stray fills of either kind are the strategy's signal noise,
// not an error.
func Compute(fills []domain.Fill, costs Costs) Performance {
	var (
		equity   []float64
		cum      float64
		open     bool
		entryPx  float64
		entryQty int32
	)

	for _, f := range fills {
		switch f.Role {
		case domain.RoleEntry:
			if open {
				continue
			}
			open = true
			entryPx = buyPrice(f, costs)
			entryQty = f.Qty

		case domain.RoleExit:
			if !open {
				continue
			}
			open = false
			exitPx := sellPrice(f, costs)
			cum += (exitPx-entryPx)*float64(entryQty) - 2*costs.Commission
			equity = append(equity, cum)
		}
	}

	perf := Performance{
		NetProfit: cum,
		Trades:    len(equity),
		Equity:    equity,
	}
	perf.MaxDrawdown = maxDrawdown(equity)
	return perf
}

// buyPrice applies adverse slippage to a buy-side execution.
func buyPrice(f domain.Fill, costs Costs) float64 {
	if f.Side == domain.SideBuy {
		return f.Price + costs.Slippage
	}
	return f.Price - costs.Slippage
}

// sellPrice applies adverse slippage to a sell-side execution.
func sellPrice(f domain.Fill, costs Costs) float64 {
	if f.Side == domain.SideSell {
		return f.Price - costs.Slippage
	}
	return f.Price + costs.Slippage
}

// maxDrawdown returns min(equity - runningPeak), starting from a flat peak
// of zero. Zero when the curve never dips.
func maxDrawdown(equity []float64) float64 {
	peak := 0.0
	minDD := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if dd := e - peak; dd < minDD {
			minDD = dd
		}
	}
	return minDD
}
