package engine

import "quant-sweep-lab/internal/domain"

// fillPrice resolves the execution price of a conditional order against one
// bar, gap-aware: when the bar opens through the trigger, the fill happens at
// the open, not at the trigger price.
//
//	stop-buy:   open if open >= price, else price if high >= price
//	stop-sell:  open if open <= price, else price if low  <= price
//	limit-buy:  open if open <= price, else price if low  <= price
//	limit-sell: open if open >= price, else price if high >= price
//
// Returns ok=false when no condition is satisfied; the order stays active for
// its remaining TTL.
func fillPrice(kind domain.Kind, side domain.Side, price, open, high, low float64) (float64, bool) {
	switch {
	case kind == domain.KindStop && side == domain.SideBuy:
		if open >= price {
			return open, true
		}
		if high >= price {
			return price, true
		}

	case kind == domain.KindStop && side == domain.SideSell:
		if open <= price {
			return open, true
		}
		if low <= price {
			return price, true
		}

	case kind == domain.KindLimit && side == domain.SideBuy:
		if open <= price {
			return open, true
		}
		if low <= price {
			return price, true
		}

	case kind == domain.KindLimit && side == domain.SideSell:
		if open >= price {
			return open, true
		}
		if high >= price {
			return price, true
		}
	}

	return 0, false
}
