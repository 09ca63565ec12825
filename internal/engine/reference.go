package engine

import (
	"sort"

	"quant-sweep-lab/internal/domain"
)

// Reference is the authoritative matching implementation. It rescans the full
// intent set on every bar, which keeps the per-bar rules easy to audit; the
// Book implementation exists to make the same semantics cheap.
type Reference struct{}

// Name implements Simulator.
func (Reference) Name() string { return "reference" }

// Simulate implements Simulator.
//
// Per-bar evaluation:
//  1. Entries before exits; at most one fill per role per bar.
//  2. Entry candidates resolve in ascending OrderID order.
//  3. Among triggerable exits, a stop always beats a limit regardless of
//     arrival order; within a kind, lowest OrderID wins.
//  4. An order enters the book at created_bar+1 and never fills on its
//     created bar. TTL exhaustion drops it silently.
func (Reference) Simulate(bars domain.Series, intents []domain.OrderIntent) ([]domain.Fill, error) {
	if err := validateInput(bars, intents); err != nil {
		return nil, err
	}

	type order struct {
		domain.OrderIntent
		filled bool
	}

	orders := make([]order, len(intents))
	for i, it := range intents {
		orders[i] = order{OrderIntent: it}
	}
	// Internal keying by order id makes the output independent of caller
	// ordering.
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].OrderID < orders[j].OrderID
	})

	var fills []domain.Fill
	n := bars.Len()

	for t := 0; t < n; t++ {
		bar := int64(t)
		open, high, low := bars.Open[t], bars.High[t], bars.Low[t]

		// Entry pass: first triggerable entry fills, the rest stay active.
		for i := range orders {
			o := &orders[i]
			if o.filled || o.Role != domain.RoleEntry || !o.ActiveAt(bar) {
				continue
			}
			if px, ok := fillPrice(o.Kind, o.Side, o.Price, open, high, low); ok {
				fills = append(fills, domain.Fill{
					OrderID:  o.OrderID,
					BarIndex: bar,
					Role:     o.Role,
					Kind:     o.Kind,
					Side:     o.Side,
					Price:    px,
					Qty:      o.Qty,
				})
				o.filled = true
				break
			}
		}

		// Exit pass: collect the first triggerable stop and limit, then let
		// the stop win. Loss protection takes precedence over profit taking.
		stopIdx, limitIdx := -1, -1
		var stopPx, limitPx float64
		for i := range orders {
			o := &orders[i]
			if o.filled || o.Role != domain.RoleExit || !o.ActiveAt(bar) {
				continue
			}
			px, ok := fillPrice(o.Kind, o.Side, o.Price, open, high, low)
			if !ok {
				continue
			}
			if o.Kind == domain.KindStop {
				if stopIdx < 0 {
					stopIdx, stopPx = i, px
				}
			} else if limitIdx < 0 {
				limitIdx, limitPx = i, px
			}
		}

		exitIdx, exitPx := stopIdx, stopPx
		if exitIdx < 0 {
			exitIdx, exitPx = limitIdx, limitPx
		}
		if exitIdx >= 0 {
			o := &orders[exitIdx]
			fills = append(fills, domain.Fill{
				OrderID:  o.OrderID,
				BarIndex: bar,
				Role:     o.Role,
				Kind:     o.Kind,
				Side:     o.Side,
				Price:    exitPx,
				Qty:      o.Qty,
			})
			o.filled = true
		}
	}

	return fills, nil
}
