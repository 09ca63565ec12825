package engine

import (
	"fmt"
	"sort"

	"quant-sweep-lab/internal/domain"
)

// Book is the performance-oriented matching implementation. Intents are
// sorted once by activation bar and admitted into a resident, OrderID-sorted
// book through a cursor, so each bar only touches currently-active orders
// instead of rescanning the whole batch. Output is bit-identical to
// Reference, including for good-till-cancelled intents.
type Book struct{}

// Name implements Simulator.
func (Book) Name() string { return "book" }

// activationBar is the first bar an intent may fill on.
func activationBar(o domain.OrderIntent) int64 {
	if o.CreatedBar < 0 {
		return 0
	}
	return o.CreatedBar + 1
}

// Simulate implements Simulator.
func (Book) Simulate(bars domain.Series, intents []domain.OrderIntent) ([]domain.Fill, error) {
	if err := validateInput(bars, intents); err != nil {
		return nil, err
	}

	recs := make([]domain.OrderIntent, len(intents))
	copy(recs, intents)
	sort.Slice(recs, func(i, j int) bool {
		ai, aj := activationBar(recs[i]), activationBar(recs[j])
		if ai != aj {
			return ai < aj
		}
		return recs[i].OrderID < recs[j].OrderID
	})

	// The book holds indices into recs, kept sorted by OrderID per role.
	var entries, exits []int
	cursor := 0

	var fills []domain.Fill
	n := bars.Len()

	for t := 0; t < n; t++ {
		bar := int64(t)

		// Admit newly-activated orders. Within one activation bar the
		// cursor yields them already OrderID-sorted, so a single merge
		// keeps the book ordered.
		var newEntries, newExits []int
		for cursor < len(recs) && activationBar(recs[cursor]) <= bar {
			if recs[cursor].Role == domain.RoleEntry {
				newEntries = append(newEntries, cursor)
			} else {
				newExits = append(newExits, cursor)
			}
			cursor++
		}
		entries = mergeByOrderID(recs, entries, newEntries)
		exits = mergeByOrderID(recs, exits, newExits)

		if len(entries) == 0 && len(exits) == 0 {
			if cursor == len(recs) {
				break
			}
			continue
		}

		open, high, low := bars.Open[t], bars.High[t], bars.Low[t]

		// Entry pass.
		for bi, ri := range entries {
			o := recs[ri]
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
				entries = append(entries[:bi], entries[bi+1:]...)
				break
			}
		}

		// Exit pass with stop-over-limit priority.
		stopBi, limitBi := -1, -1
		var stopPx, limitPx float64
		for bi, ri := range exits {
			o := recs[ri]
			px, ok := fillPrice(o.Kind, o.Side, o.Price, open, high, low)
			if !ok {
				continue
			}
			if o.Kind == domain.KindStop {
				if stopBi < 0 {
					stopBi, stopPx = bi, px
				}
			} else if limitBi < 0 {
				limitBi, limitPx = bi, px
			}
			if stopBi >= 0 && limitBi >= 0 {
				break
			}
		}

		exitFilled := false
		emitExit := func(bi int, px float64) {
			if exitFilled {
				panic(fmt.Sprintf("engine: second exit fill computed on bar %d", t))
			}
			exitFilled = true
			o := recs[exits[bi]]
			fills = append(fills, domain.Fill{
				OrderID:  o.OrderID,
				BarIndex: bar,
				Role:     o.Role,
				Kind:     o.Kind,
				Side:     o.Side,
				Price:    px,
				Qty:      o.Qty,
			})
			exits = append(exits[:bi], exits[bi+1:]...)
		}
		if stopBi >= 0 {
			emitExit(stopBi, stopPx)
		} else if limitBi >= 0 {
			emitExit(limitBi, limitPx)
		}

		// Drop intents whose TTL ends on this bar; expiry is silent.
		entries = purgeExpired(recs, entries, bar)
		exits = purgeExpired(recs, exits, bar)
	}

	return fills, nil
}

// mergeByOrderID merges two OrderID-sorted index slices into one.
func mergeByOrderID(recs []domain.OrderIntent, book, batch []int) []int {
	if len(batch) == 0 {
		return book
	}
	if len(book) == 0 {
		return append(book, batch...)
	}

	merged := make([]int, 0, len(book)+len(batch))
	i, j := 0, 0
	for i < len(book) && j < len(batch) {
		if recs[book[i]].OrderID < recs[batch[j]].OrderID {
			merged = append(merged, book[i])
			i++
		} else {
			merged = append(merged, batch[j])
			j++
		}
	}
	merged = append(merged, book[i:]...)
	merged = append(merged, batch[j:]...)
	return merged
}

// purgeExpired removes orders no longer active after bar t.
func purgeExpired(recs []domain.OrderIntent, book []int, t int64) []int {
	kept := book[:0]
	for _, ri := range book {
		o := recs[ri]
		if o.TTL == 0 || t < o.CreatedBar+o.TTL {
			kept = append(kept, ri)
		}
	}
	return kept
}
