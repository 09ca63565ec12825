// Package idgen produces the deterministic identifiers used across the
// platform: packed order ids reproducible from intent attributes alone, and
// content hashes naming sweep configurations.
package idgen

import "quant-sweep-lab/internal/domain"

// Packing radices. The low two decimal digits carry role/kind/side
// (role*10 + kind*2 + side <= 13), the next four carry the param index,
// the rest carry the created bar. The packing is injective as long as
// paramIdx stays below 10_000.
const (
	barRadix   = 1_000_000
	paramRadix = 100
)

// OrderID packs intent attributes into a reproducible int64.
//
// Two independently computed intent streams for the same (bar, param) grid
// produce identical ids regardless of generation order, which is what makes
// their fill sequences comparable fill-for-fill.
func OrderID(createdBar, paramIdx int64, role domain.Role, kind domain.Kind, side domain.Side) int64 {
	return createdBar*barRadix +
		paramIdx*paramRadix +
		int64(role)*10 +
		int64(kind)*2 +
		int64(side)
}

// OrderIDs is the batched counterpart of OrderID: one id per created bar,
// element-wise identical to calling OrderID in a loop.
func OrderIDs(createdBars []int64, paramIdx int64, role domain.Role, kind domain.Kind, side domain.Side) []int64 {
	ids := make([]int64, len(createdBars))
	tail := paramIdx*paramRadix + int64(role)*10 + int64(kind)*2 + int64(side)
	for i, bar := range createdBars {
		ids[i] = bar*barRadix + tail
	}
	return ids
}
