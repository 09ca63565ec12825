package funnel

import (
	"math"
	"sort"

	"quant-sweep-lab/internal/domain"
)

// SelectTopK reduces stage-0 results to the k best param ids: proxy value
// descending, exact ties broken by param id ascending. The ordering is a
// total order over (value, id), so the output is identical for any input
// permutation and any number of repeated calls.
//
// -Inf values are kept, not filtered; they simply sort last. NaN is treated
// as -Inf so it cannot poison the comparator.
func SelectTopK(results []domain.Stage0Result, k int) []int {
	if k <= 0 || len(results) == 0 {
		return []int{}
	}

	sorted := make([]domain.Stage0Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		vi, vj := rankValue(sorted[i].ProxyValue), rankValue(sorted[j].ProxyValue)
		if vi != vj {
			return vi > vj
		}
		return sorted[i].ParamID < sorted[j].ParamID
	})

	if k > len(sorted) {
		k = len(sorted)
	}
	ids := make([]int, k)
	for i := 0; i < k; i++ {
		ids[i] = sorted[i].ParamID
	}
	return ids
}

func rankValue(v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}
