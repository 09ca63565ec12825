// Package funnel implements the staged parameter-search pipeline: a cheap
// proxy ranking over the whole grid, a deterministic top-k cut, and a full
// matching-engine confirmation of the survivors.
package funnel

import (
	"math"

	"quant-sweep-lab/internal/domain"
)

// ProxyValue computes the stage-0 ranking signal for one parameter row from
// close prices alone: the mean next-bar price move in the direction the
// fast/slow moving-average spread was pointing. No simulation is involved.
//
// Rows whose windows cannot be evaluated (fast < 1, fast >= slow, slow
// longer than the data) score -Inf and report warmedUp=false.
func ProxyValue(closes []float64, row []float64) (value float64, warmedUp bool) {
	if len(row) < 2 {
		return math.Inf(-1), false
	}
	fast, slow := int(row[0]), int(row[1])
	n := len(closes)
	if fast < 1 || fast >= slow || slow > n {
		return math.Inf(-1), false
	}

	var fastSum, slowSum float64
	for i := 0; i < slow; i++ {
		slowSum += closes[i]
		if i >= slow-fast {
			fastSum += closes[i]
		}
	}

	sum := 0.0
	count := 0
	for t := slow; t < n; t++ {
		spread := fastSum/float64(fast) - slowSum/float64(slow)
		move := closes[t] - closes[t-1]
		switch {
		case spread > 0:
			sum += move
		case spread < 0:
			sum -= move
		}
		count++

		fastSum += closes[t] - closes[t-fast]
		slowSum += closes[t] - closes[t-slow]
	}

	if count == 0 {
		return math.Inf(-1), false
	}
	return sum / float64(count), n >= 2*slow
}

// RunStage0 scores every parameter row. Output order follows the input grid;
// one result per row with ParamID set to the row index.
func RunStage0(closes []float64, params [][]float64) []domain.Stage0Result {
	results := make([]domain.Stage0Result, len(params))
	for i, row := range params {
		v, warm := ProxyValue(closes, row)
		results[i] = domain.Stage0Result{ParamID: i, ProxyValue: v, WarmedUp: warm}
	}
	return results
}
