package funnel

import (
	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/engine"
	"quant-sweep-lab/internal/metrics"
	"quant-sweep-lab/internal/strategy"
)

// Stage2Options configures the confirmation stage.
type Stage2Options struct {
	// Sim is the matching implementation; nil selects the Book hot path.
	Sim engine.Simulator

	Costs    metrics.Costs
	OrderQty int32

	// RetainFills/RetainEquity keep the raw artifacts on each result.
	// Off by default: a wide sweep only needs the summary figures.
	RetainFills  bool
	RetainEquity bool
}

func (o Stage2Options) simulator() engine.Simulator {
	if o.Sim == nil {
		return engine.Book{}
	}
	return o.Sim
}

// RunStage2 confirms the selected parameter sets with full simulations:
// one engine invocation per param id over the whole bar series.
//
// A param id outside the grid, or a row the strategy factory rejects, yields
// a zero-valued placeholder carrying just the id, so one bad index never
// aborts the batch. Bar-series validation, by contrast, fails the whole call
// before any simulation runs.
func RunStage2(bars domain.Series, params [][]float64, paramIDs []int, opts Stage2Options) ([]domain.Stage2Result, error) {
	if err := bars.Validate(); err != nil {
		return nil, err
	}

	results := make([]domain.Stage2Result, len(paramIDs))
	for i, id := range paramIDs {
		r, err := stage2One(bars, params, id, opts)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}

// stage2One runs the confirmation for a single param id. The bars are
// assumed validated by the caller.
func stage2One(bars domain.Series, params [][]float64, id int, opts Stage2Options) (domain.Stage2Result, error) {
	if id < 0 || id >= len(params) {
		return domain.Stage2Result{ParamID: id}, nil
	}

	gen, err := strategy.FromParams(params[id])
	if err != nil {
		// Recovered locally: an unbuildable row scores as a no-trade run.
		return domain.Stage2Result{ParamID: id}, nil
	}

	intents := gen.Intents(bars, int64(id))
	if opts.OrderQty > 0 {
		for j := range intents {
			intents[j].Qty = opts.OrderQty
		}
	}

	fills, err := opts.simulator().Simulate(bars, intents)
	if err != nil {
		return domain.Stage2Result{}, err
	}

	perf := metrics.Compute(fills, opts.Costs)
	result := domain.Stage2Result{
		ParamID:     id,
		NetProfit:   perf.NetProfit,
		Trades:      perf.Trades,
		MaxDrawdown: perf.MaxDrawdown,
	}
	if opts.RetainFills {
		result.Fills = fills
	}
	if opts.RetainEquity {
		result.Equity = perf.Equity
	}
	return result, nil
}
