package funnel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/engine"
	"quant-sweep-lab/internal/gate"
	"quant-sweep-lab/internal/idgen"
	"quant-sweep-lab/internal/metrics"
)

// Orchestrator composes stage 0 -> top-k -> stage 2 into one call,
// bracketed by the OOM gate when a memory limit is configured.
//
// Parallelism is expressed across parameter sets only: every evaluation
// writes into its own pre-assigned slot, so worker count and completion
// order never show in the output.
type Orchestrator struct {
	sim          engine.Simulator
	workers      int
	costs        metrics.Costs
	orderQty     int32
	memLimitMB   int
	allowShrink  bool
	minRate      float64
	retainFills  bool
	retainEquity bool
}

// Options for creating an Orchestrator.
type Options struct {
	// Sim is the matching implementation used by stage 2; nil selects the
	// Book hot path.
	Sim engine.Simulator

	// Workers bounds concurrent parameter evaluations; <= 0 means one per
	// logical CPU.
	Workers int

	Costs    metrics.Costs
	OrderQty int32

	// MemLimitMB enables the OOM gate; zero disables it.
	MemLimitMB          int
	AllowAutoDownsample bool

	// MinSubsampleRate bounds how far the gate may shrink the grid; zero
	// means domain.DefaultMinSubsampleRate.
	MinSubsampleRate float64

	RetainFills  bool
	RetainEquity bool
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Orchestrator{
		sim:          opts.Sim,
		workers:      workers,
		costs:        opts.Costs,
		orderQty:     opts.OrderQty,
		memLimitMB:   opts.MemLimitMB,
		allowShrink:  opts.AllowAutoDownsample,
		minRate:      opts.MinSubsampleRate,
		retainFills:  opts.RetainFills,
		retainEquity: opts.RetainEquity,
	}
}

// RunOutput is the orchestrator result: the funnel artifacts, the gate
// decision (nil when the gate is disabled), the workload configuration that
// was actually executed, and its content hash.
type RunOutput struct {
	domain.FunnelResult

	Gate       *gate.Decision
	Config     domain.SweepConfig
	ConfigHash string
}

// Run executes the full funnel over one bar series and parameter grid.
//
// Identical (bars, params, k) yield identical output across any number of
// calls and any worker count. A gate rejection is returned as a decision
// value with empty stages, not as an error.
func (o *Orchestrator) Run(ctx context.Context, bars domain.Series, params [][]float64, k int) (*RunOutput, error) {
	if err := bars.Validate(); err != nil {
		return nil, err
	}

	cfg := domain.SweepConfig{
		Bars:               bars.Len(),
		PriceFields:        domain.PriceFieldsOHLC,
		ParamsTotal:        len(params),
		ParamWidth:         gridWidth(params),
		ParamSubsampleRate: 1.0,
		MinSubsampleRate:   o.minRate,
		TopK:               k,
		Commission:         o.costs.Commission,
		Slippage:           o.costs.Slippage,
		OrderQty:           o.orderQty,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	out := &RunOutput{Config: cfg}

	if o.memLimitMB > 0 {
		decision := gate.DecideOOMAction(cfg, o.memLimitMB, o.allowShrink)
		out.Gate = &decision
		if decision.Action == gate.ActionReject {
			out.ConfigHash = idgen.SweepHash(cfg)
			out.Stage0Results = []domain.Stage0Result{}
			out.TopKParamIDs = []int{}
			out.Stage2Results = []domain.Stage2Result{}
			return out, nil
		}
		cfg = decision.NewCfg
		out.Config = cfg
	}
	out.ConfigHash = idgen.SweepHash(cfg)

	// Stage 0 over the (possibly subsampled) grid.
	indices := subsampleIndices(cfg.ParamsTotal, cfg.EvaluatedParams())
	stage0 := make([]domain.Stage0Result, len(indices))
	err := o.parallelFor(ctx, len(indices), func(pos int) error {
		id := indices[pos]
		v, warm := ProxyValue(bars.Close, params[id])
		stage0[pos] = domain.Stage0Result{ParamID: id, ProxyValue: v, WarmedUp: warm}
		return nil
	})
	if err != nil {
		return nil, err
	}

	topk := SelectTopK(stage0, k)

	// Stage 2 over the survivors.
	opts := Stage2Options{
		Sim:          o.sim,
		Costs:        o.costs,
		OrderQty:     o.orderQty,
		RetainFills:  o.retainFills,
		RetainEquity: o.retainEquity,
	}
	stage2 := make([]domain.Stage2Result, len(topk))
	err = o.parallelFor(ctx, len(topk), func(pos int) error {
		r, err := stage2One(bars, params, topk[pos], opts)
		if err != nil {
			return err
		}
		stage2[pos] = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Stage0Results = stage0
	out.TopKParamIDs = topk
	out.Stage2Results = stage2
	return out, nil
}

// parallelFor runs fn(0..n-1) across the configured worker count. Each index
// is claimed exactly once; cancellation is honored between items, never
// inside one (a single simulation always runs to completion).
func (o *Orchestrator) parallelFor(ctx context.Context, n int, fn func(i int) error) error {
	if n == 0 {
		return ctx.Err()
	}

	workers := o.workers
	if workers > n {
		workers = n
	}

	var (
		next     atomic.Int64
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= n {
					return
				}
				if err := ctx.Err(); err != nil {
					errOnce.Do(func() { firstErr = err })
					return
				}
				if err := fn(i); err != nil {
					errOnce.Do(func() { firstErr = err })
					return
				}
			}
		}()
	}
	wg.Wait()

	return firstErr
}

// subsampleIndices picks the evaluated subset of a grid with an even,
// deterministic stride: index j*total/evaluated for j in [0, evaluated).
func subsampleIndices(total, evaluated int) []int {
	if evaluated >= total {
		evaluated = total
	}
	indices := make([]int, evaluated)
	for j := 0; j < evaluated; j++ {
		indices[j] = j * total / evaluated
	}
	return indices
}

// gridWidth returns the widest row of the grid; rows may ragged-trail when a
// caller mixes 2- and 4-column layouts.
func gridWidth(params [][]float64) int {
	w := 0
	for _, row := range params {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}
