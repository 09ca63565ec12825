// Package gate is the resource-aware admission check for parameter sweeps.
// It estimates the memory and operation cost of a requested workload and,
// as a pure function, returns a possibly-shrunk configuration. It never
// mutates the caller's config and knows nothing about caching; callers
// re-derive the config content hash themselves after a rewrite.
package gate

import "quant-sweep-lab/internal/domain"

// Action is the gate's verdict on a requested workload.
type Action string

// Action constants.
const (
	ActionPass           Action = "pass"
	ActionAutoDownsample Action = "auto_downsample"
	ActionReject         Action = "reject"
)

// DefaultWorkFactor is the safety multiplier applied to the raw byte
// estimate: stage buffers live at roughly twice their steady-state size
// while being built.
const DefaultWorkFactor = 2.0

// Cost model constants.
const (
	bytesPerValue = 8

	// perBarScratchArrays covers the per-run working buffers that scale
	// with the bar count (moving averages, equity curve). These exist
	// whatever the subsample rate is, which is why the fixed part of the
	// estimate is deliberately not reduced by it.
	perBarScratchArrays = 4

	// perEvalResultBytes is the retained footprint of one evaluated
	// parameter set across both stages.
	perEvalResultBytes = 160
)

// Decision is the gate's output. NewCfg is a full copy of the input with
// only the subsample rate altered (identical to the input under Pass and
// Reject).
type Decision struct {
	MemEstBytes       uint64
	OpsEst            uint64
	Action            Action
	OriginalSubsample float64
	FinalSubsample    float64
	NewCfg            domain.SweepConfig
}

// EstimateMemoryBytes returns a conservative upper bound on the memory a
// sweep needs: price arrays + per-bar scratch + the full parameter matrix,
// plus the retained results of the evaluated subset, all scaled by
// workFactor. Only the last term shrinks with the subsample rate; the
// per-bar allocations do not, so lowering the rate never tricks the
// estimate below what a run would actually touch.
func EstimateMemoryBytes(cfg domain.SweepConfig, workFactor float64) uint64 {
	return estimateAt(cfg, cfg.EvaluatedParams(), workFactor)
}

// EstimateOps returns the coarse operation-count proxy
// bars x floor(paramsTotal x subsampleRate). A budgeting signal, not a
// wall-clock prediction.
func EstimateOps(cfg domain.SweepConfig) uint64 {
	return uint64(cfg.Bars) * uint64(cfg.EvaluatedParams())
}

// estimateAt computes the memory bound for an explicit evaluated-param
// count, which is what the downsample search bisects over.
func estimateAt(cfg domain.SweepConfig, evaluated int, workFactor float64) uint64 {
	priceFields := cfg.PriceFields
	if priceFields <= 0 {
		priceFields = domain.PriceFieldsOHLC
	}

	fixed := uint64(cfg.Bars)*uint64(priceFields)*bytesPerValue +
		uint64(cfg.Bars)*perBarScratchArrays*bytesPerValue +
		uint64(cfg.ParamsTotal)*uint64(cfg.ParamWidth)*bytesPerValue

	retained := uint64(evaluated) * perEvalResultBytes

	return uint64(float64(fixed+retained) * workFactor)
}

// DecideOOMAction brackets a sweep against a memory budget.
//
//   - Estimate within limit: Pass, config untouched.
//   - Over limit with auto-downsample allowed: binary search the largest
//     evaluated-param count that fits, floored at the configured minimum
//     subsample rate; the returned config differs only in its rate.
//   - Otherwise: Reject. A rejection is a decision value, not an error;
//     the caller chooses between aborting and resubmitting a smaller grid.
func DecideOOMAction(cfg domain.SweepConfig, memLimitMB int, allowAutoDownsample bool) Decision {
	d := Decision{
		MemEstBytes:       EstimateMemoryBytes(cfg, DefaultWorkFactor),
		OpsEst:            EstimateOps(cfg),
		OriginalSubsample: cfg.ParamSubsampleRate,
		FinalSubsample:    cfg.ParamSubsampleRate,
		NewCfg:            cfg,
	}

	limit := uint64(memLimitMB) * 1024 * 1024
	if d.MemEstBytes <= limit {
		d.Action = ActionPass
		return d
	}

	if !allowAutoDownsample {
		d.Action = ActionReject
		return d
	}

	floorEval := int(float64(cfg.ParamsTotal) * cfg.SubsampleFloor())
	if floorEval < 1 {
		floorEval = 1
	}
	maxEval := cfg.EvaluatedParams()
	if floorEval > maxEval || estimateAt(cfg, floorEval, DefaultWorkFactor) > limit {
		// Even the floor does not fit: the per-bar terms alone exceed
		// the budget, and those are not negotiable.
		d.Action = ActionReject
		return d
	}

	// Largest evaluated count still under the limit. estimateAt is
	// monotone in the count, so plain bisection suffices.
	lo, hi := floorEval, maxEval
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if estimateAt(cfg, mid, DefaultWorkFactor) <= limit {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	d.Action = ActionAutoDownsample
	d.FinalSubsample = float64(lo) / float64(cfg.ParamsTotal)
	d.NewCfg.ParamSubsampleRate = d.FinalSubsample
	return d
}
