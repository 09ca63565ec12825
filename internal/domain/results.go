package domain

// Stage0Result is the proxy-ranking output for one parameter set.
//
// It deliberately carries no profit, drawdown or trade-count field: stage 0
// is computed from price data alone and must stay structurally incapable of
// leaking simulation-derived values into the ranking signal.
type Stage0Result struct {
	ParamID    int
	ProxyValue float64
	WarmedUp   bool
}

// Stage2Result is the confirmation-stage output for one selected parameter
// set, derived from a full matching-engine run.
type Stage2Result struct {
	ParamID     int
	NetProfit   float64
	Trades      int
	MaxDrawdown float64

	// Fills and Equity are populated only when the caller asked to retain
	// them; both are nil in placeholder results for invalid param ids.
	Fills  []Fill
	Equity []float64
}

// FunnelResult bundles the output of one staged sweep:
// stage 0 over the (possibly subsampled) grid, the deterministic top-k
// selection, and the stage 2 confirmations keyed by param id.
type FunnelResult struct {
	Stage0Results []Stage0Result
	TopKParamIDs  []int
	Stage2Results []Stage2Result
}
