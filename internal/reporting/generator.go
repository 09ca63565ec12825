package reporting

import (
	"context"
	"time"

	"quant-sweep-lab/internal/gate"
	"quant-sweep-lab/internal/storage"
)

// Generator produces reports from stored sweep runs.
type Generator struct {
	runStore    storage.SweepRunStore
	resultStore storage.SweepResultStore
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.SweepRunStore, resultStore storage.SweepResultStore) *Generator {
	return &Generator{
		runStore:    runStore,
		resultStore: resultStore,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report for one stored run with its best topN results.
func (g *Generator) Generate(ctx context.Context, runID string, topN int) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	all, err := g.resultStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	top, err := g.resultStore.GetTopByProfit(ctx, runID, topN)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: g.now(),
		RunID:       run.RunID,
		ConfigHash:  run.ConfigHash,
		Summary: RunSummary{
			Bars:         run.Bars,
			ParamsTotal:  run.ParamsTotal,
			TopK:         run.TopK,
			ResultsTotal: len(all),
		},
		Gate: GateSection{Action: run.GateAction},
	}

	report.TopResults = make([]ResultRow, len(top))
	for i, r := range top {
		report.TopResults[i] = ResultRow{
			ParamID:     r.ParamID,
			NetProfit:   r.NetProfit,
			Trades:      r.Trades,
			MaxDrawdown: r.MaxDrawdown,
		}
	}

	return report, nil
}

// AttachGateDecision fills the gate section from a live decision, for
// reports generated in the same process as the run.
func (r *Report) AttachGateDecision(d *gate.Decision) {
	if d == nil {
		return
	}
	r.Gate = GateSection{
		Action:            string(d.Action),
		MemEstBytes:       d.MemEstBytes,
		OpsEst:            d.OpsEst,
		OriginalSubsample: d.OriginalSubsample,
		FinalSubsample:    d.FinalSubsample,
	}
}
