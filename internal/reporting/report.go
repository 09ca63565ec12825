// Package reporting renders sweep run reports as Markdown and CSV.
package reporting

import "time"

// Report is the rendered view of one sweep run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	ConfigHash  string

	// Workload summary
	Summary RunSummary

	// Gate verdict for the run; zero Action means the gate was disabled.
	Gate GateSection

	// Top confirmed results, ordered by net_profit DESC, param_id ASC.
	TopResults []ResultRow
}

// RunSummary describes the executed workload.
type RunSummary struct {
	Bars         int
	ParamsTotal  int
	TopK         int
	ResultsTotal int
}

// GateSection carries the admission decision of the run.
type GateSection struct {
	Action            string
	MemEstBytes       uint64
	OpsEst            uint64
	OriginalSubsample float64
	FinalSubsample    float64
}

// ResultRow is one confirmed parameter set in the results table.
type ResultRow struct {
	ParamID     int
	NetProfit   float64
	Trades      int
	MaxDrawdown float64
}
