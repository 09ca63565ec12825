package verification

import (
	"context"
	"fmt"

	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/engine"
	"quant-sweep-lab/internal/strategy"
)

// EngineVerifier replays parameter sets through two matching engines and
// compares every fill.
type EngineVerifier struct {
	reference engine.Simulator
	candidate engine.Simulator
}

// NewEngineVerifier creates a verifier. A nil reference defaults to the
// per-bar rescan engine; a nil candidate defaults to the sorted-book engine.
func NewEngineVerifier(reference, candidate engine.Simulator) *EngineVerifier {
	if reference == nil {
		reference = engine.Reference{}
	}
	if candidate == nil {
		candidate = engine.Book{}
	}
	return &EngineVerifier{reference: reference, candidate: candidate}
}

// VerifyParam replays one parameter row through both engines.
//
// A row the strategy factory rejects verifies trivially: both engines would
// receive no intents.
func (v *EngineVerifier) VerifyParam(bars domain.Series, params [][]float64, id int) (*VerificationResult, error) {
	if id < 0 || id >= len(params) {
		return nil, fmt.Errorf("param id %d out of range [0, %d)", id, len(params))
	}

	result := &VerificationResult{ParamID: id}

	gen, err := strategy.FromParams(params[id])
	if err != nil {
		result.Match = true
		return result, nil
	}
	intents := gen.Intents(bars, int64(id))

	expected, err := v.reference.Simulate(bars, intents)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", v.reference.Name(), err)
	}
	actual, err := v.candidate.Simulate(bars, intents)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", v.candidate.Name(), err)
	}

	result.Fills = len(expected)
	result.Divergences = CompareFills(expected, actual)
	result.Match = len(result.Divergences) == 0
	return result, nil
}

// VerifyGrid replays every row of the grid through both engines.
// Cancellation is honored between rows.
func (v *EngineVerifier) VerifyGrid(ctx context.Context, bars domain.Series, params [][]float64) (*VerificationReport, error) {
	if err := bars.Validate(); err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalParams: len(params),
		Results:     make([]VerificationResult, 0, len(params)),
	}

	for id := range params {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := v.VerifyParam(bars, params, id)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", id, err)
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedParams++
		} else {
			report.DivergentParams++
		}
	}

	return report, nil
}
