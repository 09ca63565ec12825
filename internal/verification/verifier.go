// Package verification cross-checks matching-engine implementations against
// each other: every fill stream the optimized engine produces must be
// bit-identical to the reference engine's, field by field.
package verification

import (
	"fmt"

	"quant-sweep-lab/internal/domain"
)

// FieldDivergence records a single field mismatch between two fill streams.
type FieldDivergence struct {
	Field    string
	Expected any
	Actual   any
}

// VerificationResult is the comparison outcome for one parameter set.
type VerificationResult struct {
	ParamID     int
	Match       bool
	Fills       int
	Divergences []FieldDivergence
}

// VerificationReport aggregates results across a parameter grid.
type VerificationReport struct {
	TotalParams     int
	MatchedParams   int
	DivergentParams int
	Results         []VerificationResult
}

// Summary returns a one-line report suitable for logs.
func (r *VerificationReport) Summary() string {
	return fmt.Sprintf("verified %d params: %d matched, %d divergent",
		r.TotalParams, r.MatchedParams, r.DivergentParams)
}

// CompareFills compares two fill streams field by field and returns every
// divergence. Prices are compared exactly: the engines are required to be
// bit-identical, not merely close.
func CompareFills(expected, actual []domain.Fill) []FieldDivergence {
	var divs []FieldDivergence

	if len(expected) != len(actual) {
		divs = append(divs, FieldDivergence{
			Field:    "FillCount",
			Expected: len(expected),
			Actual:   len(actual),
		})
	}

	n := len(expected)
	if len(actual) < n {
		n = len(actual)
	}
	for i := 0; i < n; i++ {
		e, a := expected[i], actual[i]
		if e.OrderID != a.OrderID {
			divs = append(divs, fillDiv(i, "OrderID", e.OrderID, a.OrderID))
		}
		if e.BarIndex != a.BarIndex {
			divs = append(divs, fillDiv(i, "BarIndex", e.BarIndex, a.BarIndex))
		}
		if e.Role != a.Role {
			divs = append(divs, fillDiv(i, "Role", e.Role.String(), a.Role.String()))
		}
		if e.Kind != a.Kind {
			divs = append(divs, fillDiv(i, "Kind", e.Kind.String(), a.Kind.String()))
		}
		if e.Side != a.Side {
			divs = append(divs, fillDiv(i, "Side", e.Side.String(), a.Side.String()))
		}
		if e.Price != a.Price {
			divs = append(divs, fillDiv(i, "Price", e.Price, a.Price))
		}
		if e.Qty != a.Qty {
			divs = append(divs, fillDiv(i, "Qty", e.Qty, a.Qty))
		}
	}

	return divs
}

func fillDiv(i int, field string, expected, actual any) FieldDivergence {
	return FieldDivergence{
		Field:    fmt.Sprintf("Fill[%d].%s", i, field),
		Expected: expected,
		Actual:   actual,
	}
}
