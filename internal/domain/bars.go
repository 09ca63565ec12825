package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSeries is returned when a bar series fails validation.
var ErrInvalidSeries = errors.New("invalid bar series")

// Series holds parallel OHLC arrays indexed 0..Len()-1.
// The arrays are owned by the caller and never mutated by the engine.
type Series struct {
	Open  []float64
	High  []float64
	Low   []float64
	Close []float64
}

// Len returns the number of bars.
func (s Series) Len() int {
	return len(s.Close)
}

// Validate checks the structural invariants of the series:
// equal array lengths, finite prices, high >= max(open, close) and
// low <= min(open, close) on every bar. The first violation is
// reported with its bar index; nothing is silently corrected.
func (s Series) Validate() error {
	n := len(s.Close)
	if len(s.Open) != n || len(s.High) != n || len(s.Low) != n {
		return fmt.Errorf("%w: array lengths open=%d high=%d low=%d close=%d",
			ErrInvalidSeries, len(s.Open), len(s.High), len(s.Low), n)
	}

	for i := 0; i < n; i++ {
		o, h, l, c := s.Open[i], s.High[i], s.Low[i], s.Close[i]

		if !isFinite(o) || !isFinite(h) || !isFinite(l) || !isFinite(c) {
			return fmt.Errorf("%w: non-finite price at bar %d", ErrInvalidSeries, i)
		}
		if h < o || h < c {
			return fmt.Errorf("%w: high %g below max(open, close) at bar %d", ErrInvalidSeries, h, i)
		}
		if l > o || l > c {
			return fmt.Errorf("%w: low %g above min(open, close) at bar %d", ErrInvalidSeries, l, i)
		}
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
