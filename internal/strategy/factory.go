package strategy

import (
	"errors"
	"fmt"
)

// Factory errors
var (
	ErrShortParamRow  = errors.New("param row needs at least fast and slow windows")
	ErrInvalidWindows = errors.New("windows must satisfy 1 <= fast < slow")
	ErrInvalidOffsets = errors.New("stop/target offsets must be positive")
)

// Default bracket offsets for rows that only carry the two windows.
const (
	DefaultStopPct   = 0.02
	DefaultTargetPct = 0.04
)

// FromParams builds the concrete generator for one parameter-matrix row.
// Row layout: [fast, slow] or [fast, slow, stopPct, targetPct].
// Validates bounds and returns clear errors for bad rows.
func FromParams(row []float64) (IntentGenerator, error) {
	if len(row) < 2 {
		return nil, fmt.Errorf("%w: got %d values", ErrShortParamRow, len(row))
	}

	m := MACross{
		Fast:      int(row[0]),
		Slow:      int(row[1]),
		StopPct:   DefaultStopPct,
		TargetPct: DefaultTargetPct,
	}
	if len(row) >= 3 {
		m.StopPct = row[2]
	}
	if len(row) >= 4 {
		m.TargetPct = row[3]
	}

	if m.Fast < 1 || m.Fast >= m.Slow {
		return nil, fmt.Errorf("%w: fast=%d slow=%d", ErrInvalidWindows, m.Fast, m.Slow)
	}
	if m.StopPct <= 0 || m.TargetPct <= 0 {
		return nil, fmt.Errorf("%w: stop=%g target=%g", ErrInvalidOffsets, m.StopPct, m.TargetPct)
	}

	return m, nil
}
