package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSweepConfig is returned when a sweep configuration fails validation.
var ErrInvalidSweepConfig = errors.New("invalid sweep config")

// Default sweep limits.
const (
	// DefaultMinSubsampleRate is the floor below which the OOM gate will
	// not shrink a grid on its own.
	DefaultMinSubsampleRate = 0.01

	// PriceFieldsOHLC is the number of parallel price arrays in a Series.
	PriceFieldsOHLC = 4
)

// SweepConfig describes the workload of one parameter sweep. It is a plain
// value: the gate copies it rather than mutating it, and its content hash
// identifies cached results.
type SweepConfig struct {
	Bars        int
	PriceFields int
	ParamsTotal int
	ParamWidth  int

	// ParamSubsampleRate is the fraction of the grid actually evaluated,
	// in (0, 1]. MinSubsampleRate bounds how far the gate may lower it;
	// zero means DefaultMinSubsampleRate.
	ParamSubsampleRate float64
	MinSubsampleRate   float64

	TopK       int
	Commission float64
	Slippage   float64
	OrderQty   int32
}

// EvaluatedParams returns the number of parameter sets the configured
// subsample rate admits: floor(ParamsTotal * rate). The epsilon keeps
// rates of the form k/ParamsTotal, as written back by the gate, from
// flooring to k-1 after the float round trip.
func (c SweepConfig) EvaluatedParams() int {
	return int(math.Floor(float64(c.ParamsTotal)*c.ParamSubsampleRate + 1e-9))
}

// SubsampleFloor returns the effective minimum subsample rate.
func (c SweepConfig) SubsampleFloor() float64 {
	if c.MinSubsampleRate > 0 {
		return c.MinSubsampleRate
	}
	return DefaultMinSubsampleRate
}

// Validate checks the configuration bounds.
func (c SweepConfig) Validate() error {
	if c.Bars <= 0 {
		return fmt.Errorf("%w: bars %d", ErrInvalidSweepConfig, c.Bars)
	}
	if c.ParamsTotal <= 0 || c.ParamWidth <= 0 {
		return fmt.Errorf("%w: params %dx%d", ErrInvalidSweepConfig, c.ParamsTotal, c.ParamWidth)
	}
	if c.ParamSubsampleRate <= 0 || c.ParamSubsampleRate > 1 {
		return fmt.Errorf("%w: subsample rate %g", ErrInvalidSweepConfig, c.ParamSubsampleRate)
	}
	if c.MinSubsampleRate < 0 || c.MinSubsampleRate > 1 {
		return fmt.Errorf("%w: min subsample rate %g", ErrInvalidSweepConfig, c.MinSubsampleRate)
	}
	if c.TopK < 0 {
		return fmt.Errorf("%w: top-k %d", ErrInvalidSweepConfig, c.TopK)
	}
	return nil
}

// SweepRun is the persisted record of one funnel execution, named by the
// content hash of its configuration.
type SweepRun struct {
	RunID       string
	ConfigHash  string
	CreatedAt   int64
	Bars        int
	ParamsTotal int
	TopK        int
	GateAction  string
}
