// Package bario reads and writes OHLCV bar files in the formats the sweep
// tooling consumes: CSV and Parquet.
package bario

import (
	"quant-sweep-lab/internal/domain"
)

// Bar is one OHLCV bar as stored on disk. Shared by every reader, writer
// and serialization (json, parquet).
type Bar struct {
	Timestamp int64   `json:"t" parquet:"t"` // Unix timestamp in milliseconds
	Open      float64 `json:"o" parquet:"o"`
	High      float64 `json:"h" parquet:"h"`
	Low       float64 `json:"l" parquet:"l"`
	Close     float64 `json:"c" parquet:"c"`
	Volume    int64   `json:"v,omitempty" parquet:"v,optional"`
}

// ToSeries converts stored bars to the column layout the engine consumes.
func ToSeries(bars []Bar) domain.Series {
	s := domain.Series{
		Open:  make([]float64, len(bars)),
		High:  make([]float64, len(bars)),
		Low:   make([]float64, len(bars)),
		Close: make([]float64, len(bars)),
	}
	for i, b := range bars {
		s.Open[i] = b.Open
		s.High[i] = b.High
		s.Low[i] = b.Low
		s.Close[i] = b.Close
	}
	return s
}

// FromSeries converts engine columns back to storable bars. Timestamps are
// synthesized from start and stepMillis; volume is left zero.
func FromSeries(s domain.Series, startMillis, stepMillis int64) []Bar {
	bars := make([]Bar, s.Len())
	for i := range bars {
		bars[i] = Bar{
			Timestamp: startMillis + int64(i)*stepMillis,
			Open:      s.Open[i],
			High:      s.High[i],
			Low:       s.Low[i],
			Close:     s.Close[i],
		}
	}
	return bars
}
