package domain

import "fmt"

// PriceBar is one stored OHLCV bar of a named symbol. The storage layer
// persists rows in this shape; the engine consumes the columnar Series.
type PriceBar struct {
	Symbol      string
	TimestampMs int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      int64
}

// PriceBarsToSeries converts stored rows, assumed sorted by timestamp, to
// engine columns.
func PriceBarsToSeries(bars []*PriceBar) Series {
	s := Series{
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

// Validate checks a stored bar row.
func (b *PriceBar) Validate() error {
	if b.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidSeries)
	}
	if b.TimestampMs < 0 {
		return fmt.Errorf("%w: negative timestamp %d", ErrInvalidSeries, b.TimestampMs)
	}
	if !isFinite(b.Open) || !isFinite(b.High) || !isFinite(b.Low) || !isFinite(b.Close) {
		return fmt.Errorf("%w: non-finite price for %s at %d", ErrInvalidSeries, b.Symbol, b.TimestampMs)
	}
	return nil
}
