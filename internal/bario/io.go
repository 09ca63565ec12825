package bario

import (
	"fmt"
	"strings"

	"quant-sweep-lab/internal/domain"
)

// Reader loads a full bar file.
type Reader interface {
	Load(path string) ([]Bar, error)
	Extension() string
}

// Writer stores a full bar file.
type Writer interface {
	Save(bars []Bar, path string) error
	Extension() string
}

// NewReader creates a reader by format name (csv, parquet).
// Returns nil if the format is not supported.
func NewReader(format string) Reader {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVFile{}
	case "parquet":
		return ParquetFile{}
	default:
		return nil
	}
}

// NewWriter creates a writer by format name (csv, parquet).
// Returns nil if the format is not supported.
func NewWriter(format string) Writer {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVFile{}
	case "parquet":
		return ParquetFile{}
	default:
		return nil
	}
}

// LoadSeries reads a bar file and validates it as an engine series.
func LoadSeries(format, path string) (domain.Series, error) {
	r := NewReader(format)
	if r == nil {
		return domain.Series{}, fmt.Errorf("unsupported bar format %q", format)
	}
	bars, err := r.Load(path)
	if err != nil {
		return domain.Series{}, err
	}
	s := ToSeries(bars)
	if err := s.Validate(); err != nil {
		return domain.Series{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
