package bario

import (
	"github.com/parquet-go/parquet-go"
)

// ParquetFile reads and writes bars as Parquet.
type ParquetFile struct{}

func (ParquetFile) Extension() string { return "parquet" }

func (ParquetFile) Save(bars []Bar, path string) error {
	return parquet.WriteFile(path, bars)
}

func (ParquetFile) Load(path string) ([]Bar, error) {
	return parquet.ReadFile[Bar](path)
}
