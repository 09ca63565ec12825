package bario

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// CSVFile reads and writes bars as CSV with a t,o,h,l,c,v header.
type CSVFile struct{}

func (CSVFile) Extension() string { return "csv" }

func (CSVFile) Save(bars []Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"t", "o", "h", "l", "c", "v"}); err != nil {
		return err
	}
	for _, b := range bars {
		if err := w.Write([]string{
			strconv.FormatInt(b.Timestamp, 10),
			floatStr(b.Open),
			floatStr(b.High),
			floatStr(b.Low),
			floatStr(b.Close),
			strconv.FormatInt(b.Volume, 10),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (CSVFile) Load(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	bars := make([]Bar, 0, len(records)-1)
	for i, rec := range records[1:] { // skip header
		b, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func parseRecord(rec []string) (Bar, error) {
	var (
		b   Bar
		err error
	)
	if b.Timestamp, err = strconv.ParseInt(rec[0], 10, 64); err != nil {
		return Bar{}, err
	}
	for i, dst := range []*float64{&b.Open, &b.High, &b.Low, &b.Close} {
		if *dst, err = strconv.ParseFloat(rec[i+1], 64); err != nil {
			return Bar{}, err
		}
	}
	if b.Volume, err = strconv.ParseInt(rec[5], 10, 64); err != nil {
		return Bar{}, err
	}
	return b, nil
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
