package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"rsibacktester/types"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

var columnAliases = map[string]string{
	"date":      "date",
	"datetime":  "date",
	"timestamp": "date",
	"time":      "date",
	"open":      "open",
	"high":      "high",
	"low":       "low",
	"close":     "close",
	"volume":    "volume",
}

var requiredColumns = []string{"date", "open", "high", "low", "close", "volume"}

// CSVFile reads bars from a headered CSV file. Columns are matched by name,
// so extra columns such as "Adj Close" are ignored.
type CSVFile struct {
	Path string
}

func (f CSVFile) Bars(_ context.Context) ([]types.Bar, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer fh.Close()
	return ReadCSV(fh)
}

// ReadCSV parses every data row into a Bar. The first malformed or missing
// field aborts with a *types.DataFormatError; nothing is defaulted.
func ReadCSV(r io.Reader) ([]types.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &types.DataFormatError{Field: "header", Reason: "empty input"}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	var bars []types.Bar
	for row := 1; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &types.DataFormatError{Row: row, Field: "record", Reason: err.Error()}
		}
		bar, err := parseRecord(record, index, row)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(requiredColumns))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if canonical, ok := columnAliases[key]; ok {
			if _, dup := index[canonical]; !dup {
				index[canonical] = i
			}
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &types.DataFormatError{Field: col, Reason: "missing column"}
		}
	}
	return index, nil
}

func parseRecord(record []string, index map[string]int, row int) (types.Bar, error) {
	cell := func(col string) (string, error) {
		i := index[col]
		if i >= len(record) || strings.TrimSpace(record[i]) == "" {
			return "", &types.DataFormatError{Row: row, Field: col, Reason: "missing value"}
		}
		return strings.TrimSpace(record[i]), nil
	}

	raw, err := cell("date")
	if err != nil {
		return types.Bar{}, err
	}
	ts, err := parseTime(raw)
	if err != nil {
		return types.Bar{}, &types.DataFormatError{Row: row, Field: "date", Reason: err.Error()}
	}

	values := make(map[string]decimal.Decimal, 5)
	for _, col := range requiredColumns[1:] {
		raw, err := cell(col)
		if err != nil {
			return types.Bar{}, err
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return types.Bar{}, &types.DataFormatError{Row: row, Field: col, Reason: fmt.Sprintf("not a number: %q", raw)}
		}
		values[col] = v
	}

	return types.NewBar(ts, values["open"], values["high"], values["low"], values["close"], values["volume"]), nil
}

// parseTime accepts whatever date layout the exporter used. Values without a
// zone are read as UTC.
func parseTime(raw string) (time.Time, error) {
	ts, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// WriteCSV writes bars in the canonical Date,Open,High,Low,Close,Volume layout.
func WriteCSV(w io.Writer, bars []types.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Open", "High", "Low", "Close", "Volume"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, b := range bars {
		record := []string{
			b.Timestamp.Format(time.RFC3339),
			b.Open.String(),
			b.High.String(),
			b.Low.String(),
			b.Close.String(),
			b.Volume.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
