package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var normalizedHeader = []string{"Date", "Open", "High", "Low", "Close", "Volume", "Adj Close"}

// NormalizeYahooCSV rewrites a Yahoo Finance export into the canonical column
// order. The export carries a "Price" header whose first column holds the
// date, followed by "Ticker" and "Date" metadata rows; those rows are dropped.
// Columns are located by name, so their order in the export does not matter.
func NormalizeYahooCSV(r io.Reader, w io.Writer) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("normalize: empty input")
	}
	if err != nil {
		return 0, fmt.Errorf("normalize: read header: %w", err)
	}

	index := map[string]int{"Date": 0}
	for i, name := range header[1:] {
		index[strings.TrimSpace(name)] = i + 1
	}
	for _, col := range normalizedHeader[1:] {
		if _, ok := index[col]; !ok && col != "Adj Close" {
			return 0, fmt.Errorf("normalize: missing column %q", col)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(normalizedHeader); err != nil {
		return 0, err
	}

	written := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return written, fmt.Errorf("normalize: %w", err)
		}
		if len(record) == 0 || isMetadataRow(record[0]) {
			continue
		}

		out := make([]string, len(normalizedHeader))
		for i, col := range normalizedHeader {
			if j, ok := index[col]; ok && j < len(record) {
				out[i] = strings.TrimSpace(record[j])
			}
		}
		if err := cw.Write(out); err != nil {
			return written, err
		}
		written++
	}

	cw.Flush()
	return written, cw.Error()
}

func isMetadataRow(first string) bool {
	switch strings.TrimSpace(first) {
	case "Ticker", "Date", "":
		return true
	}
	return false
}
