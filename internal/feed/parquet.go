package feed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"rsibacktester/types"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
)

// BarRecord is the Parquet schema for a cached bar series.
type BarRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// ParquetFile reads bars cached by WriteParquet.
type ParquetFile struct {
	Path string
}

func (f ParquetFile) Bars(_ context.Context) ([]types.Bar, error) {
	return ReadParquet(f.Path)
}

// WriteParquet caches bars at path, creating parent directories as needed.
func WriteParquet(path string, bars []types.Bar) error {
	records := make([]BarRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, BarRecord{
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open.InexactFloat64(),
			High:      b.High.InexactFloat64(),
			Low:       b.Low.InexactFloat64(),
			Close:     b.Close.InexactFloat64(),
			Volume:    b.Volume.InexactFloat64(),
		})
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	return nil
}

// ReadParquet loads a cached series ordered by timestamp.
func ReadParquet(path string) ([]types.Bar, error) {
	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})

	bars := make([]types.Bar, 0, len(records))
	for _, r := range records {
		bars = append(bars, types.NewBar(
			time.UnixMilli(r.Timestamp).UTC(),
			decimal.NewFromFloat(r.Open),
			decimal.NewFromFloat(r.High),
			decimal.NewFromFloat(r.Low),
			decimal.NewFromFloat(r.Close),
			decimal.NewFromFloat(r.Volume),
		))
	}
	return bars, nil
}
