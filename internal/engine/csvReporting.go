package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"rsibacktester/types"
)

// writeTradesCSVFile writes closed trades to a CSV file at the given path.
func writeTradesCSVFile(path string, trades []types.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trades file: %w", err)
	}
	defer f.Close()

	return writeTradesCSV(f, trades)
}

// writeTradesCSV writes trades to any io.Writer as CSV, one row per round trip.
func writeTradesCSV(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"trade_id",
		"entry_order_id",
		"exit_order_id",
		"size",
		"entry_price",
		"exit_price",
		"gross_pnl",
		"net_pnl",
		"commission",
		"opened_bar",
		"closed_bar",
		"opened_at", // RFC3339
		"closed_at",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range trades {
		if err := writeTradeRow(cw, t); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeTradeRow(cw *csv.Writer, t types.Trade) error {
	record := []string{
		strconv.Itoa(t.ID),
		strconv.Itoa(t.EntryOrderID),
		strconv.Itoa(t.ExitOrderID),
		t.Size.String(),
		t.EntryPrice.String(),
		t.ExitPrice.String(),
		t.GrossPnL.String(),
		t.NetPnL.String(),
		t.Commission.String(),
		strconv.Itoa(t.OpenedBar),
		strconv.Itoa(t.ClosedBar),
		t.OpenedAt.Format(time.RFC3339),
		t.ClosedAt.Format(time.RFC3339),
	}

	if err := cw.Write(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
